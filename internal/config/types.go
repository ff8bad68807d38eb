package config

// Laser 描述一台激光器：串口参数、驱动类型以及远程发布名
type Laser struct {
	Name    string  `yaml:"Name"`    // 远程发布名，全局唯一
	Driver  string  `yaml:"Driver"`  // 驱动类型，例如 cobolt / deepstar
	ComPort string  `yaml:"ComPort"` // 串口设备节点
	Baud    int     `yaml:"Baud"`    // 波特率
	Timeout float64 `yaml:"Timeout"` // 读超时（秒），缺省 1
	Backend string  `yaml:"Backend"` // 串口后端 tarm/bugst，缺省 tarm
}

// Server 是网关（MQTT broker）和注册表级别的配置
type Server struct {
	Host        string   `yaml:"Host"`
	Port        int      `yaml:"Port"`
	ClientID    string   `yaml:"ClientID"`
	TopicPrefix string   `yaml:"TopicPrefix"`
	LogLevel    string   `yaml:"LogLevel"`
	Supported   []string `yaml:"Supported"` // 启用的驱动类型
}

// Config 汇总了 LaserServer 与 Lasers
type Config struct {
	LaserServer Server  `yaml:"LaserServer"`
	Lasers      []Laser `yaml:"Lasers"`
}
