package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	DefaultPath        = "./res/lasers.yaml"
	DefaultTimeout     = 1.0
	DefaultBackend     = "tarm"
	DefaultHost        = "localhost"
	DefaultPort        = 1883
	DefaultClientID    = "laser-server"
	DefaultTopicPrefix = "lasers"
	DefaultLogLevel    = "INFO"
)

// Load 从指定 YAML 文件加载配置
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse 反序列化 YAML 并补齐缺省值
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	s := &c.LaserServer
	if s.Host == "" {
		s.Host = DefaultHost
	}
	if s.Port == 0 {
		s.Port = DefaultPort
	}
	if s.ClientID == "" {
		s.ClientID = DefaultClientID
	}
	if s.TopicPrefix == "" {
		s.TopicPrefix = DefaultTopicPrefix
	}
	if s.LogLevel == "" {
		s.LogLevel = DefaultLogLevel
	}
	for i := range c.Lasers {
		l := &c.Lasers[i]
		if l.Timeout <= 0 {
			l.Timeout = DefaultTimeout
		}
		if l.Backend == "" {
			l.Backend = DefaultBackend
		}
	}
}

// BrokerURL 返回网关使用的 MQTT broker 地址
func (s Server) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", s.Host, s.Port)
}

// IsSupported 判断驱动类型是否在 Supported 列表中
func (s Server) IsSupported(driver string) bool {
	for _, d := range s.Supported {
		if d == driver {
			return true
		}
	}
	return false
}

// ReadTimeout 把秒数转换为 time.Duration
func (l Laser) ReadTimeout() time.Duration {
	return time.Duration(l.Timeout * float64(time.Second))
}

// GetLaser 根据远程发布名查找激光器配置
func (c *Config) GetLaser(name string) (Laser, bool) {
	for _, l := range c.Lasers {
		if l.Name == name {
			return l, true
		}
	}
	return Laser{}, false
}
