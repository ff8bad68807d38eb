package laser

import (
	"sort"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
	"github.com/linjuya-lu/device_laser_go/internal/serial"
)

// Constructor 用已打开的通道构造一台设备
type Constructor func(ch serial.Channel, lc logger.LoggingClient) (Device, error)

// drivers 驱动类型 → 构造函数
var drivers = map[string]Constructor{
	CoboltDriver: func(ch serial.Channel, lc logger.LoggingClient) (Device, error) {
		c, err := NewCobolt(ch, lc)
		if err != nil {
			return nil, err
		}
		return c, nil
	},
	DeepstarDriver: func(ch serial.Channel, lc logger.LoggingClient) (Device, error) {
		d, err := NewDeepstar(ch, lc)
		if err != nil {
			return nil, err
		}
		return d, nil
	},
}

// Lookup 根据驱动类型返回构造函数
func Lookup(driver string) (Constructor, bool) {
	c, ok := drivers[driver]
	return c, ok
}

// Drivers 返回所有已知驱动类型
func Drivers() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
