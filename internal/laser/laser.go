// Package laser 实现激光器驱动层：统一的能力接口、各型号的串口命令协议，
// 以及每台设备独立的通信锁。
package laser

import (
	"fmt"
	"math"
	"sync"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
	"github.com/linjuya-lu/device_laser_go/internal/serial"
	"go.uber.org/atomic"
)

// Device 是所有激光器驱动对外暴露的统一能力集。
// 每个涉及串口的方法在整个调用期间持有该设备的通信锁。
type Device interface {
	// Enable 发送型号相关的开光序列并回读确认；确认失败返回 false 而不是错误
	Enable() (bool, error)
	// Disable 发送关光命令并返回设备回复，不做确认、不重试
	Disable() (string, error)
	IsOn() (bool, error)
	IsAlive() (bool, error)
	MaxPowerMilliwatts() (float64, error)
	// PowerMilliwatts 返回实测功率
	PowerMilliwatts() (float64, error)
	// SetPointMilliwatts 返回最近一次请求的功率设定值
	SetPointMilliwatts() (float64, error)
	// SetPowerMilliwatts 把 mW 限制在 [0, 最大功率] 后下发
	SetPowerMilliwatts(mW float64) error
	Status() (StatusReport, error)
	// Port 返回独占的串口名称
	Port() string
	// Close 释放串口
	Close() error
}

// FaultClearer 由支持清除故障的型号实现
type FaultClearer interface {
	ClearFault() (StatusReport, error)
}

// ClientHooks 由需要在控制端连接/退出时做额外处理的型号实现
type ClientHooks interface {
	OnClientInitialize() error
	OnClientExit() error
}

// device 是各型号共用的部分：串口、通信锁、设定值缓存和日志
type device struct {
	mu       sync.Mutex
	ch       serial.Channel
	lc       logger.LoggingClient
	prefix   string
	setPoint *atomic.Float64
}

func newDevice(driver string, ch serial.Channel, lc logger.LoggingClient) *device {
	return &device{
		ch:       ch,
		lc:       lc,
		prefix:   fmt.Sprintf("[%s %s] ", driver, ch.Name()),
		setPoint: atomic.NewFloat64(0),
	}
}

// send 写命令并读取一行回复，调用方必须已持有 mu
func (d *device) send(command string) (string, error) {
	if _, err := d.ch.Write(command); err != nil {
		return "", err
	}
	return d.ch.ReadLine()
}

// SetPointMilliwatts 只读缓存，不占用串口
func (d *device) SetPointMilliwatts() (float64, error) {
	return d.setPoint.Load(), nil
}

func (d *device) Port() string {
	return d.ch.Name()
}

func (d *device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ch.Close()
}

func (d *device) infof(format string, args ...interface{}) {
	d.lc.Infof(d.prefix+format, args...)
}

func (d *device) debugf(format string, args ...interface{}) {
	d.lc.Debugf(d.prefix+format, args...)
}

func (d *device) warnf(format string, args ...interface{}) {
	d.lc.Warnf(d.prefix+format, args...)
}

// checkPower NaN 无法限幅，直接拒绝
func checkPower(mW float64) error {
	if math.IsNaN(mW) {
		return errors.NewCommonEdgeX(errors.KindContractInvalid, "power set point is NaN", nil)
	}
	return nil
}

// clamp 把功率限制在 [0, max]
func clamp(mW, maxMW float64) float64 {
	if mW > maxMW {
		mW = maxMW
	}
	if mW < 0 {
		mW = 0
	}
	return mW
}
