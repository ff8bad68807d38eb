// Package server 负责按配置实例化激光器、发布到网关，并在退出时保证全部关光。
package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
	"github.com/linjuya-lu/device_laser_go/internal/config"
	"github.com/linjuya-lu/device_laser_go/internal/laser"
	"github.com/linjuya-lu/device_laser_go/internal/serial"
)

// Publisher 是远程调用网关：按名字发布设备，Stop 后不再接受新调用
type Publisher interface {
	Publish(name string, dev laser.Device) error
	Stop() error
}

// Opener 按配置打开一个串口通道
type Opener func(cfg config.Laser) (serial.Channel, error)

func openSerial(cfg config.Laser) (serial.Channel, error) {
	ch, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

type entry struct {
	name string
	cfg  config.Laser
	dev  laser.Device
}

// Server 持有所有已实例化的设备
type Server struct {
	cfg  *config.Config
	lc   logger.LoggingClient
	open Opener

	mu       sync.RWMutex
	devices  []*entry
	failed   map[string]error
	stopping bool
	stopOnce sync.Once
}

// Option 修改 Server 的可选参数
type Option func(*Server)

// WithOpener 替换串口打开方式
func WithOpener(open Opener) Option {
	return func(s *Server) {
		s.open = open
	}
}

func New(cfg *config.Config, lc logger.LoggingClient, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		lc:     lc,
		open:   openSerial,
		failed: make(map[string]error),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Validate 检查启动期配置错误：未知或未启用的驱动、重名、缺少串口
func (s *Server) Validate() error {
	for _, d := range s.cfg.LaserServer.Supported {
		if _, ok := laser.Lookup(d); !ok {
			return errors.NewCommonEdgeX(errors.KindContractInvalid,
				fmt.Sprintf("could not load laser driver %s, known drivers: %v", d, laser.Drivers()), nil)
		}
	}
	if len(s.cfg.LaserServer.Supported) == 0 {
		return errors.NewCommonEdgeX(errors.KindContractInvalid, "no supported laser drivers defined in config", nil)
	}

	names := make(map[string]struct{}, len(s.cfg.Lasers))
	for _, l := range s.cfg.Lasers {
		if l.Name == "" {
			return errors.NewCommonEdgeX(errors.KindContractInvalid,
				fmt.Sprintf("laser on %s has no remote name", l.ComPort), nil)
		}
		if _, dup := names[l.Name]; dup {
			return errors.NewCommonEdgeX(errors.KindDuplicateName,
				fmt.Sprintf("duplicate laser name %s", l.Name), nil)
		}
		names[l.Name] = struct{}{}

		if !s.cfg.LaserServer.IsSupported(l.Driver) {
			return errors.NewCommonEdgeX(errors.KindContractInvalid,
				fmt.Sprintf("laser %s uses driver %s which is not supported", l.Name, l.Driver), nil)
		}
		if l.ComPort == "" {
			return errors.NewCommonEdgeX(errors.KindContractInvalid,
				fmt.Sprintf("laser %s has no comPort", l.Name), nil)
		}
	}
	return nil
}

// Start 校验配置并逐台实例化。单台设备的串口或构造失败只记录，不影响其余设备。
func (s *Server) Start() error {
	if err := s.Validate(); err != nil {
		return err
	}

	for _, l := range s.cfg.Lasers {
		dev, err := s.instantiate(l)
		if err != nil {
			s.lc.Errorf("laser %s on %s not available: %v", l.Name, l.ComPort, err)
			s.mu.Lock()
			s.failed[l.Name] = err
			s.mu.Unlock()
			continue
		}
		s.lc.Infof("laser %s (%s) connected on %s at %d baud", l.Name, l.Driver, l.ComPort, l.Baud)
		s.mu.Lock()
		s.devices = append(s.devices, &entry{name: l.Name, cfg: l, dev: dev})
		s.mu.Unlock()
	}
	return nil
}

func (s *Server) instantiate(l config.Laser) (laser.Device, error) {
	ctor, _ := laser.Lookup(l.Driver)
	ch, err := s.open(l)
	if err != nil {
		return nil, err
	}
	dev, err := ctor(ch, s.lc)
	if err != nil {
		if cerr := ch.Close(); cerr != nil {
			s.lc.Warnf("close %s: %v", l.ComPort, cerr)
		}
		return nil, err
	}
	return dev, nil
}

// Publish 把每台设备按远程名发布到网关；单台发布失败不影响其余设备
func (s *Server) Publish(p Publisher) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.devices {
		if err := p.Publish(e.name, e.dev); err != nil {
			s.lc.Errorf("publish laser %s failed: %v", e.name, err)
			continue
		}
		s.lc.Infof("laser %s published", e.name)
	}
}

// Run 启动、发布，然后阻塞直到 ctx 结束，最后执行有序关闭。
// 启动失败时也会停止 p，调用方不必再单独清理。
func (s *Server) Run(ctx context.Context, p Publisher) error {
	if err := s.Start(); err != nil {
		if p != nil {
			if serr := p.Stop(); serr != nil {
				s.lc.Errorf("stop gateway: %v", serr)
			}
		}
		return err
	}
	if p != nil {
		s.Publish(p)
	}
	<-ctx.Done()
	s.lc.Info("stop signal received, shutting down lasers")
	s.Shutdown(p)
	return nil
}

// Shutdown 依次：网关停止接受调用 → 全部关光 → 释放全部串口。
// 单台设备出错只记录日志，其余设备照常处理。可重复调用。
func (s *Server) Shutdown(p Publisher) {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopping = true
		devices := s.devices
		s.mu.Unlock()

		if p != nil {
			if err := p.Stop(); err != nil {
				s.lc.Errorf("stop gateway: %v", err)
			}
		}

		for _, e := range devices {
			resp, err := e.dev.Disable()
			if err != nil {
				s.lc.Errorf("disable laser %s failed: %v", e.name, err)
				continue
			}
			s.lc.Infof("laser %s disabled: [%s]", e.name, resp)
		}

		for _, e := range devices {
			if err := e.dev.Close(); err != nil {
				s.lc.Errorf("release %s for laser %s failed: %v", e.dev.Port(), e.name, err)
			}
		}
	})
}

// Device 按远程名查找设备；关闭开始后不再返回任何设备
func (s *Server) Device(name string) (laser.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopping {
		return nil, false
	}
	for _, e := range s.devices {
		if e.name == name {
			return e.dev, true
		}
	}
	return nil, false
}

// Names 返回已实例化设备的远程名，按配置顺序
func (s *Server) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.devices))
	for i, e := range s.devices {
		names[i] = e.name
	}
	return names
}

// Failed 返回启动失败的设备及原因
func (s *Server) Failed() map[string]error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]error, len(s.failed))
	for k, v := range s.failed {
		out[k] = v
	}
	return out
}
