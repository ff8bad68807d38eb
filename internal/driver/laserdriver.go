// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019-2023 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package driver provides an implementation of a ProtocolDriver interface
// that exposes every configured laser as an EdgeX device.
package driver

import (
	"fmt"
	"sync"

	"github.com/edgexfoundry/device-sdk-go/v4/pkg/interfaces"
	dsModels "github.com/edgexfoundry/device-sdk-go/v4/pkg/models"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/models"
	"github.com/linjuya-lu/device_laser_go/internal/config"
	"github.com/linjuya-lu/device_laser_go/internal/laser"
	"github.com/linjuya-lu/device_laser_go/internal/server"
)

// ConfigFileKey 是 Driver 配置中指向激光器 YAML 的键
const ConfigFileKey = "LaserConfigFile"

type LaserDriver struct {
	lc  logger.LoggingClient
	sdk interfaces.DeviceServiceSDK
	srv *server.Server

	// Stop 之后拒绝新命令，并等待进行中的命令结束再关光
	mu       sync.RWMutex
	stopping bool
	inflight sync.WaitGroup
}

var once sync.Once
var driver *LaserDriver

func NewLaserDeviceDriver() interfaces.ProtocolDriver {
	once.Do(func() {
		driver = new(LaserDriver)
	})
	return driver
}

func (d *LaserDriver) Initialize(sdk interfaces.DeviceServiceSDK) error {
	d.sdk = sdk
	d.lc = sdk.LoggingClient()

	path := sdk.DriverConfigs()[ConfigFileKey]
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load laser config: %w", err)
	}

	d.srv = server.New(cfg, d.lc)
	if err := d.srv.Start(); err != nil {
		return fmt.Errorf("start lasers: %w", err)
	}
	return nil
}

func (d *LaserDriver) Start() error {
	d.lc.Infof("laser device service started, lasers: %v", d.srv.Names())
	for name, err := range d.srv.Failed() {
		d.lc.Warnf("laser %s unavailable: %v", name, err)
	}
	return nil
}

func (d *LaserDriver) HandleReadCommands(deviceName string, protocols map[string]models.ProtocolProperties, reqs []dsModels.CommandRequest) ([]*dsModels.CommandValue, error) {
	if err := d.begin(); err != nil {
		return nil, err
	}
	defer d.inflight.Done()

	dev, err := d.device(deviceName)
	if err != nil {
		return nil, err
	}

	res := make([]*dsModels.CommandValue, len(reqs))
	for i, req := range reqs {
		cv, err := readResource(dev, req.DeviceResourceName)
		if err != nil {
			return nil, errors.NewCommonEdgeX(errors.Kind(err),
				fmt.Sprintf("read %s.%s", deviceName, req.DeviceResourceName), err)
		}
		res[i] = cv
		d.lc.Debugf("读取值: %s.%s = %v", deviceName, req.DeviceResourceName, cv.Value)
	}
	return res, nil
}

func (d *LaserDriver) HandleWriteCommands(deviceName string, protocols map[string]models.ProtocolProperties, reqs []dsModels.CommandRequest,
	params []*dsModels.CommandValue) error {
	if err := d.begin(); err != nil {
		return err
	}
	defer d.inflight.Done()

	dev, err := d.device(deviceName)
	if err != nil {
		return err
	}

	for i, req := range reqs {
		if i >= len(params) {
			return errors.NewCommonEdgeX(errors.KindContractInvalid,
				fmt.Sprintf("missing value for %s.%s", deviceName, req.DeviceResourceName), nil)
		}
		d.lc.Infof("写入值: %s.%s = %v", deviceName, req.DeviceResourceName, params[i].Value)
		if err := writeResource(dev, req.DeviceResourceName, params[i]); err != nil {
			return errors.NewCommonEdgeX(errors.Kind(err),
				fmt.Sprintf("write %s.%s", deviceName, req.DeviceResourceName), err)
		}
	}
	return nil
}

// Stop 不再接受新命令，等进行中的命令完成后关闭所有激光器并释放串口
func (d *LaserDriver) Stop(force bool) error {
	d.mu.Lock()
	d.stopping = true
	d.mu.Unlock()
	d.inflight.Wait()

	d.lc.Info("LaserDriver.Stop: disabling all lasers")
	if d.srv != nil {
		d.srv.Shutdown(nil)
	}
	return nil
}

func (d *LaserDriver) AddDevice(deviceName string, protocols map[string]models.ProtocolProperties, adminState models.AdminState) error {
	if _, ok := d.srv.Device(deviceName); !ok {
		d.lc.Warnf("device %s added but no laser with that name is connected", deviceName)
		return nil
	}
	d.lc.Debugf("a new Device is added: %s", deviceName)
	return nil
}

func (d *LaserDriver) UpdateDevice(deviceName string, protocols map[string]models.ProtocolProperties, adminState models.AdminState) error {
	d.lc.Debugf("Device %s is updated", deviceName)
	return nil
}

func (d *LaserDriver) RemoveDevice(deviceName string, protocols map[string]models.ProtocolProperties) error {
	d.lc.Debugf("Device %s is removed", deviceName)
	return nil
}

func (d *LaserDriver) Discover() error {
	return fmt.Errorf("driver's Discover function isn't implemented")
}

// ValidateDevice 设备名必须与配置中的某台激光器同名
func (d *LaserDriver) ValidateDevice(device models.Device) error {
	if _, err := d.device(device.Name); err != nil {
		return err
	}
	return nil
}

// begin 登记一条进行中的命令，调用方结束时必须 inflight.Done()
func (d *LaserDriver) begin() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopping {
		return errors.NewCommonEdgeX(errors.KindServiceUnavailable, "laser driver is stopping", nil)
	}
	d.inflight.Add(1)
	return nil
}

func (d *LaserDriver) device(name string) (laser.Device, error) {
	if d.srv == nil {
		return nil, errors.NewCommonEdgeX(errors.KindServiceUnavailable, "laser driver not initialized", nil)
	}
	dev, ok := d.srv.Device(name)
	if !ok {
		return nil, errors.NewCommonEdgeX(errors.KindEntityDoesNotExist,
			fmt.Sprintf("laser %s not found", name), nil)
	}
	return dev, nil
}
