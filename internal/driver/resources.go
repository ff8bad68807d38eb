// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2025 YourCompany
//
// SPDX-License-Identifier: Apache-2.0

package driver

import (
	"fmt"

	"github.com/edgexfoundry/device-sdk-go/v4/pkg/models"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/common"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
	"github.com/linjuya-lu/device_laser_go/internal/laser"
)

// 激光器设备的 DeviceResource 名称
const (
	ResourceEnabled    = "Enabled"    // bool 读：是否出光；写：开/关光
	ResourceAlive      = "Alive"      // bool 只读
	ResourcePower      = "Power"      // float64 只读，实测 mW
	ResourceSetPower   = "SetPower"   // float64 读写，设定值 mW
	ResourceMaxPower   = "MaxPower"   // float64 只读
	ResourceStatus     = "Status"     // StringArray 只读
	ResourceClearFault = "ClearFault" // bool 只写
)

// readResource 读取设备状态并封装成 CommandValue
func readResource(dev laser.Device, resource string) (*models.CommandValue, error) {
	switch resource {
	case ResourceEnabled:
		on, err := dev.IsOn()
		if err != nil {
			return nil, err
		}
		return models.NewCommandValue(resource, common.ValueTypeBool, on)
	case ResourceAlive:
		alive, err := dev.IsAlive()
		if err != nil {
			return nil, err
		}
		return models.NewCommandValue(resource, common.ValueTypeBool, alive)
	case ResourcePower, ResourceSetPower, ResourceMaxPower:
		var (
			v   float64
			err error
		)
		switch resource {
		case ResourcePower:
			v, err = dev.PowerMilliwatts()
		case ResourceSetPower:
			v, err = dev.SetPointMilliwatts()
		default:
			v, err = dev.MaxPowerMilliwatts()
		}
		if err != nil {
			return nil, err
		}
		return models.NewCommandValue(resource, common.ValueTypeFloat64, v)
	case ResourceStatus:
		report, err := dev.Status()
		if err != nil {
			return nil, err
		}
		return models.NewCommandValue(resource, common.ValueTypeStringArray, report.Lines())
	}
	return nil, errors.NewCommonEdgeX(errors.KindNotImplemented, fmt.Sprintf("resource %s is not readable", resource), nil)
}

// writeResource 把上层下发的 CommandValue 转成设备调用
func writeResource(dev laser.Device, resource string, param *models.CommandValue) error {
	switch resource {
	case ResourceEnabled:
		enable, err := param.BoolValue()
		if err != nil {
			return errors.NewCommonEdgeX(errors.KindContractInvalid, "invalid bool write", err)
		}
		if !enable {
			_, err := dev.Disable()
			return err
		}
		ok, err := dev.Enable()
		if err != nil {
			return err
		}
		if !ok {
			// 写命令没有返回值，确认失败只能以错误上报
			return errors.NewCommonEdgeX(errors.KindServerError,
				fmt.Sprintf("laser on %s did not turn on", dev.Port()), nil)
		}
		return nil
	case ResourceSetPower:
		mW, err := param.Float64Value()
		if err != nil {
			return errors.NewCommonEdgeX(errors.KindContractInvalid, "invalid float64 write", err)
		}
		return dev.SetPowerMilliwatts(mW)
	case ResourceClearFault:
		fc, ok := dev.(laser.FaultClearer)
		if !ok {
			return errors.NewCommonEdgeX(errors.KindNotImplemented,
				fmt.Sprintf("laser on %s cannot clear faults", dev.Port()), nil)
		}
		doClear, err := param.BoolValue()
		if err != nil {
			return errors.NewCommonEdgeX(errors.KindContractInvalid, "invalid bool write", err)
		}
		if !doClear {
			return nil
		}
		_, err = fc.ClearFault()
		return err
	}
	return errors.NewCommonEdgeX(errors.KindNotImplemented, fmt.Sprintf("resource %s is not writable", resource), nil)
}
