package mqtt

import (
	"fmt"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
	"github.com/linjuya-lu/device_laser_go/internal/laser"
)

// 远程方法名
const (
	MethodEnable       = "enable"
	MethodDisable      = "disable"
	MethodIsOn         = "isOn"
	MethodIsAlive      = "isAlive"
	MethodGetStatus    = "getStatus"
	MethodGetMaxPower  = "getMaxPowerMilliwatts"
	MethodGetPower     = "getPowerMilliwatts"
	MethodGetSetPower  = "getSetPowerMilliwatts"
	MethodSetPower     = "setPowerMilliwatts"
	MethodClearFault   = "clearFault"
	MethodOnInitialize = "onInitialize"
	MethodOnExit       = "onExit"
)

// Dispatch 把一次请求映射到设备上的一次同步调用，返回普通值
func Dispatch(dev laser.Device, req Request) (interface{}, error) {
	switch req.Method {
	case MethodEnable:
		return dev.Enable()
	case MethodDisable:
		return dev.Disable()
	case MethodIsOn:
		return dev.IsOn()
	case MethodIsAlive:
		return dev.IsAlive()
	case MethodGetStatus:
		report, err := dev.Status()
		if err != nil {
			return nil, err
		}
		return report.Lines(), nil
	case MethodGetMaxPower:
		return dev.MaxPowerMilliwatts()
	case MethodGetPower:
		return dev.PowerMilliwatts()
	case MethodGetSetPower:
		return dev.SetPointMilliwatts()
	case MethodSetPower:
		if req.Value == nil {
			return nil, errors.NewCommonEdgeX(errors.KindContractInvalid, "setPowerMilliwatts requires a value", nil)
		}
		return nil, dev.SetPowerMilliwatts(*req.Value)
	case MethodClearFault:
		fc, ok := dev.(laser.FaultClearer)
		if !ok {
			return nil, notImplemented(dev, req.Method)
		}
		report, err := fc.ClearFault()
		if err != nil {
			return nil, err
		}
		return report.Lines(), nil
	case MethodOnInitialize, MethodOnExit:
		hooks, ok := dev.(laser.ClientHooks)
		if !ok {
			// 没有钩子的型号视为成功
			return nil, nil
		}
		if req.Method == MethodOnInitialize {
			return nil, hooks.OnClientInitialize()
		}
		return nil, hooks.OnClientExit()
	}
	return nil, errors.NewCommonEdgeX(errors.KindNotImplemented, fmt.Sprintf("unknown method %q", req.Method), nil)
}

func notImplemented(dev laser.Device, method string) error {
	return errors.NewCommonEdgeX(errors.KindNotImplemented,
		fmt.Sprintf("%s is not supported by the laser on %s", method, dev.Port()), nil)
}
