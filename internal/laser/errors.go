package laser

import (
	"fmt"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
)

// IsConnectionError 串口无法打开或配置
func IsConnectionError(err error) bool {
	return err != nil && errors.Kind(err) == errors.KindServiceUnavailable
}

// IsTransportError 已打开的串口读写失败
func IsTransportError(err error) bool {
	return err != nil && errors.Kind(err) == errors.KindCommunicationError
}

// IsConfigurationError 未知驱动、重名等启动期配置错误
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	k := errors.Kind(err)
	return k == errors.KindContractInvalid || k == errors.KindDuplicateName
}

// replyError 设备回复无法解析
func replyError(command, reply string, err error) errors.EdgeX {
	return errors.NewCommonEdgeX(errors.KindServerError,
		fmt.Sprintf("unexpected reply %q to %s", reply, command), err)
}
