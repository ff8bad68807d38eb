// internal/serial/serial.go

package serial

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
	"github.com/linjuya-lu/device_laser_go/internal/config"
)

const (
	// Terminator 追加在每条命令之后
	Terminator = "\r\n"
	// 单行回复的最大长度，超过则截断返回
	maxLineLength = 256
)

// Port 是底层串口句柄，各后端（tarm / bugst）实现它
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	// Flush 丢弃已接收但未读取的字节
	Flush() error
	Close() error
}

// Opener 按配置打开一个串口，帧格式固定为 8N1
type Opener func(name string, baud int, timeout time.Duration) (Port, error)

// backends 后端类型 → 打开函数
var backends = map[string]Opener{
	"tarm":  openTarm,
	"bugst": openBugst,
}

// Channel 是激光器驱动使用的行协议通道，独占一个物理串口
type Channel interface {
	Name() string
	// Write 追加 CR/LF 后发送，返回发送的字节数
	Write(command string) (int, error)
	// ReadLine 读取一行并去掉首尾空白；超时返回空串，不是错误
	ReadLine() (string, error)
	// FlushInput 丢弃未读输入
	FlushInput() error
	Close() error
}

// LineChannel 在 Port 之上实现 Channel
type LineChannel struct {
	name    string
	port    Port
	timeout time.Duration // 整行的读超时，<=0 时只依赖后端的单次读超时
}

// Open 根据激光器配置选择后端并打开串口；失败时返回 ConnectionError
func Open(cfg config.Laser) (*LineChannel, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = config.DefaultBackend
	}
	open, ok := backends[backend]
	if !ok {
		return nil, errors.NewCommonEdgeX(errors.KindServiceUnavailable,
			fmt.Sprintf("unknown serial backend %s for %s", backend, cfg.ComPort), nil)
	}
	p, err := open(cfg.ComPort, cfg.Baud, cfg.ReadTimeout())
	if err != nil {
		return nil, errors.NewCommonEdgeX(errors.KindServiceUnavailable,
			fmt.Sprintf("open serial %s failed", cfg.ComPort), err)
	}
	return NewLineChannel(cfg.ComPort, p, cfg.ReadTimeout()), nil
}

// NewLineChannel 用一个已打开的 Port 构造通道
func NewLineChannel(name string, port Port, timeout time.Duration) *LineChannel {
	return &LineChannel{name: name, port: port, timeout: timeout}
}

// Name 返回串口名称
func (c *LineChannel) Name() string {
	return c.name
}

func (c *LineChannel) Write(command string) (int, error) {
	n, err := c.port.Write([]byte(command + Terminator))
	if err != nil {
		return n, errors.NewCommonEdgeX(errors.KindCommunicationError,
			fmt.Sprintf("serial write %q to %s failed", command, c.name), err)
	}
	return n, nil
}

// ReadLine 逐字节读取直到 LF。后端在读超时时返回 0 字节（tarm 附带 io.EOF），
// 此时把已收到的部分当作结果返回。整行共用一个截止时间，设备逐字节慢吐也不会拖长。
// 超过 maxLineLength 的部分读到 LF 为止丢弃，不留给下一条命令。
func (c *LineChannel) ReadLine() (string, error) {
	var deadline time.Time
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}

	var sb strings.Builder
	b := make([]byte, 1)
	for deadline.IsZero() || time.Now().Before(deadline) {
		n, err := c.port.Read(b)
		if n == 0 {
			if err != nil && err != io.EOF {
				return "", errors.NewCommonEdgeX(errors.KindCommunicationError,
					fmt.Sprintf("serial read from %s failed", c.name), err)
			}
			break
		}
		if b[0] == '\n' {
			break
		}
		if sb.Len() < maxLineLength {
			sb.WriteByte(b[0])
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func (c *LineChannel) FlushInput() error {
	if err := c.port.Flush(); err != nil {
		return errors.NewCommonEdgeX(errors.KindCommunicationError,
			fmt.Sprintf("serial flush %s failed", c.name), err)
	}
	return nil
}

// Close 释放串口
func (c *LineChannel) Close() error {
	return c.port.Close()
}
