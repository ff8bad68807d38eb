package laser

import (
	"fmt"
	"strconv"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
	"github.com/linjuya-lu/device_laser_go/internal/serial"
)

// CoboltDriver 是配置中使用的驱动类型名
const CoboltDriver = "cobolt"

// 清空缓冲时最多读取的行数
const maxFlushLines = 64

// coboltStatusQueries 状态查询命令及标签，顺序即输出顺序
var coboltStatusQueries = []struct {
	command string
	label   string
}{
	{"l?", "Emission on?"},
	{"p?", "Target power:"},
	{"pa?", "Measured power:"},
	{"f?", "Fault?"},
	{"hrs?", "Head operating hours:"},
}

// Cobolt 驱动会回报功率计读数的激光器。
// 线上功率单位为 W，对外统一为 mW。
type Cobolt struct {
	*device
}

// NewCobolt 读取序列号并关闭上电自动出光，使出光完全由软件控制
func NewCobolt(ch serial.Channel, lc logger.LoggingClient) (*Cobolt, error) {
	c := &Cobolt{device: newDevice(CoboltDriver, ch, lc)}

	c.mu.Lock()
	defer c.mu.Unlock()

	sn, err := c.send("sn?")
	if err != nil {
		return nil, err
	}
	c.infof("Cobolt laser serial number: [%s]", sn)

	resp, err := c.send("@cobas 0")
	if err != nil {
		return nil, err
	}
	c.infof("Response to @cobas 0 [%s]", resp)
	return c, nil
}

func (c *Cobolt) Enable() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.infof("Turning laser ON")
	resp, err := c.send("l1")
	if err != nil {
		return false, err
	}
	c.infof("l1: [%s]", resp)

	on, err := c.isOn()
	if err != nil {
		return false, err
	}
	if !on {
		status, err := c.status()
		if err != nil {
			return false, err
		}
		c.warnf("Failed to turn on. Current status: %s", status)
		return false, nil
	}
	return true, nil
}

func (c *Cobolt) Disable() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.infof("Turning laser OFF")
	return c.send("l0")
}

func (c *Cobolt) IsOn() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isOn()
}

func (c *Cobolt) isOn() (bool, error) {
	resp, err := c.send("l?")
	if err != nil {
		return false, err
	}
	return resp == "1", nil
}

// IsAlive 设备对 l? 应回复 0 或 1
func (c *Cobolt) IsAlive() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.send("l?")
	if err != nil {
		return false, err
	}
	return resp == "0" || resp == "1", nil
}

// MaxPowerMilliwatts gmlp? 直接以 mW 回复
func (c *Cobolt) MaxPowerMilliwatts() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxPower()
}

func (c *Cobolt) maxPower() (float64, error) {
	return c.queryFloat("gmlp?", 1)
}

func (c *Cobolt) PowerMilliwatts() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queryFloat("pa?", 1000)
}

func (c *Cobolt) SetPowerMilliwatts(mW float64) error {
	if err := checkPower(mW); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	maxMW, err := c.maxPower()
	if err != nil {
		return err
	}
	mW = clamp(mW, maxMW)
	c.setPoint.Store(mW)

	c.infof("Setting laser power to %.4fW", mW/1000)
	resp, err := c.send(fmt.Sprintf("@cobasp %.4f", mW/1000))
	if err != nil {
		return err
	}
	c.debugf("@cobasp: [%s]", resp)
	return nil
}

func (c *Cobolt) Status() (StatusReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status()
}

// status 依次发出全部子查询；超时得到的空回复照样记录
func (c *Cobolt) status() (StatusReport, error) {
	report := make(StatusReport, 0, len(coboltStatusQueries))
	for _, q := range coboltStatusQueries {
		resp, err := c.send(q.command)
		if err != nil {
			return nil, err
		}
		report = append(report, StatusEntry{Label: q.label, Value: resp})
	}
	return report, nil
}

// ClearFault 发送 cf 后重新读取状态
func (c *Cobolt) ClearFault() (StatusReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.send("cf")
	if err != nil {
		return nil, err
	}
	c.infof("cf: [%s]", resp)
	return c.status()
}

// OnClientInitialize 控制端连接时调用：关闭直接控制模式并进入自动启动模式
func (c *Cobolt) OnClientInitialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.flushBuffer(); err != nil {
		return err
	}
	for _, cmd := range []string{"@cobasdr 0", "@cob1"} {
		resp, err := c.send(cmd)
		if err != nil {
			return err
		}
		c.infof("%s: [%s]", cmd, resp)
	}
	return nil
}

// OnClientExit 控制端退出时调用：关光并退出自动启动模式
func (c *Cobolt) OnClientExit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cmd := range []string{"l0", "@cob0"} {
		resp, err := c.send(cmd)
		if err != nil {
			return err
		}
		c.infof("%s: [%s]", cmd, resp)
	}
	return c.flushBuffer()
}

// flushBuffer 读空设备的输出，直到读超时
func (c *Cobolt) flushBuffer() error {
	for i := 0; i < maxFlushLines; i++ {
		line, err := c.ch.ReadLine()
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
	}
	return nil
}

func (c *Cobolt) queryFloat(command string, scale float64) (float64, error) {
	resp, err := c.send(command)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(resp, 64)
	if err != nil {
		return 0, replyError(command, resp, err)
	}
	return v * scale, nil
}
