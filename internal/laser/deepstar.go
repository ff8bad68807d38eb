package laser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
	"github.com/linjuya-lu/device_laser_go/internal/serial"
)

// DeepstarDriver 是配置中使用的驱动类型名
const DeepstarDriver = "deepstar"

const (
	// 16 字节帧，CR/LF 计入长度。协议另有 7 字节帧，这里不用。
	deepstarFrameLength = 16
	// 功率寄存器满量程
	powerFullScale = 0xFFF
	// 唯一表示出光的状态码
	stateOn = "S2"
)

// Deepstar 驱动以状态码表示运行状态、以 12 位寄存器表示功率的激光器。
// 该系列设备在正常回复后偶尔会多吐字节，所以每次收发前都先清空输入。
type Deepstar struct {
	*device
}

// NewDeepstar 读取并记录当前状态
func NewDeepstar(ch serial.Channel, lc logger.LoggingClient) (*Deepstar, error) {
	d := &Deepstar{device: newDevice(DeepstarDriver, ch, lc)}

	d.mu.Lock()
	defer d.mu.Unlock()

	resp, err := d.query("S?")
	if err != nil {
		return nil, err
	}
	d.infof("Current laser state: [%s]", resp)
	return d, nil
}

// PadCommand 用空格把命令补齐到 16 字节帧（含 CR/LF）
func PadCommand(command string) string {
	pad := deepstarFrameLength - len(serial.Terminator) - len(command)
	if pad <= 0 {
		return command
	}
	return command + strings.Repeat(" ", pad)
}

// EncodePower 把 [0,1] 的功率比例编码为 PPxxx，xxx 为三位大写十六进制
func EncodePower(level float64) string {
	level = clamp(level, 1)
	return fmt.Sprintf("PP%03X", int(math.Round(level*powerFullScale)))
}

// DecodePower 解析 PP? 的回复，返回寄存器值
func DecodePower(reply string) (int, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(reply, "PP"), 16, 16)
	if err != nil {
		return 0, replyError("PP?", reply, err)
	}
	if v > powerFullScale {
		return 0, replyError("PP?", reply, nil)
	}
	return int(v), nil
}

// query 清空输入、写入补齐后的命令并读回复，调用方必须已持有 mu
func (d *Deepstar) query(command string) (string, error) {
	if err := d.ch.FlushInput(); err != nil {
		return "", err
	}
	return d.send(PadCommand(command))
}

func (d *Deepstar) Enable() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.infof("Turning laser ON")
	// LON 开光；L2 远程模式并使用内部参考电压；IPO 内部峰值功率；MF 关闭数字和偏置调制
	for _, cmd := range []string{"LON", "L2", "IPO", "MF"} {
		resp, err := d.query(cmd)
		if err != nil {
			return false, err
		}
		d.infof("%s response: [%s]", cmd, resp)
	}

	on, err := d.isOn()
	if err != nil {
		return false, err
	}
	if on {
		return true, nil
	}

	state, err := d.query("S?")
	if err != nil {
		return false, err
	}
	status, err := d.status()
	if err != nil {
		return false, err
	}
	d.warnf("Failed to turn on. Current state: [%s], status: %s", state, status)
	return false, nil
}

func (d *Deepstar) Disable() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.infof("Turning laser OFF")
	return d.query("LF")
}

func (d *Deepstar) IsOn() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isOn()
}

// isOn 只有 S2 表示出光，上电后的空闲码等其他状态一律视为关
func (d *Deepstar) isOn() (bool, error) {
	resp, err := d.query("S?")
	if err != nil {
		return false, err
	}
	d.debugf("Are we on? [%s]", resp)
	return resp == stateOn, nil
}

func (d *Deepstar) IsAlive() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	resp, err := d.query("S?")
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(resp, "S"), nil
}

func (d *Deepstar) MaxPowerMilliwatts() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxPower()
}

// maxPower 最大功率是 STAT0 回复的第三个字段
func (d *Deepstar) maxPower() (float64, error) {
	resp, err := d.query("STAT0")
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(resp)
	if len(fields) < 3 {
		return 0, replyError("STAT0", resp, nil)
	}
	v, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return 0, replyError("STAT0", resp, err)
	}
	return v, nil
}

// PowerMilliwatts 未出光时返回 0
func (d *Deepstar) PowerMilliwatts() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	maxMW, err := d.maxPower()
	if err != nil {
		return 0, err
	}
	on, err := d.isOn()
	if err != nil {
		return 0, err
	}
	if !on {
		return 0, nil
	}
	resp, err := d.query("PP?")
	if err != nil {
		return 0, err
	}
	raw, err := DecodePower(resp)
	if err != nil {
		return 0, err
	}
	return maxMW * float64(raw) / powerFullScale, nil
}

func (d *Deepstar) SetPowerMilliwatts(mW float64) error {
	if err := checkPower(mW); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	maxMW, err := d.maxPower()
	if err != nil {
		return err
	}
	mW = clamp(mW, maxMW)
	d.setPoint.Store(mW)

	level := 0.0
	if maxMW > 0 {
		level = mW / maxMW
	}
	cmd := EncodePower(level)
	d.infof("Setting laser power to %.4fmW (%s)", mW, cmd)
	resp, err := d.query(cmd)
	if err != nil {
		return err
	}
	d.debugf("Power response [%s]", resp)
	return nil
}

func (d *Deepstar) Status() (StatusReport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status()
}

func (d *Deepstar) status() (StatusReport, error) {
	report := make(StatusReport, 0, 4)
	for i := 0; i < 4; i++ {
		cmd := fmt.Sprintf("STAT%d", i)
		resp, err := d.query(cmd)
		if err != nil {
			return nil, err
		}
		report = append(report, StatusEntry{Label: cmd, Value: resp})
	}
	return report, nil
}
