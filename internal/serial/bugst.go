package serial

import (
	"fmt"
	"time"

	gobug "go.bug.st/serial"
)

// 测试中可替换
var bugstOpen = func(name string, mode *gobug.Mode) (gobug.Port, error) { return gobug.Open(name, mode) }

// bugstPort 把 go.bug.st/serial 的 Port 适配为 Port
type bugstPort struct {
	gobug.Port
}

// Flush 丢弃输入缓冲
func (p bugstPort) Flush() error {
	return p.ResetInputBuffer()
}

func openBugst(name string, baud int, timeout time.Duration) (Port, error) {
	mode := &gobug.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   gobug.NoParity,
		StopBits: gobug.OneStopBit,
	}
	p, err := bugstOpen(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s failed: %w", name, err)
	}
	if err := p.SetReadTimeout(timeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	return bugstPort{p}, nil
}
