package serial

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// openTarm 使用 github.com/tarm/serial 打开串口，*serial.Port 自带 Flush
func openTarm(name string, baud int, timeout time.Duration) (Port, error) {
	sc := &serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: timeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	}
	p, err := serial.OpenPort(sc)
	if err != nil {
		return nil, fmt.Errorf("open UART %s failed: %w", name, err)
	}
	return p, nil
}
