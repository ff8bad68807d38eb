package driver

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	dsModels "github.com/edgexfoundry/device-sdk-go/v4/pkg/models"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/common"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/models"
	"github.com/linjuya-lu/device_laser_go/internal/config"
	"github.com/linjuya-lu/device_laser_go/internal/serial"
	"github.com/linjuya-lu/device_laser_go/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// simChannel 模拟一台最大 100 mW 的 cobolt 或最大 200 mW 的 deepstar
type simChannel struct {
	mu     sync.Mutex
	name   string
	on     bool
	watts  float64
	last   string
	closed bool
	log    []string

	// 以 slowPrefix 开头的命令写入时阻塞 slowDelay，启动 goroutine 前设置
	slowPrefix string
	slowDelay  time.Duration
}

func (c *simChannel) Name() string { return c.name }

func (c *simChannel) Write(command string) (int, error) {
	cmd := strings.TrimSpace(command)
	c.mu.Lock()
	c.last = cmd
	c.log = append(c.log, cmd)
	c.mu.Unlock()

	if c.slowPrefix != "" && strings.HasPrefix(cmd, c.slowPrefix) {
		time.Sleep(c.slowDelay)
	}
	return len(command) + 2, nil
}

func (c *simChannel) sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.log...)
}

func (c *simChannel) ReadLine() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cmd := c.last
	c.last = ""
	switch {
	case cmd == "l1", cmd == "LON":
		c.on = true
	case cmd == "l0", cmd == "LF":
		c.on = false
	case cmd == "l?":
		if c.on {
			return "1", nil
		}
		return "0", nil
	case cmd == "S?":
		if c.on {
			return "S2", nil
		}
		return "S0", nil
	case cmd == "gmlp?":
		return "100", nil
	case cmd == "STAT0":
		return "DS 1 200", nil
	case cmd == "pa?":
		return fmt.Sprintf("%.4f", c.watts), nil
	case strings.HasPrefix(cmd, "@cobasp "):
		c.watts, _ = strconv.ParseFloat(strings.TrimPrefix(cmd, "@cobasp "), 64)
	case cmd == "":
		return "", nil
	}
	return "OK", nil
}

func (c *simChannel) FlushInput() error { return nil }

func (c *simChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func newTestDriver(t *testing.T) (*LaserDriver, map[string]*simChannel) {
	t.Helper()
	cfg := &config.Config{
		LaserServer: config.Server{Supported: []string{"cobolt", "deepstar"}},
		Lasers: []config.Laser{
			{Name: "cobolt561", Driver: "cobolt", ComPort: "/dev/ttyUSB0", Baud: 115200, Timeout: 1},
			{Name: "deepstar488", Driver: "deepstar", ComPort: "/dev/ttyUSB1", Baud: 9600, Timeout: 1},
		},
	}
	channels := map[string]*simChannel{}
	open := func(l config.Laser) (serial.Channel, error) {
		ch := &simChannel{name: l.ComPort}
		channels[l.Name] = ch
		return ch, nil
	}
	lc := logger.NewMockClient()
	srv := server.New(cfg, lc, server.WithOpener(open))
	require.NoError(t, srv.Start())
	return &LaserDriver{lc: lc, srv: srv}, channels
}

func boolParam(t *testing.T, resource string, v bool) *dsModels.CommandValue {
	t.Helper()
	cv, err := dsModels.NewCommandValue(resource, common.ValueTypeBool, v)
	require.NoError(t, err)
	return cv
}

func TestHandleWriteThenRead(t *testing.T) {
	d, _ := newTestDriver(t)

	power, err := dsModels.NewCommandValue(ResourceSetPower, common.ValueTypeFloat64, 150.0)
	require.NoError(t, err)
	reqs := []dsModels.CommandRequest{
		{DeviceResourceName: ResourceSetPower, Type: common.ValueTypeFloat64},
		{DeviceResourceName: ResourceEnabled, Type: common.ValueTypeBool},
	}
	err = d.HandleWriteCommands("cobolt561", nil, reqs, []*dsModels.CommandValue{power, boolParam(t, ResourceEnabled, true)})
	require.NoError(t, err)

	reads := []dsModels.CommandRequest{
		{DeviceResourceName: ResourceEnabled, Type: common.ValueTypeBool},
		{DeviceResourceName: ResourceSetPower, Type: common.ValueTypeFloat64},
		{DeviceResourceName: ResourcePower, Type: common.ValueTypeFloat64},
		{DeviceResourceName: ResourceMaxPower, Type: common.ValueTypeFloat64},
		{DeviceResourceName: ResourceStatus, Type: common.ValueTypeStringArray},
	}
	res, err := d.HandleReadCommands("cobolt561", nil, reads)
	require.NoError(t, err)
	require.Len(t, res, 5)

	on, err := res[0].BoolValue()
	require.NoError(t, err)
	assert.True(t, on)

	sp, err := res[1].Float64Value()
	require.NoError(t, err)
	assert.Equal(t, 100.0, sp, "set point is clamped to max power")

	mW, err := res[2].Float64Value()
	require.NoError(t, err)
	assert.InDelta(t, 100.0, mW, 1e-9)

	status, err := res[4].StringArrayValue()
	require.NoError(t, err)
	assert.Len(t, status, 5)
}

func TestHandleWrite_Disable(t *testing.T) {
	d, channels := newTestDriver(t)
	require.NoError(t, d.HandleWriteCommands("deepstar488", nil,
		[]dsModels.CommandRequest{{DeviceResourceName: ResourceEnabled}},
		[]*dsModels.CommandValue{boolParam(t, ResourceEnabled, true)}))
	assert.True(t, channels["deepstar488"].on)

	require.NoError(t, d.HandleWriteCommands("deepstar488", nil,
		[]dsModels.CommandRequest{{DeviceResourceName: ResourceEnabled}},
		[]*dsModels.CommandValue{boolParam(t, ResourceEnabled, false)}))
	assert.False(t, channels["deepstar488"].on)
}

func TestHandleWrite_ClearFaultUnsupported(t *testing.T) {
	d, _ := newTestDriver(t)

	err := d.HandleWriteCommands("deepstar488", nil,
		[]dsModels.CommandRequest{{DeviceResourceName: ResourceClearFault}},
		[]*dsModels.CommandValue{boolParam(t, ResourceClearFault, true)})
	require.Error(t, err)
	assert.Equal(t, errors.KindNotImplemented, errors.Kind(err))

	err = d.HandleWriteCommands("cobolt561", nil,
		[]dsModels.CommandRequest{{DeviceResourceName: ResourceClearFault}},
		[]*dsModels.CommandValue{boolParam(t, ResourceClearFault, true)})
	assert.NoError(t, err)
}

func TestUnknownDeviceAndResource(t *testing.T) {
	d, _ := newTestDriver(t)

	_, err := d.HandleReadCommands("omicron", nil, []dsModels.CommandRequest{{DeviceResourceName: ResourcePower}})
	assert.Equal(t, errors.KindEntityDoesNotExist, errors.Kind(err))

	_, err = d.HandleReadCommands("cobolt561", nil, []dsModels.CommandRequest{{DeviceResourceName: "Wavelength"}})
	assert.Equal(t, errors.KindNotImplemented, errors.Kind(err))

	assert.Error(t, d.ValidateDevice(models.Device{Name: "omicron"}))
	assert.NoError(t, d.ValidateDevice(models.Device{Name: "deepstar488"}))
}

func TestStop_DisablesAndReleases(t *testing.T) {
	d, channels := newTestDriver(t)
	require.NoError(t, d.HandleWriteCommands("cobolt561", nil,
		[]dsModels.CommandRequest{{DeviceResourceName: ResourceEnabled}},
		[]*dsModels.CommandValue{boolParam(t, ResourceEnabled, true)}))

	require.NoError(t, d.Stop(false))
	for name, ch := range channels {
		assert.False(t, ch.on, name)
		assert.True(t, ch.closed, name)
	}

	_, err := d.HandleReadCommands("cobolt561", nil, []dsModels.CommandRequest{{DeviceResourceName: ResourceEnabled}})
	assert.Error(t, err, "no calls are accepted after stop")
}

func TestStop_WaitsForRunningWrite(t *testing.T) {
	d, channels := newTestDriver(t)
	ch := channels["cobolt561"]
	ch.slowPrefix = "@cobasp"
	ch.slowDelay = 100 * time.Millisecond

	power, err := dsModels.NewCommandValue(ResourceSetPower, common.ValueTypeFloat64, 50.0)
	require.NoError(t, err)
	reqs := []dsModels.CommandRequest{
		{DeviceResourceName: ResourceSetPower},
		{DeviceResourceName: ResourceEnabled},
	}
	params := []*dsModels.CommandValue{power, boolParam(t, ResourceEnabled, true)}

	done := make(chan error, 1)
	go func() {
		done <- d.HandleWriteCommands("cobolt561", nil, reqs, params)
	}()

	require.Eventually(t, func() bool {
		for _, cmd := range ch.sent() {
			if strings.HasPrefix(cmd, "@cobasp") {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, d.Stop(false))
	require.NoError(t, <-done)

	sent := ch.sent()
	assert.Equal(t, "l0", sent[len(sent)-1], "laser must be off when the driver stops")
	assert.False(t, ch.on)
	assert.True(t, ch.closed)

	err = d.HandleWriteCommands("cobolt561", nil, reqs[1:], params[1:])
	assert.Equal(t, errors.KindServiceUnavailable, errors.Kind(err))
}
