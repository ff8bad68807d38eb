package laser

import (
	"strings"
	"sync"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
)

// fakeChannel 记录线上收发，并检测一次收发未完成时是否有别的命令插入
type fakeChannel struct {
	mu          sync.Mutex
	name        string
	respond     func(command string) string
	raw         []string // 原样写入的命令（含补齐空格）
	commands    []string // 去掉补齐后的命令
	awaiting    bool
	interleaved bool
	flushes     int
	writeErr    error
	closed      bool
	delay       time.Duration
}

func newFakeChannel(respond func(string) string) *fakeChannel {
	return &fakeChannel{name: "/dev/ttyFAKE", respond: respond}
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Write(command string) (int, error) {
	f.mu.Lock()
	if f.writeErr != nil {
		f.mu.Unlock()
		return 0, errors.NewCommonEdgeX(errors.KindCommunicationError, "write "+command, f.writeErr)
	}
	if f.awaiting {
		f.interleaved = true
	}
	f.awaiting = true
	f.raw = append(f.raw, command)
	f.commands = append(f.commands, strings.TrimSpace(command))
	delay := f.delay
	f.mu.Unlock()

	// 拉长窗口，让没有加锁的实现暴露交错
	if delay > 0 {
		time.Sleep(delay)
	}
	return len(command) + 2, nil
}

func (f *fakeChannel) ReadLine() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.awaiting {
		return "", nil
	}
	f.awaiting = false
	return f.respond(f.commands[len(f.commands)-1]), nil
}

func (f *fakeChannel) FlushInput() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.awaiting {
		f.interleaved = true
	}
	f.flushes++
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func (f *fakeChannel) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw = nil
	f.commands = nil
	f.flushes = 0
}
