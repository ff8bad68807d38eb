// Package mqtt 把已发布的激光器暴露为 MQTT 请求/应答式远程调用。
// 设备 <name> 在 <prefix>/<name>/request 上接收请求，在 <prefix>/<name>/response 上应答。
package mqtt

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
	"github.com/linjuya-lu/device_laser_go/internal/laser"
)

// Messenger 是网关用到的 MQTT 能力，*Client 实现它
type Messenger interface {
	Subscribe(topic string, handler func([]byte)) error
	Unsubscribe(topics ...string) error
	Publish(topic string, v interface{}) error
	Disconnect(quiesce uint)
}

// Gateway 把远程请求一对一地分派到设备方法上
type Gateway struct {
	m      Messenger
	prefix string
	lc     logger.LoggingClient

	mu       sync.RWMutex
	closed   bool
	names    map[string]struct{}
	topics   []string
	inflight sync.WaitGroup
}

func NewGateway(m Messenger, prefix string, lc logger.LoggingClient) *Gateway {
	return &Gateway{
		m:      m,
		prefix: prefix,
		lc:     lc,
		names:  make(map[string]struct{}),
	}
}

// RequestTopic 返回设备的请求主题
func (g *Gateway) RequestTopic(name string) string {
	return fmt.Sprintf("%s/%s/request", g.prefix, name)
}

// ResponseTopic 返回设备的应答主题
func (g *Gateway) ResponseTopic(name string) string {
	return fmt.Sprintf("%s/%s/response", g.prefix, name)
}

// Publish 以 name 发布设备；同名重复发布是配置错误
func (g *Gateway) Publish(name string, dev laser.Device) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return errors.NewCommonEdgeX(errors.KindServiceUnavailable, "gateway stopped", nil)
	}
	if _, dup := g.names[name]; dup {
		g.mu.Unlock()
		return errors.NewCommonEdgeX(errors.KindDuplicateName, fmt.Sprintf("name %s already published", name), nil)
	}
	g.names[name] = struct{}{}
	g.mu.Unlock()

	topic := g.RequestTopic(name)
	if err := g.m.Subscribe(topic, func(payload []byte) { g.handle(name, dev, payload) }); err != nil {
		g.mu.Lock()
		delete(g.names, name)
		g.mu.Unlock()
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	g.mu.Lock()
	g.topics = append(g.topics, topic)
	g.mu.Unlock()
	g.lc.Infof("laser %s listening on %s", name, topic)
	return nil
}

func (g *Gateway) handle(name string, dev laser.Device, payload []byte) {
	topic := g.RequestTopic(name)

	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		g.lc.Errorf("bad request on %s: %v", topic, err)
		resp := newResponse(topic, req)
		resp.ErrorCode = http.StatusBadRequest
		resp.Error = err.Error()
		g.reply(name, resp)
		return
	}
	resp := newResponse(topic, req)

	g.mu.RLock()
	if g.closed {
		g.mu.RUnlock()
		resp.ErrorCode = http.StatusServiceUnavailable
		resp.Error = "gateway stopped"
		g.reply(name, resp)
		return
	}
	g.inflight.Add(1)
	g.mu.RUnlock()
	defer g.inflight.Done()

	g.lc.Debugf("laser %s: %s", name, req.Method)
	result, err := Dispatch(dev, req)
	if err != nil {
		e := errors.NewCommonEdgeXWrapper(err)
		g.lc.Errorf("laser %s: %s failed: %v", name, req.Method, err)
		resp.ErrorCode = e.Code()
		resp.Error = e.Error()
	} else {
		resp.Payload = result
	}
	g.reply(name, resp)
}

func (g *Gateway) reply(name string, resp Response) {
	if err := g.m.Publish(g.ResponseTopic(name), resp); err != nil {
		g.lc.Errorf("publish response for %s: %v", name, err)
	}
}

// Stop 不再接受新的调用，等待进行中的调用完成后断开连接
func (g *Gateway) Stop() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	topics := g.topics
	g.mu.Unlock()

	var err error
	if len(topics) > 0 {
		err = g.m.Unsubscribe(topics...)
	}
	g.inflight.Wait()
	g.m.Disconnect(250)
	return err
}
