package mqtt

import (
	"github.com/edgexfoundry/go-mod-core-contracts/v4/common"
	"github.com/google/uuid"
)

const apiVersion = common.ApiVersion

// Request 是远程调用请求：一次请求对应设备上的一次同步方法调用
type Request struct {
	ApiVersion    string   `json:"apiVersion"`
	CorrelationID string   `json:"correlationID"`
	RequestID     string   `json:"requestID"`
	Method        string   `json:"method"`
	Value         *float64 `json:"value,omitempty"`
}

// Response 沿用 EdgeX MessageBus 的通用消息格式
type Response struct {
	ApiVersion    string      `json:"apiVersion"`
	ReceivedTopic string      `json:"receivedTopic,omitempty"`
	CorrelationID string      `json:"correlationID"`
	RequestID     string      `json:"requestID"`
	ErrorCode     int         `json:"errorCode"`
	Error         string      `json:"error,omitempty"`
	Payload       interface{} `json:"payload,omitempty"`
	ContentType   string      `json:"contentType"`
}

func newResponse(topic string, req Request) Response {
	resp := Response{
		ApiVersion:    apiVersion,
		ReceivedTopic: topic,
		CorrelationID: req.CorrelationID,
		RequestID:     uuid.NewString(),
		ContentType:   common.ContentTypeJSON,
	}
	if resp.CorrelationID == "" {
		resp.CorrelationID = req.RequestID
	}
	if resp.CorrelationID == "" {
		resp.CorrelationID = uuid.NewString()
	}
	return resp
}
