package hostbridge

import (
	"encoding/json"
	"errors"

	"github.com/snapyr/snapyr-bridge/internal/bridge/domain"
	"github.com/snapyr/snapyr-bridge/internal/bridge/sdk"
)

// Inbound frame types.
const (
	FrameCall = "call"
	FrameHost = "host"
	FrameSDK  = "sdk"
)

// Outbound frame types.
const (
	FrameResult = "result"
	FrameEvent  = "event"
)

// Host lifecycle notifications carried by host frames.
const (
	HostResume  = "resume"
	HostPause   = "pause"
	HostDestroy = "destroy"
)

// Frame is one inbound line.
type Frame struct {
	Type string `json:"type"`

	// call
	ID     string            `json:"id,omitempty"`
	Method string            `json:"method,omitempty"`
	Args   []json.RawMessage `json:"args,omitempty"`

	// host
	Event     string `json:"event,omitempty"`
	UIContext string `json:"uiContext,omitempty"`

	// sdk
	InAppMessage *sdk.InAppMessage `json:"inAppMessage,omitempty"`
}

// ResultFrame settles one call frame.
type ResultFrame struct {
	Type  string     `json:"type"`
	ID    string     `json:"id"`
	OK    bool       `json:"ok"`
	Value any        `json:"value,omitempty"`
	Error *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a rejected call.
type ErrorBody struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	Command string `json:"command,omitempty"`
}

// EventFrame carries one host event.
type EventFrame struct {
	Type     string          `json:"type"`
	Name     string          `json:"name"`
	Sequence uint64          `json:"sequence"`
	Payload  json.RawMessage `json:"payload"`
}

func resolved(id string, value any) ResultFrame {
	return ResultFrame{Type: FrameResult, ID: id, OK: true, Value: value}
}

func rejected(id string, err error) ResultFrame {
	body := &ErrorBody{Message: err.Error()}
	var cmdErr *domain.CommandError
	if errors.As(err, &cmdErr) {
		body.Kind = string(cmdErr.Kind)
		body.Command = cmdErr.Command
	}
	return ResultFrame{Type: FrameResult, ID: id, Error: body}
}
