package sdk

import (
	"encoding/json"
	"time"
)

// ActionType is the kind of in-app action the SDK reports.
type ActionType string

const (
	ActionTypeCustom  ActionType = "custom"
	ActionTypeOverlay ActionType = "overlay"
)

// PayloadType describes how an in-app message payload is encoded.
type PayloadType string

const (
	PayloadTypeJSON PayloadType = "json"
	PayloadTypeHTML PayloadType = "html"
)

// InAppContent is the body of an in-app message.
type InAppContent struct {
	PayloadType PayloadType `json:"payloadType"`
	Payload     string      `json:"payload"`
}

// InAppMessage is produced by the SDK when an in-app action fires.
type InAppMessage struct {
	Timestamp   time.Time    `json:"timestamp"`
	ActionType  ActionType   `json:"actionType"`
	UserID      string       `json:"userId"`
	ActionToken string       `json:"actionToken"`
	Content     InAppContent `json:"content"`
}

// AsValueMap converts the message into a generic key-value mapping.
// JSON payloads that decode to an object are expanded; everything else
// is passed through as the raw string.
func (m InAppMessage) AsValueMap() map[string]any {
	content := map[string]any{
		"payloadType": string(m.Content.PayloadType),
		"payload":     m.Content.Payload,
	}
	if m.Content.PayloadType == PayloadTypeJSON && m.Content.Payload != "" {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(m.Content.Payload), &decoded); err == nil {
			content["payload"] = decoded
		}
	}

	return map[string]any{
		"timestamp":   m.Timestamp.UTC().Format(time.RFC3339Nano),
		"actionType":  string(m.ActionType),
		"userId":      m.UserID,
		"actionToken": m.ActionToken,
		"content":     content,
	}
}
