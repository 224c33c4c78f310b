package observability

import (
	"context"

	"github.com/google/uuid"
)

// Attribute keys shared by logs and metric tags.
const (
	CorrelationIDKey = "correlation_id"
	CommandIDKey     = "command_id"
	CommandKey       = "command"
	DurationKey      = "duration_ms"
	ErrorKey         = "error"
	StatusKey        = "status"
)

type ctxKey int

const (
	correlationIDKey ctxKey = iota
	commandIDKey
	commandKey
)

// WithCorrelationID tags ctx with the id of the host session or CLI
// invocation. An empty id is replaced with a new UUID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, orNewID(id))
}

// CorrelationIDFromContext returns the correlation id, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	return stringValue(ctx, correlationIDKey)
}

// WithCommandID tags ctx with the host's id for one command. An empty id
// is replaced with a new UUID.
func WithCommandID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, commandIDKey, orNewID(id))
}

// CommandIDFromContext returns the command id, or "".
func CommandIDFromContext(ctx context.Context) string {
	return stringValue(ctx, commandIDKey)
}

// WithCommand tags ctx with the command name.
func WithCommand(ctx context.Context, command string) context.Context {
	return context.WithValue(ctx, commandKey, command)
}

// CommandFromContext returns the command name, or "".
func CommandFromContext(ctx context.Context) string {
	return stringValue(ctx, commandKey)
}

func orNewID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
