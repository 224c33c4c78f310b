package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/snapyr/snapyr-bridge/internal/bridge/domain"
	"github.com/snapyr/snapyr-bridge/pkg/observability"
)

// Call is a host command as it arrives on the wire: a method name with
// positional JSON arguments.
type Call struct {
	ID     string            `json:"id"`
	Method string            `json:"method"`
	Args   []json.RawMessage `json:"args"`
}

// Dispatch coerces the arguments of call and submits the matching command.
// A coercion failure or unknown method is still queued so its rejection
// keeps submission order, and for commands that need a configured SDK the
// not-configured check runs before the coercion error is reported.
func (g *Gateway) Dispatch(ctx context.Context, call Call) *Promise {
	if ctx == nil {
		ctx = context.Background()
	}
	if call.ID != "" {
		ctx = observability.WithCommandID(ctx, call.ID)
	}

	p, err := g.dispatch(ctx, call)
	if err != nil {
		return g.submit(ctx, call.Method, needsConfiguredSDK(call.Method), func(context.Context) (any, error) {
			return nil, domain.NewCommandError(call.Method, domain.KindExecution, err)
		})
	}
	return p
}

func (g *Gateway) dispatch(ctx context.Context, call Call) (p *Promise, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, &domain.PanicError{Value: r}
		}
	}()

	args := arguments(call.Args)
	switch call.Method {
	case CommandConfigure:
		apiKey, err := args.str(0, "apiKey")
		if err != nil {
			return nil, err
		}
		options, err := args.object(1, "options")
		if err != nil {
			return nil, err
		}
		return g.Configure(ctx, apiKey, options), nil

	case CommandIdentify:
		userID, err := args.str(0, "userId")
		if err != nil {
			return nil, err
		}
		traits, err := args.object(1, "traits")
		if err != nil {
			return nil, err
		}
		return g.Identify(ctx, userID, traits), nil

	case CommandTrack:
		event, err := args.str(0, "eventName")
		if err != nil {
			return nil, err
		}
		props, err := args.object(1, "properties")
		if err != nil {
			return nil, err
		}
		return g.Track(ctx, event, props), nil

	case CommandSetPushNotificationToken:
		token, err := args.str(0, "token")
		if err != nil {
			return nil, err
		}
		return g.SetPushNotificationToken(ctx, token), nil

	case CommandPushNotificationReceived:
		props, err := args.object(0, "properties")
		if err != nil {
			return nil, err
		}
		return g.PushNotificationReceived(ctx, props), nil

	case CommandPushNotificationTapped:
		props, err := args.object(0, "properties")
		if err != nil {
			return nil, err
		}
		actionID, err := args.str(1, "actionId")
		if err != nil {
			return nil, err
		}
		return g.PushNotificationTapped(ctx, props, actionID), nil

	case CommandReset:
		return g.Reset(ctx), nil

	case CommandAddListener:
		name, err := args.str(0, "eventName")
		if err != nil {
			return nil, err
		}
		return g.AddListener(ctx, name), nil

	case CommandRemoveListeners:
		count, err := args.integer(0, "count")
		if err != nil {
			return nil, err
		}
		return g.RemoveListeners(ctx, count), nil
	}

	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCommand, call.Method)
}

type arguments []json.RawMessage

// at returns the raw argument at i, or nil when it is missing or JSON null.
func (a arguments) at(i int) json.RawMessage {
	if i >= len(a) {
		return nil
	}
	raw := bytes.TrimSpace(a[i])
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return raw
}

// str reads a string argument. Missing and null arguments read as "" and
// are passed on, so the SDK decides whether an empty value is acceptable.
func (a arguments) str(i int, name string) (string, error) {
	raw := a.at(i)
	if raw == nil {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %s must be a string", domain.ErrInvalidArgument, name)
	}
	return s, nil
}

func (a arguments) object(i int, name string) (map[string]any, error) {
	raw := a.at(i)
	if raw == nil {
		return nil, nil
	}
	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %s must be an object", domain.ErrInvalidArgument, name)
	}
	if err := normalizeNumbers(m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidArgument, name, err)
	}
	return m, nil
}

func (a arguments) integer(i int, name string) (int, error) {
	raw := a.at(i)
	if raw == nil {
		return 0, fmt.Errorf("%w: %s is required", domain.ErrInvalidArgument, name)
	}
	notInt := fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidArgument, name)
	var n json.Number
	if raw[0] == '"' || json.Unmarshal(raw, &n) != nil {
		return 0, notInt
	}
	if v, err := n.Int64(); err == nil {
		if v < math.MinInt || v > math.MaxInt {
			return 0, fmt.Errorf("%w: %s out of range", domain.ErrInvalidArgument, name)
		}
		return int(v), nil
	}
	f, err := n.Float64()
	if err != nil || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %s out of range", domain.ErrInvalidArgument, name)
	}
	if f != math.Trunc(f) || float64(int(f)) != f {
		return 0, notInt
	}
	return int(f), nil
}

// normalizeNumbers replaces json.Number in place with int64 when integral
// and float64 otherwise, so option parsing and the SDK see plain Go
// numbers. Numbers that do not fit a float64 are rejected.
func normalizeNumbers(v any) error {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			n, err := normalizeNumber(e)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			t[k] = n
		}
	case []any:
		for i, e := range t {
			n, err := normalizeNumber(e)
			if err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
			t[i] = n
		}
	}
	return nil
}

func normalizeNumber(v any) (any, error) {
	n, ok := v.(json.Number)
	if !ok {
		return v, normalizeNumbers(v)
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("number %s out of range", n)
	}
	return f, nil
}
