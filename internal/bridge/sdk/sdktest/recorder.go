// Package sdktest provides a recording fake of the Snapyr SDK for tests.
package sdktest

import (
	"context"
	"sync"

	"github.com/snapyr/snapyr-bridge/internal/bridge/sdk"
)

// Method names recorded by Client.
const (
	MethodIdentify                 = "identify"
	MethodTrack                    = "track"
	MethodSetPushNotificationToken = "setPushNotificationToken"
	MethodPushNotificationReceived = "pushNotificationReceived"
	MethodPushNotificationClicked  = "pushNotificationClicked"
	MethodShutdown                 = "shutdown"
	MethodLifecycleCreated         = "lifecycle.created"
	MethodLifecycleStarted         = "lifecycle.started"
	MethodLifecycleResumed         = "lifecycle.resumed"
)

// Call is one recorded SDK invocation.
type Call struct {
	Method     string
	UserID     string
	Event      string
	Token      string
	ActionID   string
	UIContext  string
	Traits     sdk.Traits
	Properties sdk.Properties
}

// Client records every call made to it.
type Client struct {
	mu      sync.Mutex
	opts    sdk.Options
	calls   []Call
	errs    map[string]error
	panics  map[string]any
	stopped bool
}

// NewClient creates a recording client for the given options.
func NewClient(opts sdk.Options) *Client {
	return &Client{
		opts:   opts,
		errs:   make(map[string]error),
		panics: make(map[string]any),
	}
}

// FailWith makes method return err from now on.
func (c *Client) FailWith(method string, err error) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[method] = err
	return c
}

// PanicWith makes method panic with v from now on.
func (c *Client) PanicWith(method string, v any) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panics[method] = v
	return c
}

// Options returns the options the client was built with.
func (c *Client) Options() sdk.Options {
	return c.opts
}

// Calls returns a copy of the recorded calls.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// Methods returns the recorded method names in call order.
func (c *Client) Methods() []string {
	calls := c.Calls()
	out := make([]string, len(calls))
	for i, call := range calls {
		out[i] = call.Method
	}
	return out
}

// CountOf returns how many times method was called.
func (c *Client) CountOf(method string) int {
	n := 0
	for _, call := range c.Calls() {
		if call.Method == method {
			n++
		}
	}
	return n
}

// IsShutdown reports whether Shutdown was called.
func (c *Client) IsShutdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// TriggerInAppMessage sends msg on the registered in-app endpoint,
// the way the SDK does from its own goroutine.
func (c *Client) TriggerInAppMessage(msg sdk.InAppMessage) bool {
	if c.opts.InAppMessages == nil {
		return false
	}
	c.opts.InAppMessages <- msg
	return true
}

func (c *Client) record(call Call) error {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	err := c.errs[call.Method]
	p, shouldPanic := c.panics[call.Method]
	c.mu.Unlock()

	if shouldPanic {
		panic(p)
	}
	return err
}

func (c *Client) Identify(ctx context.Context, userID string, traits sdk.Traits) error {
	return c.record(Call{Method: MethodIdentify, UserID: userID, Traits: traits})
}

func (c *Client) Track(ctx context.Context, event string, props sdk.Properties) error {
	return c.record(Call{Method: MethodTrack, Event: event, Properties: props})
}

func (c *Client) SetPushNotificationToken(ctx context.Context, token string) error {
	return c.record(Call{Method: MethodSetPushNotificationToken, Token: token})
}

func (c *Client) PushNotificationReceived(ctx context.Context, props sdk.Properties) error {
	return c.record(Call{Method: MethodPushNotificationReceived, Properties: props})
}

func (c *Client) PushNotificationClicked(ctx context.Context, props sdk.Properties, actionID string) error {
	return c.record(Call{Method: MethodPushNotificationClicked, Properties: props, ActionID: actionID})
}

func (c *Client) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	return c.record(Call{Method: MethodShutdown})
}

func (c *Client) ReplayLifecycleOnCreated(ui sdk.UIContext) {
	_ = c.record(Call{Method: MethodLifecycleCreated, UIContext: uiID(ui)})
}

func (c *Client) ReplayLifecycleOnStarted(ui sdk.UIContext) {
	_ = c.record(Call{Method: MethodLifecycleStarted, UIContext: uiID(ui)})
}

func (c *Client) ReplayLifecycleOnResumed(ui sdk.UIContext) {
	_ = c.record(Call{Method: MethodLifecycleResumed, UIContext: uiID(ui)})
}

func uiID(ui sdk.UIContext) string {
	if ui == nil {
		return ""
	}
	return ui.ID()
}

// Factory builds recording clients and remembers each one.
type Factory struct {
	mu      sync.Mutex
	clients []*Client
	err     error
	panicV  any
}

// NewFactory creates a factory that builds recording clients.
func NewFactory() *Factory {
	return &Factory{}
}

// FailWith makes New return err.
func (f *Factory) FailWith(err error) *Factory {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
	return f
}

// PanicWith makes New panic with v.
func (f *Factory) PanicWith(v any) *Factory {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panicV = v
	return f
}

// New implements sdk.Factory.
func (f *Factory) New(ctx context.Context, opts sdk.Options) (sdk.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicV != nil {
		panic(f.panicV)
	}
	if f.err != nil {
		return nil, f.err
	}
	client := NewClient(opts)
	f.clients = append(f.clients, client)
	return client, nil
}

// Clients returns every client built so far.
func (f *Factory) Clients() []*Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Client, len(f.clients))
	copy(out, f.clients)
	return out
}

// Last returns the most recently built client, or nil.
func (f *Factory) Last() *Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.clients) == 0 {
		return nil
	}
	return f.clients[len(f.clients)-1]
}
