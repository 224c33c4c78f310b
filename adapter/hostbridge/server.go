// Package hostbridge serves the module to a host over newline-delimited
// JSON frames.
package hostbridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/snapyr/snapyr-bridge/internal/bridge/gateway"
	"github.com/snapyr/snapyr-bridge/internal/bridge/sdk"
	"github.com/snapyr/snapyr-bridge/internal/shared/infrastructure/eventbus"
	"github.com/snapyr/snapyr-bridge/pkg/observability"
)

const maxFrameSize = 1 << 20

var (
	ErrUnknownFrame      = errors.New("hostbridge: unknown frame type")
	ErrUnknownHostEvent  = errors.New("hostbridge: unknown host event")
	ErrSimulatorDisabled = errors.New("hostbridge: sdk frames require the simulator")
	ErrInAppNotDelivered = errors.New("hostbridge: no active sdk client accepted the in-app message")
)

// Module is the part of the bridge module the server drives.
type Module interface {
	Dispatch(ctx context.Context, call gateway.Call) *gateway.Promise
	OnHostResume(ctx context.Context, ui sdk.UIContext)
	OnHostPause(ctx context.Context)
	OnHostDestroy(ctx context.Context)
}

// InAppEmitter injects in-app messages into the SDK. Only the simulator
// implements it.
type InAppEmitter interface {
	EmitInAppMessage(ctx context.Context, msg sdk.InAppMessage) bool
}

// Server reads frames from the host and writes results and events back.
// Results are written in call order.
type Server struct {
	module  Module
	emitter InAppEmitter
	logger  *slog.Logger

	mu  sync.Mutex
	enc *json.Encoder
}

// NewServer creates a server for module.
func NewServer(module Module, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{module: module, logger: logger.With("component", "hostbridge")}
}

// WithEmitter enables sdk frames.
func (s *Server) WithEmitter(e InAppEmitter) *Server {
	s.emitter = e
	return s
}

// Listener returns an event listener that writes every host event as an
// event frame. Events published before Serve starts are dropped.
func (s *Server) Listener() eventbus.Listener {
	return eventbus.ListenerFunc(func(ctx context.Context, event *eventbus.HostEvent) error {
		return s.write(EventFrame{
			Type:     FrameEvent,
			Name:     event.Name,
			Sequence: event.Sequence,
			Payload:  event.Payload,
		})
	})
}

type pending struct {
	id      string
	promise *gateway.Promise
}

// Serve processes frames from r until EOF or ctx ends, writing to w. It
// waits for every accepted call to settle before returning.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.mu.Lock()
	s.enc = json.NewEncoder(w)
	s.mu.Unlock()

	results := make(chan pending, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for p := range results {
			s.settle(ctx, p)
		}
	}()

	err := s.read(ctx, r, results)
	close(results)
	<-writerDone

	s.mu.Lock()
	s.enc = nil
	s.mu.Unlock()
	return err
}

func (s *Server) read(ctx context.Context, r io.Reader, results chan<- pending) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var frame Frame
		if err := json.Unmarshal(line, &frame); err != nil {
			s.logger.Warn("undecodable frame", "error", err)
			s.writeResult(rejected("", fmt.Errorf("hostbridge: malformed frame: %w", err)))
			continue
		}

		switch frame.Type {
		case FrameCall:
			callCtx := observability.WithCorrelationID(ctx, frame.ID)
			p := s.module.Dispatch(callCtx, gateway.Call{ID: frame.ID, Method: frame.Method, Args: frame.Args})
			select {
			case results <- pending{id: frame.ID, promise: p}:
			case <-ctx.Done():
				return ctx.Err()
			}
		case FrameHost:
			if err := s.host(ctx, frame); err != nil {
				s.writeResult(rejected(frame.ID, err))
			}
		case FrameSDK:
			if err := s.inject(ctx, frame); err != nil {
				s.writeResult(rejected(frame.ID, err))
			}
		default:
			s.writeResult(rejected(frame.ID, fmt.Errorf("%w: %q", ErrUnknownFrame, frame.Type)))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("hostbridge: read: %w", err)
	}
	return nil
}

func (s *Server) host(ctx context.Context, frame Frame) error {
	switch frame.Event {
	case HostResume:
		var ui sdk.UIContext
		if frame.UIContext != "" {
			ui = sdk.NamedUIContext(frame.UIContext)
		}
		s.module.OnHostResume(ctx, ui)
	case HostPause:
		s.module.OnHostPause(ctx)
	case HostDestroy:
		s.module.OnHostDestroy(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownHostEvent, frame.Event)
	}
	s.logger.Debug("host lifecycle", "event", frame.Event, "ui_context", frame.UIContext)
	return nil
}

func (s *Server) inject(ctx context.Context, frame Frame) error {
	if s.emitter == nil {
		return ErrSimulatorDisabled
	}
	if frame.InAppMessage == nil {
		return fmt.Errorf("%w: inAppMessage is required", ErrUnknownFrame)
	}
	if !s.emitter.EmitInAppMessage(ctx, *frame.InAppMessage) {
		return ErrInAppNotDelivered
	}
	return nil
}

func (s *Server) settle(ctx context.Context, p pending) {
	value, err := p.promise.Await(ctx)
	if err != nil {
		s.writeResult(rejected(p.id, err))
		return
	}
	s.writeResult(resolved(p.id, value))
}

func (s *Server) writeResult(frame ResultFrame) {
	if err := s.write(frame); err != nil {
		s.logger.Error("failed to write result", "id", frame.ID, "error", err)
	}
}

func (s *Server) write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enc == nil {
		return nil
	}
	return s.enc.Encode(v)
}
