package gateway

import (
	"context"
	"sync"
)

// Promise is the completion handle of a command. It settles exactly once;
// later Resolve or Reject calls are ignored.
type Promise struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

// NewPromise creates an unsettled promise.
func NewPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

// Resolve settles the promise with v. It reports whether this call settled it.
func (p *Promise) Resolve(v any) bool {
	return p.settle(v, nil)
}

// Reject settles the promise with err. It reports whether this call settled it.
func (p *Promise) Reject(err error) bool {
	return p.settle(nil, err)
}

func (p *Promise) settle(v any, err error) bool {
	settled := false
	p.once.Do(func() {
		p.value, p.err = v, err
		settled = true
		close(p.done)
	})
	return settled
}

// Done is closed once the promise settles.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Await blocks until the promise settles or ctx ends.
func (p *Promise) Await(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the settled value without blocking. ok is false while
// the promise is pending.
func (p *Promise) Result() (value any, err error, ok bool) {
	select {
	case <-p.done:
		return p.value, p.err, true
	default:
		return nil, nil, false
	}
}
