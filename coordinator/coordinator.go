// Package coordinator keeps at most one live asynchronous operation per
// logical key. Issuing a new operation under a busy key supersedes the old
// one: the old operation may still finish, but it is never allowed to commit.
package coordinator

import (
	"context"
	"sync"

	"PinguinGuard/apperrors"
)

// Coordinator tracks the current operation of every key.
// The zero value is not usable; call New.
type Coordinator struct {
	mu      sync.Mutex
	current map[string]*operation
}

type operation struct {
	cancel context.CancelCauseFunc
}

func New() *Coordinator {
	return &Coordinator{current: make(map[string]*operation)}
}

// Do runs fetch under key and, if the operation is still the most recently
// issued one for that key when fetch returns, runs commit with its result.
//
// The context handed to fetch is cancelled with cause ErrStaleOperation when
// a newer operation is issued under the same key. Observing it is up to
// fetch: nothing is interrupted preemptively, but a superseded operation's
// commit never runs. Its caller gets back the value it fetched together with
// ErrStaleOperation, which is not meant to be shown to users.
//
// commit runs while the coordinator lock is held, so it must not call back
// into the coordinator. A nil commit is allowed.
func Do[T any](ctx context.Context, c *Coordinator, key string, fetch func(context.Context) (T, error), commit func(T)) (T, error) {
	opCtx, op := c.begin(ctx, key)
	defer op.cancel(nil)

	value, err := fetch(opCtx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current[key] != op {
		return value, apperrors.ErrStaleOperation
	}
	delete(c.current, key)

	if err != nil {
		return value, err
	}
	if commit != nil {
		commit(value)
	}
	return value, nil
}

func (c *Coordinator) begin(ctx context.Context, key string) (context.Context, *operation) {
	opCtx, cancel := context.WithCancelCause(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	op := &operation{cancel: cancel}
	if prior, ok := c.current[key]; ok {
		prior.cancel(apperrors.ErrStaleOperation)
	}
	c.current[key] = op
	return opCtx, op
}

// InFlight reports whether an operation is currently registered under key.
func (c *Coordinator) InFlight(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.current[key]
	return ok
}

// Cancel supersedes the operation under key without starting a new one.
// Its result, when it arrives, is discarded.
func (c *Coordinator) Cancel(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if op, ok := c.current[key]; ok {
		op.cancel(apperrors.ErrStaleOperation)
		delete(c.current, key)
	}
}

// Superseded reports whether ctx belongs to an operation that lost its key.
// Long-running fetches call it before doing expensive follow-up work.
func Superseded(ctx context.Context) bool {
	return context.Cause(ctx) == apperrors.ErrStaleOperation
}
