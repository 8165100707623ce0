package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Continuation runs after an operation's underlying outcome is decided.
// It receives that outcome and returns the outcome to report downstream,
// so a continuation can extend a successful write with follow-up work
// and fail the operation if that work fails.
type Continuation func(ctx context.Context, err error) error

// Operation is an in-flight write being applied by the host. The host
// settles it exactly once after the write is durable (or has failed);
// deferred continuations installed before settling then run in order and
// decide the final outcome observed by awaiters.
type Operation struct {
	id   string
	ctx  context.Context
	meta OperationMeta
	body json.RawMessage

	mu            sync.Mutex
	settled       bool
	continuations []Continuation

	done     chan struct{}
	finalErr error
}

func NewOperation(ctx context.Context, meta OperationMeta, body json.RawMessage) *Operation {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Operation{
		id:   uuid.NewString(),
		ctx:  ctx,
		meta: meta,
		body: body,
		done: make(chan struct{}),
	}
}

func (o *Operation) ID() string { return o.id }

func (o *Operation) Meta() OperationMeta { return o.meta }

func (o *Operation) Body() json.RawMessage { return o.body }

func (o *Operation) HasBody() bool { return len(o.body) > 0 }

func (o *Operation) Context() context.Context { return o.ctx }

// Defer installs a continuation to run after the operation settles.
// Installing after settle is a programming error and panics, matching
// the contract that cascades attach while the write is still in flight.
func (o *Operation) Defer(fn Continuation) {
	if o == nil || fn == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.settled {
		panic(fmt.Sprintf("core: operation %s already settled", o.id))
	}
	o.continuations = append(o.continuations, fn)
}

// Settle records the write's own outcome, runs the deferred
// continuations, and publishes the final outcome. Only the first call
// has any effect.
func (o *Operation) Settle(err error) {
	if o == nil {
		return
	}
	o.mu.Lock()
	if o.settled {
		o.mu.Unlock()
		return
	}
	o.settled = true
	continuations := o.continuations
	o.continuations = nil
	o.mu.Unlock()

	final := err
	for _, fn := range continuations {
		final = fn(o.ctx, final)
	}

	o.mu.Lock()
	o.finalErr = final
	o.mu.Unlock()
	close(o.done)
}

// Done closes once the operation and all its continuations settled.
func (o *Operation) Done() <-chan struct{} { return o.done }

// Wait blocks for the final outcome, or for ctx.
func (o *Operation) Wait(ctx context.Context) error {
	if o == nil {
		return fmt.Errorf("core: operation is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-o.done:
		return o.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the final outcome. Only meaningful after Done.
func (o *Operation) Err() error {
	if o == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.finalErr
}
