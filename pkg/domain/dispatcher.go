package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Handler processes one domain event.
type Handler interface {
	Handle(ctx context.Context, e Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, e Event) error

func (f HandlerFunc) Handle(ctx context.Context, e Event) error { return f(ctx, e) }

type typedHandler[T Event] func(ctx context.Context, e T) error

func (h typedHandler[T]) Handle(ctx context.Context, e Event) error {
	ev, ok := e.(T)
	if !ok {
		return fmt.Errorf("handler for %T received %T", *new(T), e)
	}
	return h(ctx, ev)
}

func (h typedHandler[T]) eventName() string {
	var zero T
	return zero.EventName()
}

// Dispatcher routes drained domain events to handlers registered per concrete
// event type. Registration happens at startup; dispatch is safe for
// concurrent use afterwards.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string][]Handler)}
}

// On registers fn for events of concrete type T. The zero value of T must
// report its event name, so T is a value type, not a pointer.
func On[T Event](d *Dispatcher, fn func(ctx context.Context, e T) error) {
	h := typedHandler[T](fn)
	d.mu.Lock()
	defer d.mu.Unlock()
	name := h.eventName()
	d.handlers[name] = append(d.handlers[name], h)
}

// DrainAndDispatch snapshots and clears the aggregate's buffer, then invokes
// every matching handler for every drained event concurrently. There is no
// ordering guarantee between handlers or between events. Any handler error
// fails the whole dispatch; handlers already started are not cancelled. This
// is at-most-once, in-process delivery with no retry and no persistence, so
// a failure here means local state changed but a side effect did not run,
// and the caller must see that.
func (d *Dispatcher) DrainAndDispatch(ctx context.Context, src Source) error {
	pending := src.Uncommitted()
	src.ClearUncommitted()
	if len(pending) == 0 {
		return nil
	}

	d.mu.RLock()
	type call struct {
		h Handler
		e Event
	}
	var calls []call
	for _, e := range pending {
		for _, h := range d.handlers[e.EventName()] {
			calls = append(calls, call{h: h, e: e})
		}
	}
	d.mu.RUnlock()

	var wg sync.WaitGroup
	errs := make([]error, len(calls))
	for i, c := range calls {
		wg.Add(1)
		go func(i int, c call) {
			defer wg.Done()
			errs[i] = c.h.Handle(ctx, c.e)
		}(i, c)
	}
	wg.Wait()
	return errors.Join(errs...)
}
