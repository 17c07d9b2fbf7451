// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/oops"
)

// ErrVetoed is matched with errors.Is on every rejection returned by Dispatch.
var ErrVetoed = errors.New("event vetoed")

// Listener handles an event. For vetoable dispatch a non-nil error rejects
// the pending transition; for reported events the error is only logged.
type Listener func(ctx context.Context, e Event) error

type registration struct {
	id       uint64
	listener Listener
}

// Bus delivers events synchronously on the calling goroutine, in
// subscription order.
//
// Bus is safe for concurrent use; listeners may subscribe or unsubscribe
// while other goroutines dispatch.
type Bus struct {
	logger    *slog.Logger
	listeners map[Type][]registration
	nextID    uint64
	mu        sync.RWMutex
}

// NewBus creates an event bus. A nil logger uses slog.Default.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger:    logger,
		listeners: make(map[Type][]registration),
	}
}

// Subscribe registers l for events of type t and returns a function that
// removes it again.
func (b *Bus) Subscribe(t Type, l Listener) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.listeners[t] = append(b.listeners[t], registration{id: id, listener: l})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		regs := b.listeners[t]
		for i, r := range regs {
			if r.id == id {
				b.listeners[t] = append(regs[:i:i], regs[i+1:]...)
				return
			}
		}
	}
}

// snapshot copies the listener list so delivery runs without the lock held.
func (b *Bus) snapshot(t Type) []registration {
	b.mu.RLock()
	defer b.mu.RUnlock()

	regs := b.listeners[t]
	out := make([]registration, len(regs))
	copy(out, regs)
	return out
}

// Dispatch delivers a vetoable event. Delivery stops at the first listener
// that rejects it and the rejection is returned wrapping ErrVetoed. A
// listener that panics counts as a rejection.
func (b *Bus) Dispatch(ctx context.Context, e Event) error {
	for _, r := range b.snapshot(e.Type) {
		if err := call(ctx, r.listener, e); err != nil {
			b.logger.DebugContext(ctx, "event vetoed",
				"event_type", string(e.Type),
				"event_id", e.ID.String(),
				"addon", e.Addon.Name,
				"reason", err)
			return oops.
				Code("EVENT_VETOED").
				With("event_type", string(e.Type)).
				With("addon", e.Addon.Name).
				Wrap(errors.Join(ErrVetoed, err))
		}
	}
	return nil
}

// Report delivers an event to every listener regardless of individual
// outcomes. Listener failures are logged and otherwise ignored.
func (b *Bus) Report(ctx context.Context, e Event) {
	for _, r := range b.snapshot(e.Type) {
		if err := call(ctx, r.listener, e); err != nil {
			b.logger.WarnContext(ctx, "event listener failed",
				"event_type", string(e.Type),
				"event_id", e.ID.String(),
				"error", err)
		}
	}
}

func call(ctx context.Context, l Listener, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return l(ctx, e)
}
