// Package notify carries the opaque "something changed" signal between planner
// clients. Signals have no payload semantics; receivers refetch.
package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type Notifier interface {
	// Publish announces a change to other subscribers.
	Publish(ctx context.Context) error
	// Subscribe returns a channel that receives one value per signal (coalesced when
	// the receiver is slow). It is closed when ctx ends or the notifier closes.
	Subscribe(ctx context.Context) (<-chan struct{}, error)
	Close() error
}

// newOrigin tags this process's publications so its own echoes can be dropped.
func newOrigin() string { return "origin:" + uuid.NewString() }

// Hub is the in-process Notifier.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan struct{}]struct{}
	closed bool
	done   chan struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[chan struct{}]struct{}{}, done: make(chan struct{})}
}

func (h *Hub) Publish(ctx context.Context) error {
	h.Broadcast()
	return nil
}

// Broadcast signals every subscriber without blocking.
func (h *Hub) Broadcast() {
	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	h.mu.Unlock()
}

func (h *Hub) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, nil
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-h.done:
		}
		h.remove(ch)
	}()
	return ch, nil
}

func (h *Hub) remove(ch chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	close(h.done)
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
	return nil
}

// signal does a coalescing send.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Pump forwards signals from n to fn until ctx ends or the subscription closes.
func Pump(ctx context.Context, n Notifier, fn func()) error {
	ch, err := n.Subscribe(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			fn()
		}
	}
}
