package push

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/hazardwatch/go-hazard-zones/internal/models"
)

// ErrNoSubscribers reports that a user had no connected clients when a
// payload was sent. The ledger is mutated before delivery, so the next
// connected client catches up via the periodic search instead.
var ErrNoSubscribers = errors.New("no subscribers for user")

type subscription struct {
	userID string
	ch     chan models.PushPayload
}

// Broadcaster fans payloads out to per-user subscriber channels. It is the
// in-process push transport backing the SSE stream endpoint.
type Broadcaster struct {
	subscribers map[string]map[uint64]*subscription
	nextID      atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]map[uint64]*subscription),
	}
}

func (b *Broadcaster) Subscribe(userID string) (uint64, <-chan models.PushPayload) {
	id := b.nextID.Add(1)
	sub := &subscription{
		userID: userID,
		ch:     make(chan models.PushPayload, 16),
	}

	b.mu.Lock()
	if b.subscribers[userID] == nil {
		b.subscribers[userID] = make(map[uint64]*subscription)
	}
	b.subscribers[userID][id] = sub
	b.mu.Unlock()

	return id, sub.ch
}

func (b *Broadcaster) Unsubscribe(userID string, id uint64) {
	b.mu.Lock()
	if subs, ok := b.subscribers[userID]; ok {
		if sub, ok := subs[id]; ok {
			close(sub.ch)
			delete(subs, id)
		}
		if len(subs) == 0 {
			delete(b.subscribers, userID)
		}
	}
	b.mu.Unlock()
}

func (b *Broadcaster) Send(_ context.Context, userID string, payload models.PushPayload) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs := b.subscribers[userID]
	if len(subs) == 0 {
		return ErrNoSubscribers
	}

	for _, sub := range subs {
		select {
		case sub.ch <- payload:
		default:
			// Skip slow subscribers
		}
	}
	return nil
}

func (b *Broadcaster) SubscriberCount(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[userID])
}

// Close closes all subscriber channels, causing streams to exit gracefully
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for userID, subs := range b.subscribers {
		for id, sub := range subs {
			close(sub.ch)
			delete(subs, id)
		}
		delete(b.subscribers, userID)
	}
}
