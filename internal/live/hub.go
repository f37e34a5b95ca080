// Package live implements the in-process subscription hub behind the
// dashboard's live query: every change to a user's collection re-emits the
// full current snapshot to each of that user's subscribers.
package live

import (
	"context"
	"sync"

	"planner/internal/core"
)

// Hub fans out transaction snapshots per user. Subscriptions are torn down
// when their context is cancelled, so an abandoned dashboard stops receiving
// updates (and stops holding a channel open).
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan []core.Transaction
	nextID int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan []core.Transaction)}
}

// Subscribe registers for the user's snapshots until ctx is cancelled.
// The channel has capacity one: a slow subscriber only loses intermediate
// snapshots, never sees a partial one, and never blocks a writer.
func (h *Hub) Subscribe(ctx context.Context, userID string) <-chan []core.Transaction {
	ch := make(chan []core.Transaction, 1)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[int]chan []core.Transaction)
	}
	h.subs[userID][id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if userSubs, ok := h.subs[userID]; ok {
			delete(userSubs, id)
			if len(userSubs) == 0 {
				delete(h.subs, userID)
			}
		}
		h.mu.Unlock()
	}()

	return ch
}

// Broadcast delivers the snapshot to every current subscriber of the user.
// If a subscriber has not consumed the previous snapshot yet, it is replaced;
// only the latest state matters.
func (h *Hub) Broadcast(userID string, snapshot []core.Transaction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[userID] {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

// Subscribers reports how many subscriptions the user currently holds.
func (h *Hub) Subscribers(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}
