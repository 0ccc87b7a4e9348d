package notify

import (
	"log/slog"
	"sync"

	"github.com/terra-clan/translation-workflow/internal/models"
)

// Hub fans stored notifications out to live subscribers of each user
type Hub struct {
	mu     sync.RWMutex
	subs   map[int64]map[*Subscription]struct{}
	buffer int
}

// Subscription receives the notifications of one user until closed
type Subscription struct {
	UserID int64
	C      <-chan *models.Notification

	ch   chan *models.Notification
	hub  *Hub
	once sync.Once
}

// NewHub creates a hub whose subscriptions buffer up to buffer notifications
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[int64]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a subscription for userID
func (h *Hub) Subscribe(userID int64) *Subscription {
	ch := make(chan *models.Notification, h.buffer)
	sub := &Subscription{UserID: userID, C: ch, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}

	return sub
}

// Close unregisters the subscription and closes its channel
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()

		delete(h.subs[s.UserID], s)
		if len(h.subs[s.UserID]) == 0 {
			delete(h.subs, s.UserID)
		}
		close(s.ch)
	})
}

// Publish sends n to every subscriber of its recipient. Slow subscribers miss
// it rather than block the publisher.
func (h *Hub) Publish(n *models.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[n.UserID] {
		select {
		case sub.ch <- n:
		default:
			slog.Warn("dropping live notification for slow subscriber", "user_id", n.UserID, "notification_id", n.ID)
		}
	}
}

// Subscribers returns the number of live subscriptions of userID
func (h *Hub) Subscribers(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
