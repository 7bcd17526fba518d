package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/huangang/studiodesk/backend/internal/metrics"
)

const defaultBufferSize = 100

// Subscription is one client's binding to a channel. Events arrive on C;
// C is closed by Unsubscribe.
type Subscription struct {
	ID      string
	Channel string
	UserID  uint
	C       <-chan Event

	ch chan Event
}

// Hub keeps in-process subscribers per channel. It implements Broadcaster
// for single-instance deployments and is the delivery end of RedisBroadcaster.
type Hub struct {
	mu         sync.RWMutex
	channels   map[string]map[string]*Subscription
	bufferSize int

	hookMu   sync.RWMutex
	onActive []func(channel string)
	onIdle   []func(channel string)
}

func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Hub{
		channels:   make(map[string]map[string]*Subscription),
		bufferSize: bufferSize,
	}
}

// OnChannelActive registers fn to run when a channel gains its first subscriber.
func (h *Hub) OnChannelActive(fn func(channel string)) {
	h.hookMu.Lock()
	defer h.hookMu.Unlock()
	h.onActive = append(h.onActive, fn)
}

// OnChannelIdle registers fn to run when a channel loses its last subscriber.
func (h *Hub) OnChannelIdle(fn func(channel string)) {
	h.hookMu.Lock()
	defer h.hookMu.Unlock()
	h.onIdle = append(h.onIdle, fn)
}

func (h *Hub) Subscribe(channel string, userID uint) *Subscription {
	ch := make(chan Event, h.bufferSize)
	sub := &Subscription{
		ID:      uuid.NewString(),
		Channel: channel,
		UserID:  userID,
		C:       ch,
		ch:      ch,
	}

	h.mu.Lock()
	subs, ok := h.channels[channel]
	if !ok {
		subs = make(map[string]*Subscription)
		h.channels[channel] = subs
	}
	subs[sub.ID] = sub
	first := len(subs) == 1
	h.mu.Unlock()

	metrics.RealtimeSubscribers.Inc()
	if first {
		h.fire(h.activeHooks(), channel)
	}
	return sub
}

// Unsubscribe is safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	subs, ok := h.channels[sub.Channel]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := subs[sub.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(subs, sub.ID)
	close(sub.ch)
	last := len(subs) == 0
	if last {
		delete(h.channels, sub.Channel)
	}
	h.mu.Unlock()

	metrics.RealtimeSubscribers.Dec()
	if last {
		h.fire(h.idleHooks(), sub.Channel)
	}
}

// Deliver hands ev to every subscriber of its channel without blocking.
// A subscriber whose buffer is full misses the event. It returns the number
// of subscribers that received it.
func (h *Hub) Deliver(ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, sub := range h.channels[ev.Channel] {
		if ev.SkipActor && ev.ActorID != 0 && sub.UserID == ev.ActorID {
			continue
		}
		select {
		case sub.ch <- ev:
			delivered++
		default:
			metrics.RealtimeEvents.WithLabelValues(ev.Name, "dropped").Inc()
		}
	}
	return delivered
}

func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.Deliver(ev)
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, subs := range h.channels {
		n += len(subs)
	}
	return n
}

// HasSubscribers reports whether channel has at least one local subscriber.
func (h *Hub) HasSubscribers(channel string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel]) > 0
}

func (h *Hub) activeHooks() []func(string) {
	h.hookMu.RLock()
	defer h.hookMu.RUnlock()
	return h.onActive
}

func (h *Hub) idleHooks() []func(string) {
	h.hookMu.RLock()
	defer h.hookMu.RUnlock()
	return h.onIdle
}

func (h *Hub) fire(hooks []func(string), channel string) {
	for _, fn := range hooks {
		fn(channel)
	}
}
