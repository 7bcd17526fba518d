package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/huangang/studiodesk/backend/internal/metrics"
	"github.com/huangang/studiodesk/backend/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisBroadcaster publishes events to Redis and relays every message
// received on a locally watched channel into the Hub, so that all API
// instances see every event.
//
// The underlying PubSub connection is opened when the first local channel
// becomes active and closed again when the last one goes idle.
type RedisBroadcaster struct {
	client *redis.Client
	hub    *Hub
	prefix string
	log    zerolog.Logger

	mu         sync.Mutex
	pubsub     *redis.PubSub
	subscribed map[string]bool
	relayDone  chan struct{}
}

func NewRedisBroadcaster(client *redis.Client, hub *Hub, prefix string) *RedisBroadcaster {
	r := &RedisBroadcaster{
		client:     client,
		hub:        hub,
		prefix:     prefix,
		log:        logger.Module("realtime.redis"),
		subscribed: make(map[string]bool),
	}
	hub.OnChannelActive(r.sync)
	hub.OnChannelIdle(r.sync)
	return r
}

func (r *RedisBroadcaster) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.prefix+ev.Channel, data).Err()
}

// sync reconciles the Redis subscription for channel with the hub's current
// subscriber set. Hooks may race; re-reading the hub under r.mu makes the
// last call win.
func (r *RedisBroadcaster) sync(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx := context.Background()
	wanted := r.hub.HasSubscribers(channel)
	name := r.prefix + channel

	switch {
	case wanted && !r.subscribed[channel]:
		if r.pubsub == nil {
			r.pubsub = r.client.Subscribe(ctx, name)
			r.relayDone = make(chan struct{})
			go r.relay(r.pubsub, r.relayDone)
		} else if err := r.pubsub.Subscribe(ctx, name); err != nil {
			r.log.Error().Err(err).Str("channel", channel).Msg("redis subscribe failed")
			return
		}
		r.subscribed[channel] = true

	case !wanted && r.subscribed[channel]:
		delete(r.subscribed, channel)
		if len(r.subscribed) == 0 {
			r.closeLocked()
			return
		}
		if err := r.pubsub.Unsubscribe(ctx, name); err != nil {
			r.log.Warn().Err(err).Str("channel", channel).Msg("redis unsubscribe failed")
		}
	}
}

func (r *RedisBroadcaster) relay(ps *redis.PubSub, done chan struct{}) {
	defer close(done)
	for msg := range ps.Channel() {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			r.log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed event")
			metrics.RealtimeEvents.WithLabelValues("unknown", "malformed").Inc()
			continue
		}
		r.hub.Deliver(ev)
	}
}

func (r *RedisBroadcaster) closeLocked() {
	if r.pubsub == nil {
		return
	}
	if err := r.pubsub.Close(); err != nil {
		r.log.Warn().Err(err).Msg("redis pubsub close failed")
	}
	<-r.relayDone
	r.pubsub = nil
	r.relayDone = nil
}

// Close tears down the relay; the Redis client itself is owned by the caller.
func (r *RedisBroadcaster) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribed = make(map[string]bool)
	r.closeLocked()
}

// Active reports whether a PubSub connection is currently open.
func (r *RedisBroadcaster) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pubsub != nil
}
