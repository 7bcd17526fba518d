package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/huangang/studiodesk/backend/internal/metrics"
	"github.com/huangang/studiodesk/backend/pkg/logger"
	"github.com/rs/zerolog"
)

// Notifier dispatches events on a detached goroutine. A failed publish is
// logged and counted; callers never see it.
type Notifier struct {
	b       Broadcaster
	timeout time.Duration
	log     zerolog.Logger
	wg      sync.WaitGroup
}

func NewNotifier(b Broadcaster, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Notifier{b: b, timeout: timeout, log: logger.Module("realtime")}
}

// Notify publishes name on the project's channel. The payload is encoded
// before Notify returns, so later mutation by the caller is not observed.
func (n *Notifier) Notify(projectID uint, name string, actorID uint, payload interface{}) {
	n.dispatch(projectID, name, actorID, false, payload)
}

// NotifyOthers is Notify without delivery to the actor's own sessions.
func (n *Notifier) NotifyOthers(projectID uint, name string, actorID uint, payload interface{}) {
	n.dispatch(projectID, name, actorID, true, payload)
}

func (n *Notifier) dispatch(projectID uint, name string, actorID uint, skipActor bool, payload interface{}) {
	if n == nil || n.b == nil {
		return
	}
	ev, err := NewEvent(ProjectChannel(projectID), name, actorID, payload)
	if err != nil {
		n.log.Error().Err(err).Str("event", name).Msg("event encoding failed")
		metrics.RealtimeEvents.WithLabelValues(name, "failed").Inc()
		return
	}
	ev.SkipActor = skipActor

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := n.b.Publish(ctx, ev); err != nil {
			n.log.Warn().Err(err).
				Str("channel", ev.Channel).
				Str("event", ev.Name).
				Msg("broadcast failed")
			metrics.RealtimeEvents.WithLabelValues(ev.Name, "failed").Inc()
			return
		}
		metrics.RealtimeEvents.WithLabelValues(ev.Name, "published").Inc()
	}()
}

// Wait blocks until every dispatched event has been attempted.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}
