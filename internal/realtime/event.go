// Package realtime fans project-scoped events out to live subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event names delivered on a project channel.
const (
	EventNewMessage      = "new-message"
	EventBudgetUpdated   = "budget-updated"
	EventProgressUpdated = "progress-updated"
	EventNewSketch       = "new-sketch"
)

// ProjectChannel returns the channel every member of a project listens on.
func ProjectChannel(projectID uint) string {
	return fmt.Sprintf("project-%d", projectID)
}

// Event is the unit of delivery. Payload carries the full record so that
// receivers never need a second round trip.
type Event struct {
	Channel   string          `json:"channel"`
	Name      string          `json:"event"`
	ActorID   uint            `json:"user_id,omitempty"`
	SkipActor bool            `json:"skip_actor,omitempty"` // do not echo back to ActorID's sessions
	Payload   json.RawMessage `json:"payload"`
	SentAt    time.Time       `json:"sent_at"`
}

func NewEvent(channel, name string, actorID uint, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", name, err)
	}
	return Event{
		Channel: channel,
		Name:    name,
		ActorID: actorID,
		Payload: data,
		SentAt:  time.Now().UTC(),
	}, nil
}

// Broadcaster is the transport boundary used after a write commits.
type Broadcaster interface {
	Publish(ctx context.Context, ev Event) error
}
