// internal/events/types.go
package events

import "time"

// Event types constants
const (
	EventTypeCreditsAdded      = "credits.added"
	EventTypeCreditsLowBalance = "credits.low_balance"
)

const (
	DefaultQueueSize = 256
	deliveryTimeout  = 10 * time.Second
)

// Event is forwarded to the automation engine with Type as the action.
type Event struct {
	ID         string         `json:"eventId"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data"`
}

func (e Event) payload() map[string]any {
	return map[string]any{
		"eventId":    e.ID,
		"occurredAt": e.OccurredAt.Format(time.RFC3339),
		"data":       e.Data,
	}
}
