package contracts

import "time"

const (
	ActionCreated = "event.created"
	ActionUpdated = "event.updated"
	ActionDeleted = "event.deleted"
	ActionSeeded  = "event.seeded"
)

// EventChange is published by the event store after every committed write
// and consumed by live subscribers and the change-log sink.
type EventChange struct {
	ChangeID   string    `json:"change_id"`
	Action     string    `json:"action"`
	Collection string    `json:"collection"`
	StoreKey   string    `json:"store_key"`
	EventIDs   []string  `json:"event_ids"`
	Title      string    `json:"title"`
	OccurredAt time.Time `json:"occurred_at"`
	ShardID    int       `json:"shard_id"`
}

// KnownAction reports whether action is one the store emits.
func KnownAction(action string) bool {
	switch action {
	case ActionCreated, ActionUpdated, ActionDeleted, ActionSeeded:
		return true
	default:
		return false
	}
}
