package domain

import "time"

// ActivityEvent is the published form of an activity entry. It travels as JSON on the activity
// Kafka topic and as an OTel log record.
type ActivityEvent struct {
	ID         string         `json:"id"`
	OrgID      string         `json:"org_id"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	IP         string         `json:"ip,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Name returns "<entity_type>.<action>", e.g. "task.create".
func (e *ActivityEvent) Name() string {
	return e.EntityType + "." + e.Action
}
