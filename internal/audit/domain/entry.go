package domain

import "time"

// SystemOrgID is the organization recorded for actions that belong to no organization, such as
// profile edits and sign-ins.
const SystemOrgID = "_system"

// Entry is one immutable activity record: who did what to which entity. Entries are appended
// once per affected entity of a successful mutation and never updated or deleted.
type Entry struct {
	ID         string
	OrgID      string
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Metadata   map[string]any
	IP         string
	CreatedAt  time.Time
}

// Filter narrows an activity listing. Empty fields match everything.
type Filter struct {
	OrgID      string
	EntityType string
	EntityID   string
	ActorID    string
}
