// Package domain holds product experiments and their lifecycle.
package domain

import (
	"strings"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusRunning || s == StatusCompleted || s == StatusCancelled
}

type Outcome string

const (
	OutcomeWin          Outcome = "WIN"
	OutcomeLoss         Outcome = "LOSS"
	OutcomeInconclusive Outcome = "INCONCLUSIVE"
)

func (o Outcome) Valid() bool {
	return o == OutcomeWin || o == OutcomeLoss || o == OutcomeInconclusive
}

// transitions lists the allowed target states per state.
var transitions = map[Status][]Status{
	StatusDraft:   {StatusRunning, StatusCancelled},
	StatusRunning: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether an experiment may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Experiment struct {
	ID         string
	OrgID      string
	ProductID  string
	IdeaID     string
	Name       string
	Hypothesis string
	Metric     string
	Status     Status
	Outcome    Outcome
	Learnings  string
	StartedAt  *time.Time
	EndedAt    *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (e *Experiment) Validate() error {
	e.Name = strings.TrimSpace(e.Name)
	e.Hypothesis = strings.TrimSpace(e.Hypothesis)
	e.Metric = strings.TrimSpace(e.Metric)
	var v apperr.Validator
	v.Check(e.Name != "", "name", "is required")
	v.Check(len(e.Name) <= 200, "name", "must be at most 200 characters")
	v.Check(e.Hypothesis != "", "hypothesis", "is required")
	v.Check(e.Metric != "", "metric", "is required")
	v.Check(e.Status.Valid(), "status", "must be one of DRAFT, RUNNING, COMPLETED, CANCELLED")
	v.Check(e.Outcome == "" || e.Outcome.Valid(), "outcome", "must be one of WIN, LOSS, INCONCLUSIVE")
	v.Check(e.Status != StatusCompleted || e.Outcome != "", "outcome", "is required once completed")
	return v.Err()
}

// Transition moves the experiment to status at time now. Starting stamps StartedAt; completing
// or cancelling stamps EndedAt. Completing requires an outcome. Disallowed moves and a missing
// outcome are validation errors on "status" and "outcome".
func (e *Experiment) Transition(to Status, outcome Outcome, learnings string, now time.Time) error {
	var v apperr.Validator
	if !CanTransition(e.Status, to) {
		v.Add("status", "cannot move from "+string(e.Status)+" to "+string(to))
		return v.Err()
	}
	switch to {
	case StatusCompleted:
		v.Check(outcome.Valid(), "outcome", "must be one of WIN, LOSS, INCONCLUSIVE")
	default:
		v.Check(outcome == "", "outcome", "is only set on completion")
	}
	if err := v.Err(); err != nil {
		return err
	}
	e.Status, e.Outcome = to, outcome
	if l := strings.TrimSpace(learnings); l != "" {
		e.Learnings = l
	}
	switch to {
	case StatusRunning:
		e.StartedAt = &now
	case StatusCompleted, StatusCancelled:
		e.EndedAt = &now
	}
	return nil
}
