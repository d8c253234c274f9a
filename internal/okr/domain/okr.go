// Package domain holds objectives and key results and the progress math over them.
package domain

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

type Status string

const (
	StatusOnTrack  Status = "ON_TRACK"
	StatusAtRisk   Status = "AT_RISK"
	StatusOffTrack Status = "OFF_TRACK"
	StatusDone     Status = "DONE"
)

func (s Status) Valid() bool {
	return s == StatusOnTrack || s == StatusAtRisk || s == StatusOffTrack || s == StatusDone
}

// periodRe accepts a year, a half or a quarter: 2026, 2026-H2, 2026-Q3.
var periodRe = regexp.MustCompile(`^\d{4}(-Q[1-4]|-H[12])?$`)

type Objective struct {
	ID          string
	OrgID       string
	ProductID   string
	Title       string
	Description string
	Period      string
	OwnerID     string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (o *Objective) Validate() error {
	o.Title = strings.TrimSpace(o.Title)
	o.Period = strings.ToUpper(strings.TrimSpace(o.Period))
	var v apperr.Validator
	v.Check(o.Title != "", "title", "is required")
	v.Check(len(o.Title) <= 200, "title", "must be at most 200 characters")
	v.Check(periodRe.MatchString(o.Period), "period", "must look like 2026, 2026-H2 or 2026-Q3")
	v.Check(o.Status.Valid(), "status", "must be one of ON_TRACK, AT_RISK, OFF_TRACK, DONE")
	return v.Err()
}

type KeyResult struct {
	ID           string
	OrgID        string
	ObjectiveID  string
	Title        string
	StartValue   float64
	TargetValue  float64
	CurrentValue float64
	Unit         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (k *KeyResult) Validate() error {
	k.Title = strings.TrimSpace(k.Title)
	k.Unit = strings.TrimSpace(k.Unit)
	var v apperr.Validator
	v.Check(k.Title != "", "title", "is required")
	v.Check(len(k.Title) <= 200, "title", "must be at most 200 characters")
	v.Check(k.TargetValue != k.StartValue, "target_value", "must differ from start_value")
	for field, x := range map[string]float64{"start_value": k.StartValue, "target_value": k.TargetValue, "current_value": k.CurrentValue} {
		v.Check(!math.IsNaN(x) && !math.IsInf(x, 0), field, "must be a finite number")
	}
	return v.Err()
}

// Progress is how far current has moved from start toward target, clamped to [0, 1].
// Targets below the start value count decreases as progress.
func (k *KeyResult) Progress() float64 {
	span := k.TargetValue - k.StartValue
	if span == 0 {
		return 0
	}
	return clamp((k.CurrentValue - k.StartValue) / span)
}

// Progress is the mean progress of the key results, or 0 when there are none.
func Progress(krs []*KeyResult) float64 {
	if len(krs) == 0 {
		return 0
	}
	var sum float64
	for _, k := range krs {
		sum += k.Progress()
	}
	return sum / float64(len(krs))
}

func clamp(x float64) float64 {
	switch {
	case math.IsNaN(x) || x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}

// Filter narrows objective lists. Empty fields match everything.
type Filter struct {
	ProductID string
	Period    string
	OwnerID   string
}
