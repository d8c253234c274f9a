// Package domain holds ideas and their prioritization scores.
package domain

import (
	"math"
	"strings"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

type Status string

const (
	StatusSubmitted   Status = "SUBMITTED"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusPlanned     Status = "PLANNED"
	StatusInProgress  Status = "IN_PROGRESS"
	StatusShipped     Status = "SHIPPED"
	StatusRejected    Status = "REJECTED"
)

var statuses = map[Status]bool{
	StatusSubmitted: true, StatusUnderReview: true, StatusPlanned: true,
	StatusInProgress: true, StatusShipped: true, StatusRejected: true,
}

func (s Status) Valid() bool { return statuses[s] }

// Idea is a candidate feature for a product.
type Idea struct {
	ID          string
	OrgID       string
	ProductID   string
	Title       string
	Description string
	Status      Status
	Inputs      Inputs
	RICEScore   *float64
	ICEScore    *float64
	WSJFScore   *float64
	VoteCount   int
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Inputs are the raw values behind the three scores.
type Inputs struct {
	Reach      float64
	Impact     float64
	Confidence float64
	Effort     float64

	ICEImpact     float64
	ICEConfidence float64
	Ease          float64

	BusinessValue   float64
	TimeCriticality float64
	RiskReduction   float64
	JobSize         float64
}

func (i *Idea) Validate() error {
	i.Title = strings.TrimSpace(i.Title)
	var v apperr.Validator
	v.Check(i.Title != "", "title", "is required")
	v.Check(len(i.Title) <= 200, "title", "must be at most 200 characters")
	v.Check(len(i.Description) <= 10000, "description", "must be at most 10000 characters")
	v.Check(i.Status.Valid(), "status", "must be one of SUBMITTED, UNDER_REVIEW, PLANNED, IN_PROGRESS, SHIPPED, REJECTED")
	return v.Err()
}

// Score input bounds. Comparisons against them also reject NaN.
const (
	MaxReach     = 1e9
	MinEffort    = 0.01
	MaxEffort    = 1e4
	MaxWSJFInput = 1e3
)

func inRange(f, lo, hi float64) bool {
	return f >= lo && f <= hi
}

// finite rounds a computed score, rejecting results that cannot be stored or serialized.
func finite(field string, score float64) (float64, error) {
	score = Round2(score)
	if math.IsNaN(score) || math.IsInf(score, 0) {
		var v apperr.Validator
		v.Add(field, "score is out of range")
		return 0, v.Err()
	}
	return score, nil
}

// RICE impact is restricted to this scale.
var riceImpacts = []float64{0.25, 0.5, 1, 2, 3}

// RICE returns reach × impact × confidence% ÷ effort.
func RICE(reach, impact, confidence, effort float64) (float64, error) {
	var v apperr.Validator
	v.Check(reach >= 0 && reach <= MaxReach, "rice.reach", "must be between 0 and 1000000000")
	v.Check(validRICEImpact(impact), "rice.impact", "must be one of 0.25, 0.5, 1, 2, 3")
	v.Check(confidence >= 0 && confidence <= 100, "rice.confidence", "must be between 0 and 100")
	v.Check(effort >= MinEffort && effort <= MaxEffort, "rice.effort", "must be between 0.01 and 10000")
	if err := v.Err(); err != nil {
		return 0, err
	}
	return finite("rice", reach*impact*(confidence/100)/effort)
}

func validRICEImpact(impact float64) bool {
	for _, v := range riceImpacts {
		if impact == v {
			return true
		}
	}
	return false
}

// ICE returns impact × confidence × ease, each on a 1-10 scale.
func ICE(impact, confidence, ease float64) (float64, error) {
	var v apperr.Validator
	v.Check(impact >= 1 && impact <= 10, "ice.impact", "must be between 1 and 10")
	v.Check(confidence >= 1 && confidence <= 10, "ice.confidence", "must be between 1 and 10")
	v.Check(ease >= 1 && ease <= 10, "ice.ease", "must be between 1 and 10")
	if err := v.Err(); err != nil {
		return 0, err
	}
	return Round2(impact * confidence * ease), nil
}

// WSJF returns the cost of delay (business value + time criticality + risk reduction) ÷ job size.
func WSJF(businessValue, timeCriticality, riskReduction, jobSize float64) (float64, error) {
	var v apperr.Validator
	v.Check(inRange(businessValue, 0, MaxWSJFInput), "wsjf.business_value", "must be between 0 and 1000")
	v.Check(inRange(timeCriticality, 0, MaxWSJFInput), "wsjf.time_criticality", "must be between 0 and 1000")
	v.Check(inRange(riskReduction, 0, MaxWSJFInput), "wsjf.risk_reduction", "must be between 0 and 1000")
	v.Check(jobSize >= MinEffort && jobSize <= MaxWSJFInput, "wsjf.job_size", "must be between 0.01 and 1000")
	if err := v.Err(); err != nil {
		return 0, err
	}
	return finite("wsjf", (businessValue+timeCriticality+riskReduction)/jobSize)
}

// Round2 rounds half away from zero to two decimals.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// SortKey orders idea lists.
type SortKey string

const (
	SortNewest SortKey = "newest"
	SortRICE   SortKey = "rice"
	SortICE    SortKey = "ice"
	SortWSJF   SortKey = "wsjf"
	SortVotes  SortKey = "votes"
)

// ParseSortKey defaults to SortNewest for "".
func ParseSortKey(s string) (SortKey, bool) {
	k := SortKey(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case "":
		return SortNewest, true
	case SortNewest, SortRICE, SortICE, SortWSJF, SortVotes:
		return k, true
	}
	return "", false
}

// Filter narrows idea lists.
type Filter struct {
	ProductID string
	Status    Status
	Sort      SortKey
}
