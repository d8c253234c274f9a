// Package domain holds products, the unit every planning entity hangs off.
package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

// Stage is a product's lifecycle stage.
type Stage string

const (
	StageIdeation    Stage = "IDEATION"
	StageDiscovery   Stage = "DISCOVERY"
	StageDevelopment Stage = "DEVELOPMENT"
	StageGrowth      Stage = "GROWTH"
	StageMaturity    Stage = "MATURITY"
	StageSunset      Stage = "SUNSET"
)

var stages = map[Stage]bool{
	StageIdeation: true, StageDiscovery: true, StageDevelopment: true,
	StageGrowth: true, StageMaturity: true, StageSunset: true,
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool { return stages[s] }

var keyRe = regexp.MustCompile(`^[A-Z]{2,10}$`)

// Product belongs to one organization and optionally to one of its teams.
type Product struct {
	ID          string
	OrgID       string
	TeamID      string
	Name        string
	Key         string
	Description string
	Stage       Stage
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Normalize trims the name, upper-cases the key and defaults the stage.
func (p *Product) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Key = strings.ToUpper(strings.TrimSpace(p.Key))
	if p.Stage == "" {
		p.Stage = StageIdeation
	}
}

func (p *Product) Validate() error {
	var v apperr.Validator
	v.Check(p.Name != "", "name", "is required")
	v.Check(len(p.Name) <= 120, "name", "must be at most 120 characters")
	v.Check(keyRe.MatchString(p.Key), "key", "must be 2-10 upper-case letters")
	v.Check(len(p.Description) <= 10000, "description", "must be at most 10000 characters")
	v.Check(p.Stage.Valid(), "stage", "must be one of IDEATION, DISCOVERY, DEVELOPMENT, GROWTH, MATURITY, SUNSET")
	return v.Err()
}

// Stats summarizes a product's planning state.
type Stats struct {
	IdeasByStatus      map[string]int64
	TasksByStatus      map[string]int64
	AverageOKRProgress float64
	RunningExperiments int64
	GeneratedAt        time.Time
}
