// Package domain holds user personas of a product.
package domain

import (
	"strings"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

// MaxListItems bounds Goals and PainPoints.
const MaxListItems = 20

type Persona struct {
	ID          string
	OrgID       string
	ProductID   string
	Name        string
	Title       string
	Description string
	Goals       []string
	PainPoints  []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate trims the fields and drops blank list entries.
func (p *Persona) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	p.Goals = CleanList(p.Goals)
	p.PainPoints = CleanList(p.PainPoints)
	var v apperr.Validator
	v.Check(p.Name != "", "name", "is required")
	v.Check(len(p.Name) <= 120, "name", "must be at most 120 characters")
	v.Check(len(p.Title) <= 120, "title", "must be at most 120 characters")
	v.Check(len(p.Goals) <= MaxListItems, "goals", "has too many entries")
	v.Check(len(p.PainPoints) <= MaxListItems, "pain_points", "has too many entries")
	for _, g := range p.Goals {
		v.Check(len(g) <= 300, "goals", "entries must be at most 300 characters")
	}
	for _, pp := range p.PainPoints {
		v.Check(len(pp) <= 300, "pain_points", "entries must be at most 300 characters")
	}
	return v.Err()
}

// CleanList trims entries and removes blanks and exact duplicates, keeping order. Never nil.
func CleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
