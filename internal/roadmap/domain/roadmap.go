// Package domain holds roadmap items, releases and changelog entries.
package domain

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

type Lane string

const (
	LaneNow   Lane = "NOW"
	LaneNext  Lane = "NEXT"
	LaneLater Lane = "LATER"
)

// Lanes is the display order of a roadmap.
var Lanes = []Lane{LaneNow, LaneNext, LaneLater}

func (l Lane) Valid() bool { return l == LaneNow || l == LaneNext || l == LaneLater }

type ItemStatus string

const (
	ItemPlanned    ItemStatus = "PLANNED"
	ItemInProgress ItemStatus = "IN_PROGRESS"
	ItemDone       ItemStatus = "DONE"
)

func (s ItemStatus) Valid() bool { return s == ItemPlanned || s == ItemInProgress || s == ItemDone }

type Item struct {
	ID          string
	OrgID       string
	ProductID   string
	IdeaID      string
	Title       string
	Description string
	Lane        Lane
	Status      ItemStatus
	StartsOn    *time.Time
	EndsOn      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (i *Item) Validate() error {
	i.Title = strings.TrimSpace(i.Title)
	i.StartsOn, i.EndsOn = day(i.StartsOn), day(i.EndsOn)
	var v apperr.Validator
	v.Check(i.Title != "", "title", "is required")
	v.Check(len(i.Title) <= 200, "title", "must be at most 200 characters")
	v.Check(i.Lane.Valid(), "lane", "must be one of NOW, NEXT, LATER")
	v.Check(i.Status.Valid(), "status", "must be one of PLANNED, IN_PROGRESS, DONE")
	v.Check(i.StartsOn == nil || i.EndsOn == nil || !i.EndsOn.Before(*i.StartsOn), "ends_on", "must not be before starts_on")
	return v.Err()
}

// LaneGroup is one lane of a roadmap with its items.
type LaneGroup struct {
	Lane  Lane
	Items []*Item
}

// Group buckets items into Lanes order. Items keep their relative order, except that items with a
// start date come first, earliest first.
func Group(items []*Item) []LaneGroup {
	out := make([]LaneGroup, len(Lanes))
	idx := make(map[Lane]int, len(Lanes))
	for i, l := range Lanes {
		out[i] = LaneGroup{Lane: l, Items: []*Item{}}
		idx[l] = i
	}
	for _, it := range items {
		if i, ok := idx[it.Lane]; ok {
			out[i].Items = append(out[i].Items, it)
		}
	}
	for _, g := range out {
		sort.SliceStable(g.Items, func(a, b int) bool {
			sa, sb := g.Items[a].StartsOn, g.Items[b].StartsOn
			switch {
			case sa == nil:
				return false
			case sb == nil:
				return true
			default:
				return sa.Before(*sb)
			}
		})
	}
	return out
}

type ReleaseStatus string

const (
	ReleasePlanned    ReleaseStatus = "PLANNED"
	ReleaseInProgress ReleaseStatus = "IN_PROGRESS"
	ReleaseReleased   ReleaseStatus = "RELEASED"
)

func (s ReleaseStatus) Valid() bool {
	return s == ReleasePlanned || s == ReleaseInProgress || s == ReleaseReleased
}

type Release struct {
	ID         string
	OrgID      string
	ProductID  string
	Version    string
	Name       string
	Status     ReleaseStatus
	TargetOn   *time.Time
	ReleasedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NormalizeVersion accepts MAJOR.MINOR.PATCH with an optional "v" prefix and pre-release suffix,
// and returns it with the "v" prefix. Build metadata and shortened forms are rejected.
func NormalizeVersion(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if s[0] != 'v' {
		s = "v" + s
	}
	if !semver.IsValid(s) || semver.Canonical(s) != s {
		return "", false
	}
	return s, true
}

func (r *Release) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.TargetOn = day(r.TargetOn)
	var v apperr.Validator
	version, ok := NormalizeVersion(r.Version)
	if ok {
		r.Version = version
	}
	v.Check(ok, "version", "must look like 1.4.0 or v2.0.0-beta.1")
	v.Check(len(r.Name) <= 120, "name", "must be at most 120 characters")
	v.Check(r.Status.Valid(), "status", "must be one of PLANNED, IN_PROGRESS, RELEASED")
	v.Check(r.Status != ReleaseReleased || r.ReleasedAt != nil, "released_at", "is required once released")
	return v.Err()
}

// SortReleases orders releases by version, newest first.
func SortReleases(list []*Release) {
	sort.SliceStable(list, func(a, b int) bool {
		return semver.Compare(list[a].Version, list[b].Version) > 0
	})
}

type ChangeKind string

const (
	KindFeature     ChangeKind = "FEATURE"
	KindImprovement ChangeKind = "IMPROVEMENT"
	KindFix         ChangeKind = "FIX"
)

func (k ChangeKind) Valid() bool { return k == KindFeature || k == KindImprovement || k == KindFix }

type ChangelogEntry struct {
	ID          string
	OrgID       string
	ProductID   string
	ReleaseID   string
	Title       string
	Body        string
	Kind        ChangeKind
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (c *ChangelogEntry) Validate() error {
	c.Title = strings.TrimSpace(c.Title)
	var v apperr.Validator
	v.Check(c.Title != "", "title", "is required")
	v.Check(len(c.Title) <= 200, "title", "must be at most 200 characters")
	v.Check(c.Kind.Valid(), "kind", "must be one of FEATURE, IMPROVEMENT, FIX")
	return v.Err()
}

func day(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	y, m, d := t.UTC().Date()
	out := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &out
}
