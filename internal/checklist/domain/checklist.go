// Package domain holds product checklists and the built-in checklist templates.
package domain

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

type Item struct {
	ID        string
	OrgID     string
	ProductID string
	List      string
	Title     string
	Position  int
	Done      bool
	DoneBy    string
	DoneAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

var listName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,39}$`)

// NormalizeList lower-cases and trims a list name.
func NormalizeList(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidList reports whether s is a normalized list name.
func ValidList(s string) bool {
	return listName.MatchString(s)
}

func (it *Item) Validate() error {
	it.Title = strings.TrimSpace(it.Title)
	it.List = NormalizeList(it.List)
	var v apperr.Validator
	v.Check(ValidList(it.List), "list", "must be 1-40 lowercase letters, digits, '-' or '_'")
	v.Check(it.Title != "", "title", "is required")
	v.Check(len(it.Title) <= 300, "title", "must be at most 300 characters")
	v.Check(it.Position >= 0, "position", "must not be negative")
	return v.Err()
}

// SetDone marks the item done by userID at now, or clears the completion.
func (it *Item) SetDone(done bool, userID string, now time.Time) {
	it.Done = done
	if done {
		it.DoneBy, it.DoneAt = userID, &now
		return
	}
	it.DoneBy, it.DoneAt = "", nil
}

// Template is a named set of item titles.
type Template struct {
	Name  string
	Items []string
}

var templates = map[string]Template{
	"LAUNCH": {Name: "LAUNCH", Items: []string{
		"Define launch goals and success metrics",
		"Confirm target audience and positioning",
		"Finalize pricing and packaging",
		"Prepare release notes and changelog entry",
		"Update help center and documentation",
		"Brief sales and support teams",
		"Set up launch dashboards and alerts",
		"Schedule announcement (blog, email, social)",
		"Run go/no-go review",
		"Collect launch feedback after one week",
	}},
	"RELEASE": {Name: "RELEASE", Items: []string{
		"Freeze scope for the release",
		"All tasks in the release are done",
		"Regression tests pass",
		"Migrations reviewed and rehearsed",
		"Feature flags configured",
		"Rollback plan documented",
		"Release notes published",
		"Monitor error rates after deploy",
	}},
	"DISCOVERY": {Name: "DISCOVERY", Items: []string{
		"Write the problem statement",
		"List assumptions and risks",
		"Recruit interview participants",
		"Run customer interviews",
		"Synthesize findings into insights",
		"Update personas",
		"Generate and score solution ideas",
		"Define an experiment for the riskiest assumption",
	}},
}

// LookupTemplate returns the built-in template with the given name, case-insensitively.
func LookupTemplate(name string) (Template, bool) {
	t, ok := templates[strings.ToUpper(strings.TrimSpace(name))]
	return t, ok
}

// Templates returns every built-in template ordered by name.
func Templates() []Template {
	out := make([]Template, 0, len(templates))
	for _, t := range templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Expand builds the items of t for list, positioned after maxPos.
func (t Template) Expand(orgID, productID, list string, maxPos int, now time.Time, newID func() string) []*Item {
	items := make([]*Item, len(t.Items))
	for i, title := range t.Items {
		items[i] = &Item{
			ID:        newID(),
			OrgID:     orgID,
			ProductID: productID,
			List:      list,
			Title:     title,
			Position:  maxPos + 1 + i,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return items
}

// Progress counts finished and total items per list.
type Progress struct {
	List  string
	Done  int
	Total int
}

// Summarize returns per-list progress in order of first appearance.
func Summarize(items []*Item) []Progress {
	idx := map[string]int{}
	var out []Progress
	for _, it := range items {
		i, ok := idx[it.List]
		if !ok {
			i = len(out)
			idx[it.List] = i
			out = append(out, Progress{List: it.List})
		}
		out[i].Total++
		if it.Done {
			out[i].Done++
		}
	}
	return out
}
