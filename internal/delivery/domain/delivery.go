// Package domain holds the delivery model: epics, sprints and tasks, and the kanban board built
// from them.
package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

type TaskStatus string

const (
	TaskBacklog    TaskStatus = "BACKLOG"
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskInReview   TaskStatus = "IN_REVIEW"
	TaskDone       TaskStatus = "DONE"
)

// BoardColumns is the fixed column order of a kanban board.
var BoardColumns = []TaskStatus{TaskBacklog, TaskTodo, TaskInProgress, TaskInReview, TaskDone}

func (s TaskStatus) Valid() bool {
	for _, c := range BoardColumns {
		if s == c {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

var priorityRank = map[Priority]int{PriorityLow: 1, PriorityMedium: 2, PriorityHigh: 3, PriorityUrgent: 4}

func (p Priority) Valid() bool { return priorityRank[p] > 0 }

type EpicStatus string

const (
	EpicOpen       EpicStatus = "OPEN"
	EpicInProgress EpicStatus = "IN_PROGRESS"
	EpicDone       EpicStatus = "DONE"
)

func (s EpicStatus) Valid() bool {
	return s == EpicOpen || s == EpicInProgress || s == EpicDone
}

type SprintStatus string

const (
	SprintPlanned   SprintStatus = "PLANNED"
	SprintActive    SprintStatus = "ACTIVE"
	SprintCompleted SprintStatus = "COMPLETED"
)

type Epic struct {
	ID          string
	OrgID       string
	ProductID   string
	Title       string
	Description string
	Status      EpicStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (e *Epic) Validate() error {
	e.Title = strings.TrimSpace(e.Title)
	var v apperr.Validator
	v.Check(e.Title != "", "title", "is required")
	v.Check(len(e.Title) <= 200, "title", "must be at most 200 characters")
	v.Check(e.Status.Valid(), "status", "must be one of OPEN, IN_PROGRESS, DONE")
	return v.Err()
}

type Sprint struct {
	ID        string
	OrgID     string
	ProductID string
	Name      string
	Goal      string
	StartsOn  time.Time
	EndsOn    time.Time
	Status    SprintStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate truncates both dates to UTC days.
func (s *Sprint) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	s.StartsOn, s.EndsOn = Day(s.StartsOn), Day(s.EndsOn)
	var v apperr.Validator
	v.Check(s.Name != "", "name", "is required")
	v.Check(len(s.Name) <= 120, "name", "must be at most 120 characters")
	v.Check(!s.StartsOn.IsZero(), "starts_on", "is required")
	v.Check(!s.EndsOn.IsZero(), "ends_on", "is required")
	v.Check(s.EndsOn.IsZero() || !s.EndsOn.Before(s.StartsOn), "ends_on", "must not be before starts_on")
	return v.Err()
}

type Task struct {
	ID          string
	OrgID       string
	ProductID   string
	EpicID      string
	SprintID    string
	Title       string
	Description string
	Status      TaskStatus
	Priority    Priority
	AssigneeID  string
	StoryPoints int
	DueOn       *time.Time
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t *Task) Validate() error {
	t.Title = strings.TrimSpace(t.Title)
	if t.DueOn != nil {
		d := Day(*t.DueOn)
		t.DueOn = &d
	}
	var v apperr.Validator
	v.Check(t.Title != "", "title", "is required")
	v.Check(len(t.Title) <= 200, "title", "must be at most 200 characters")
	v.Check(t.Status.Valid(), "status", "must be one of BACKLOG, TODO, IN_PROGRESS, IN_REVIEW, DONE")
	v.Check(t.Priority.Valid(), "priority", "must be one of LOW, MEDIUM, HIGH, URGENT")
	v.Check(t.StoryPoints >= 0 && t.StoryPoints <= 100, "story_points", "must be between 0 and 100")
	return v.Err()
}

// Day truncates t to midnight UTC. The zero time stays zero.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TaskFilter narrows task lists. Empty fields match everything.
type TaskFilter struct {
	ProductID  string
	SprintID   string
	EpicID     string
	AssigneeID string
	Status     TaskStatus
}

// Column is one status lane of a board.
type Column struct {
	Status TaskStatus
	Tasks  []*Task
}

// Board groups tasks into BoardColumns order. Each column is sorted by priority, highest first,
// then by creation time.
func Board(tasks []*Task) []Column {
	cols := make([]Column, len(BoardColumns))
	idx := make(map[TaskStatus]int, len(BoardColumns))
	for i, s := range BoardColumns {
		cols[i] = Column{Status: s, Tasks: []*Task{}}
		idx[s] = i
	}
	for _, t := range tasks {
		i, ok := idx[t.Status]
		if !ok {
			continue
		}
		cols[i].Tasks = append(cols[i].Tasks, t)
	}
	for _, c := range cols {
		sort.SliceStable(c.Tasks, func(a, b int) bool {
			ra, rb := priorityRank[c.Tasks[a].Priority], priorityRank[c.Tasks[b].Priority]
			if ra != rb {
				return ra > rb
			}
			return c.Tasks[a].CreatedAt.Before(c.Tasks[b].CreatedAt)
		})
	}
	return cols
}
