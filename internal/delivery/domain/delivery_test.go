package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

func TestBoard_ColumnsAndOrdering(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tasks := []*Task{
		{ID: "a", Status: TaskTodo, Priority: PriorityLow, CreatedAt: t0},
		{ID: "b", Status: TaskTodo, Priority: PriorityUrgent, CreatedAt: t0.Add(time.Hour)},
		{ID: "c", Status: TaskTodo, Priority: PriorityUrgent, CreatedAt: t0},
		{ID: "d", Status: TaskDone, Priority: PriorityMedium, CreatedAt: t0},
		{ID: "e", Status: "ARCHIVED", Priority: PriorityMedium, CreatedAt: t0},
	}
	cols := Board(tasks)
	require.Len(t, cols, 5)
	for i, s := range BoardColumns {
		assert.Equal(t, s, cols[i].Status)
		assert.NotNil(t, cols[i].Tasks, "empty columns are empty slices")
	}
	var todo []string
	for _, task := range cols[1].Tasks {
		todo = append(todo, task.ID)
	}
	assert.Equal(t, []string{"c", "b", "a"}, todo)
	assert.Len(t, cols[4].Tasks, 1)
	assert.Empty(t, cols[0].Tasks)
}

func TestSprint_Validate(t *testing.T) {
	s := &Sprint{
		Name:     " Sprint 1 ",
		StartsOn: time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
		EndsOn:   time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Validate(), "same day is allowed")
	assert.Equal(t, "Sprint 1", s.Name)
	assert.Equal(t, 0, s.StartsOn.Hour())

	s.EndsOn = s.StartsOn.AddDate(0, 0, -1)
	err := s.Validate()
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("ends_on"))
}

func TestTask_Validate(t *testing.T) {
	due := time.Date(2026, 4, 1, 23, 30, 0, 0, time.UTC)
	task := &Task{Title: "Ship it", Status: TaskTodo, Priority: PriorityHigh, StoryPoints: 8, DueOn: &due}
	require.NoError(t, task.Validate())
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), *task.DueOn)

	task = &Task{Status: "WIP", Priority: "P1", StoryPoints: 101}
	err := task.Validate()
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	for _, f := range []string{"title", "status", "priority", "story_points"} {
		assert.NotEmpty(t, ve.Field(f), f)
	}
}
