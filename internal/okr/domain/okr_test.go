package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

func TestKeyResult_Progress(t *testing.T) {
	tests := []struct {
		name                   string
		start, target, current float64
		want                   float64
	}{
		{"halfway", 0, 100, 50, 0.5},
		{"not started", 10, 20, 10, 0},
		{"overshoot clamps", 0, 10, 25, 1},
		{"regression clamps", 50, 100, 20, 0},
		{"decreasing target", 100, 60, 80, 0.5},
		{"decreasing overshoot", 100, 60, 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kr := &KeyResult{StartValue: tt.start, TargetValue: tt.target, CurrentValue: tt.current}
			assert.InDelta(t, tt.want, kr.Progress(), 1e-9)
		})
	}
}

func TestProgress_Mean(t *testing.T) {
	assert.Equal(t, 0.0, Progress(nil))
	krs := []*KeyResult{
		{StartValue: 0, TargetValue: 10, CurrentValue: 10},
		{StartValue: 0, TargetValue: 10, CurrentValue: 0},
		{StartValue: 0, TargetValue: 10, CurrentValue: 5},
	}
	assert.InDelta(t, 0.5, Progress(krs), 1e-9)
}

func TestKeyResult_Validate(t *testing.T) {
	kr := &KeyResult{Title: " NPS ", StartValue: 30, TargetValue: 30}
	var ve *apperr.ValidationError
	require.ErrorAs(t, kr.Validate(), &ve)
	assert.NotEmpty(t, ve.Field("target_value"))
	assert.Equal(t, "NPS", kr.Title)
}

func TestObjective_Validate(t *testing.T) {
	for _, p := range []string{"2026", "2026-q3", "2026-H1"} {
		o := &Objective{Title: "Grow", Period: p, Status: StatusOnTrack}
		assert.NoError(t, o.Validate(), p)
	}
	o := &Objective{Title: "Grow", Period: "Q3 2026", Status: "GREEN"}
	var ve *apperr.ValidationError
	require.ErrorAs(t, o.Validate(), &ve)
	assert.NotEmpty(t, ve.Field("period"))
	assert.NotEmpty(t, ve.Field("status"))
}
