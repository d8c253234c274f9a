package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

func TestRICE(t *testing.T) {
	got, err := RICE(1000, 2, 80, 3)
	require.NoError(t, err)
	assert.Equal(t, 533.33, got)

	got, err = RICE(0, 0.25, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	_, err = RICE(10, 1.5, 120, 0)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("rice.impact"))
	assert.NotEmpty(t, ve.Field("rice.confidence"))
	assert.NotEmpty(t, ve.Field("rice.effort"))
}

func TestICE(t *testing.T) {
	got, err := ICE(7, 5, 9)
	require.NoError(t, err)
	assert.Equal(t, 315.0, got)

	_, err = ICE(0, 11, 5)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("ice.impact"))
	assert.NotEmpty(t, ve.Field("ice.confidence"))
	assert.Empty(t, ve.Field("ice.ease"))
}

func TestWSJF(t *testing.T) {
	got, err := WSJF(8, 5, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, 5.33, got)

	_, err = WSJF(1, 1, 1, 0)
	assert.True(t, apperr.IsValidation(err))
}

func TestScores_RejectOverflowingInputs(t *testing.T) {
	cases := []struct {
		name  string
		score func() (float64, error)
		field string
	}{
		{"rice huge reach", func() (float64, error) { return RICE(1e308, 3, 100, 0.5) }, "rice.reach"},
		{"rice inf reach", func() (float64, error) { return RICE(math.Inf(1), 1, 50, 1) }, "rice.reach"},
		{"rice nan confidence", func() (float64, error) { return RICE(10, 1, math.NaN(), 1) }, "rice.confidence"},
		{"rice tiny effort", func() (float64, error) { return RICE(10, 1, 50, 1e-300) }, "rice.effort"},
		{"wsjf huge value", func() (float64, error) { return WSJF(1e308, 1e308, 0, 1) }, "wsjf.business_value"},
		{"wsjf nan job size", func() (float64, error) { return WSJF(1, 1, 1, math.NaN()) }, "wsjf.job_size"},
		{"ice nan", func() (float64, error) { return ICE(math.NaN(), 5, 5) }, "ice.impact"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.score()
			var ve *apperr.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.NotEmpty(t, ve.Field(tc.field))
		})
	}
}

func TestScores_LargestInputsStayFinite(t *testing.T) {
	rice, err := RICE(MaxReach, 3, 100, MinEffort)
	require.NoError(t, err)
	assert.False(t, math.IsInf(rice, 0))

	wsjf, err := WSJF(MaxWSJFInput, MaxWSJFInput, MaxWSJFInput, MinEffort)
	require.NoError(t, err)
	assert.Equal(t, 300000.0, wsjf)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.01, Round2(1.005+1e-9))
	assert.Equal(t, 2.0, Round2(1.999))
	assert.Equal(t, -0.33, Round2(-1.0/3))
}

func TestParseSortKey(t *testing.T) {
	k, ok := ParseSortKey("")
	assert.True(t, ok)
	assert.Equal(t, SortNewest, k)
	k, ok = ParseSortKey(" RICE ")
	assert.True(t, ok)
	assert.Equal(t, SortRICE, k)
	_, ok = ParseSortKey("priority")
	assert.False(t, ok)
}

func TestIdea_Validate(t *testing.T) {
	i := &Idea{Title: "  Dark mode ", Status: StatusSubmitted}
	require.NoError(t, i.Validate())
	assert.Equal(t, "Dark mode", i.Title)

	i = &Idea{Status: "DONE"}
	err := i.Validate()
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("title"))
	assert.NotEmpty(t, ve.Field("status"))
}
