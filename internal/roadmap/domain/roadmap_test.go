package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

func TestNormalizeVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1.4.0", "v1.4.0", true},
		{"v2.0.0-beta.1", "v2.0.0-beta.1", true},
		{" v0.0.1 ", "v0.0.1", true},
		{"1.4", "", false},
		{"v1", "", false},
		{"1.4.0+build.7", "", false},
		{"01.2.3", "", false},
		{"latest", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeVersion(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSortReleases(t *testing.T) {
	list := []*Release{{Version: "v1.2.0"}, {Version: "v1.10.0"}, {Version: "v1.10.0-rc.1"}, {Version: "v0.9.9"}}
	SortReleases(list)
	var got []string
	for _, r := range list {
		got = append(got, r.Version)
	}
	assert.Equal(t, []string{"v1.10.0", "v1.10.0-rc.1", "v1.2.0", "v0.9.9"}, got)
}

func TestRelease_Validate(t *testing.T) {
	r := &Release{Version: "2.1.0", Status: ReleasePlanned}
	require.NoError(t, r.Validate())
	assert.Equal(t, "v2.1.0", r.Version)

	r = &Release{Version: "next", Status: ReleaseReleased}
	var ve *apperr.ValidationError
	require.ErrorAs(t, r.Validate(), &ve)
	assert.NotEmpty(t, ve.Field("version"))
	assert.NotEmpty(t, ve.Field("released_at"))
}

func TestItem_Validate(t *testing.T) {
	start := time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -2)
	it := &Item{Title: "Billing", Lane: "SOON", Status: ItemPlanned, StartsOn: &start, EndsOn: &end}
	var ve *apperr.ValidationError
	require.ErrorAs(t, it.Validate(), &ve)
	assert.NotEmpty(t, ve.Field("lane"))
	assert.NotEmpty(t, ve.Field("ends_on"))
	assert.Equal(t, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), *it.StartsOn)
}

func TestGroup(t *testing.T) {
	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.AddDate(0, 3, 0)
	undated := &Item{ID: "undated", Lane: LaneNow}
	b := &Item{ID: "late", Lane: LaneNow, StartsOn: &late}
	a := &Item{ID: "early", Lane: LaneNow, StartsOn: &early}
	later := &Item{ID: "later", Lane: LaneLater}

	groups := Group([]*Item{undated, b, later, a})
	require.Len(t, groups, 3)
	assert.Equal(t, LaneNow, groups[0].Lane)
	assert.Equal(t, []*Item{a, b, undated}, groups[0].Items)
	assert.Empty(t, groups[1].Items)
	assert.Equal(t, []*Item{later}, groups[2].Items)
}
