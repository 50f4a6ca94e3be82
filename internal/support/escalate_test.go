package support

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTierLabel(t *testing.T) {
	assert.Equal(t, TierP2, ParseTierLabel([]string{"type:bug", "P2", "component:export"}))
	assert.Equal(t, TierP4, ParseTierLabel([]string{"type:bug"}))
	assert.Equal(t, TierP4, ParseTierLabel(nil))
}

func TestComputeEscalation(t *testing.T) {
	cases := []struct {
		name        string
		current     Tier
		newSeverity Tier
		reports     int
		want        Tier
	}{
		{"no change", TierP4, TierP4, 1, TierP4},
		{"severity escalates", TierP3, TierP1, 1, TierP1},
		{"frequency three reports", TierP4, TierP4, 3, TierP3},
		{"frequency five reports", TierP3, TierP4, 5, TierP2},
		{"frequency ten reports", TierP2, TierP4, 10, TierP1},
		{"frequency below current is ignored", TierP1, TierP4, 3, TierP1},
		{"never de-escalates on mild report", TierP1, TierP4, 1, TierP1},
		{"severity and frequency take the stronger", TierP4, TierP3, 5, TierP2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeEscalation(tc.current, tc.newSeverity, tc.reports))
		})
	}
}

// The result is never less severe than the current tier, for any input.
func TestComputeEscalation_Monotonic(t *testing.T) {
	for current := TierP1; current <= TierP4; current++ {
		for severity := TierP1; severity <= TierP4; severity++ {
			for reports := 0; reports <= 12; reports++ {
				got := ComputeEscalation(current, severity, reports)
				assert.LessOrEqual(t, got, current,
					"current=%v severity=%v reports=%d", current, severity, reports)
			}
		}
	}
}

func TestReplaceTierLabel(t *testing.T) {
	labels := replaceTierLabel([]string{"type:bug", "P3", "component:export"}, TierP2)
	assert.Equal(t, []string{"type:bug", "component:export", "P2"}, labels)
}

func TestShouldReopen(t *testing.T) {
	now := time.Date(2025, 12, 12, 0, 0, 0, 0, time.UTC)
	recent := now.Add(-10 * 24 * time.Hour)
	stale := now.Add(-40 * 24 * time.Hour)

	assert.True(t, ShouldReopen(&Issue{State: "closed", ClosedAt: &recent}, now))
	assert.False(t, ShouldReopen(&Issue{State: "closed", ClosedAt: &stale}, now))
	assert.False(t, ShouldReopen(&Issue{State: "open"}, now))
	assert.False(t, ShouldReopen(&Issue{State: "closed"}, now))
}
