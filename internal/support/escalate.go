package support

import (
	"fmt"
	"time"
)

// Tier is an issue severity, P1 most severe through P4 least.
type Tier int

const (
	TierP1 Tier = 1
	TierP2 Tier = 2
	TierP3 Tier = 3
	TierP4 Tier = 4
)

// reopenWindow is how recently an issue must have been closed for a fresh
// duplicate report to reopen it.
const reopenWindow = 30 * 24 * time.Hour

// Frequency escalation thresholds on total report count.
const (
	reportsForP1 = 10
	reportsForP2 = 5
	reportsForP3 = 3
)

func (t Tier) Label() string {
	return fmt.Sprintf("P%d", t)
}

// ParseTierLabel finds the severity label in an issue's label set, defaulting
// to P4 when none is present.
func ParseTierLabel(labels []string) Tier {
	for _, l := range labels {
		switch l {
		case "P1":
			return TierP1
		case "P2":
			return TierP2
		case "P3":
			return TierP3
		case "P4":
			return TierP4
		}
	}
	return TierP4
}

// ComputeEscalation returns the tier an issue should hold after a new report
// of the given severity, with reportCount total reports including the new
// one. The result is never less severe than current.
func ComputeEscalation(current, newSeverity Tier, reportCount int) Tier {
	target := current
	if newSeverity < target {
		target = newSeverity
	}

	frequency := TierP4
	switch {
	case reportCount >= reportsForP1:
		frequency = TierP1
	case reportCount >= reportsForP2:
		frequency = TierP2
	case reportCount >= reportsForP3:
		frequency = TierP3
	}
	if frequency < target {
		target = frequency
	}
	return target
}

// replaceTierLabel swaps the severity label in a label set, preserving order
// of the others.
func replaceTierLabel(labels []string, t Tier) []string {
	out := make([]string, 0, len(labels)+1)
	for _, l := range labels {
		switch l {
		case "P1", "P2", "P3", "P4":
			continue
		}
		out = append(out, l)
	}
	return append(out, t.Label())
}

// ShouldReopen reports whether a closed issue is recent enough that a new
// duplicate report should reopen it instead of rotting on a closed thread.
func ShouldReopen(issue *Issue, now time.Time) bool {
	if issue.State != "closed" || issue.ClosedAt == nil {
		return false
	}
	return now.Sub(*issue.ClosedAt) <= reopenWindow
}
