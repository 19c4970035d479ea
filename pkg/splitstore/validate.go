package splitstore

import (
	"fmt"
	"math"
)

// validateGroup checks a proposed group against the live host tabs and the
// groups already in st. It returns the first violation found.
func validateGroup(spec GroupSpec, st *State, host Host, tolerance float64) error {
	if !spec.Layout.IsSupported() {
		return fmt.Errorf("%w: %q", ErrInvalidLayout, spec.Layout)
	}
	if spec.Color == "" {
		return ErrMissingColor
	}
	if len(spec.Tabs) != GroupSize {
		return fmt.Errorf("%w: got %d", ErrWrongGroupSize, len(spec.Tabs))
	}

	seen := make(map[string]bool, len(spec.Tabs))
	for i, tab := range spec.Tabs {
		// Position in the slice is the column claim; tabs are never re-sorted.
		if tab.Col != i {
			return fmt.Errorf("%w: tab %d has col %d", ErrColumnMismatch, i, tab.Col)
		}
		if _, ok := host.ResolveTab(tab.PanelID); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownPanel, tab.PanelID)
		}
		if !validDistribution(tab.Distribution) {
			return fmt.Errorf("%w: tab %d has %v", ErrInvalidTabFields, i, tab.Distribution)
		}
		if g, ok := host.ResolveGroup(tab.PanelID, st); ok {
			return fmt.Errorf("%w: %q is in %s", ErrPanelAlreadySplit, tab.PanelID, g.ID)
		}
		if seen[tab.PanelID] {
			return fmt.Errorf("%w: %q", ErrDuplicatePanelInGroup, tab.PanelID)
		}
		seen[tab.PanelID] = true
	}

	return checkSum(spec.Tabs[0].Distribution, spec.Tabs[1].Distribution, tolerance)
}

// validateDistributions checks a replacement distribution pair for an
// existing group.
func validateDistributions(dists []float64, tolerance float64) error {
	if len(dists) != GroupSize {
		return fmt.Errorf("%w: got %d distributions", ErrWrongGroupSize, len(dists))
	}
	for i, d := range dists {
		if !validDistribution(d) {
			return fmt.Errorf("%w: tab %d has %v", ErrInvalidTabFields, i, d)
		}
	}
	return checkSum(dists[0], dists[1], tolerance)
}

func validDistribution(d float64) bool {
	return d > 0 && d < 1 && !math.IsNaN(d)
}

// checkSum requires a+b == 1. A zero tolerance means exact float equality.
func checkSum(a, b, tolerance float64) error {
	sum := a + b
	if tolerance == 0 {
		if sum != 1 {
			return fmt.Errorf("%w: got %v", ErrDistributionSumMismatch, sum)
		}
		return nil
	}
	if math.Abs(sum-1) > tolerance {
		return fmt.Errorf("%w: got %v (tolerance %v)", ErrDistributionSumMismatch, sum, tolerance)
	}
	return nil
}
