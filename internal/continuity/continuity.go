// Package continuity validates that consecutive pages of a backward
// pagination walk line up: no unexplained time gap between the oldest
// trade of the previous page and the newest trade of the current page,
// and no trade IDs shared between the two pages.
//
// Validation is advisory. The upstream cursor is time-based rather than
// an opaque token, so exact contiguity cannot be guaranteed; warnings
// are counted and logged but never halt a backfill.
package continuity

import (
	"fmt"

	"github.com/quantlake/deribit-data/internal/deribit"
)

// DefaultGapThresholdMS is the largest tolerated gap, in milliseconds,
// between adjacent pages before a warning fires.
const DefaultGapThresholdMS int64 = 1000

// Validator checks adjacent pages for time gaps and duplicate trade IDs.
type Validator struct {
	gapThresholdMS int64
}

// NewValidator creates a Validator. A threshold of zero or less selects
// DefaultGapThresholdMS.
func NewValidator(gapThresholdMS int64) *Validator {
	if gapThresholdMS <= 0 {
		gapThresholdMS = DefaultGapThresholdMS
	}
	return &Validator{gapThresholdMS: gapThresholdMS}
}

// Validate compares the previous page against the current one. Pages are
// walked backward in time, so prev covers a later window than curr. Both
// rules are evaluated independently and both may fire. An empty page on
// either side short-circuits to valid: there is nothing to compare on
// the first page or after the last.
func (v *Validator) Validate(prev, curr []deribit.Trade) (bool, []string) {
	if len(prev) == 0 || len(curr) == 0 {
		return true, nil
	}

	var warnings []string

	prevOldest := prev[0].Timestamp
	for _, t := range prev[1:] {
		if t.Timestamp < prevOldest {
			prevOldest = t.Timestamp
		}
	}
	currNewest := curr[0].Timestamp
	for _, t := range curr[1:] {
		if t.Timestamp > currNewest {
			currNewest = t.Timestamp
		}
	}

	if gap := prevOldest - currNewest; gap > v.gapThresholdMS {
		warnings = append(warnings, fmt.Sprintf(
			"Gap detected: %dms between pages (prev oldest %d, curr newest %d)",
			gap, prevOldest, currNewest))
	}

	prevIDs := make(map[string]struct{}, len(prev))
	for _, t := range prev {
		prevIDs[t.TradeID] = struct{}{}
	}
	dupes := 0
	for _, t := range curr {
		if _, ok := prevIDs[t.TradeID]; ok {
			dupes++
		}
	}
	if dupes > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"Duplicates between pages: %d trades", dupes))
	}

	return len(warnings) == 0, warnings
}
