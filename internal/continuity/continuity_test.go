package continuity

import (
	"strings"
	"testing"

	"github.com/quantlake/deribit-data/internal/deribit"
)

func page(pairs ...any) []deribit.Trade {
	trades := make([]deribit.Trade, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		trades = append(trades, deribit.Trade{
			TradeID:   pairs[i].(string),
			Timestamp: int64(pairs[i+1].(int)),
		})
	}
	return trades
}

func TestValidate(t *testing.T) {
	v := NewValidator(0)

	t.Run("empty pages are valid", func(t *testing.T) {
		cases := []struct {
			name       string
			prev, curr []deribit.Trade
		}{
			{"both empty", nil, nil},
			{"empty prev", nil, page("1", 1000)},
			{"empty curr", page("1", 1000), nil},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				ok, warnings := v.Validate(tc.prev, tc.curr)
				if !ok || len(warnings) != 0 {
					t.Errorf("Validate = (%v, %v), want (true, none)", ok, warnings)
				}
			})
		}
	})

	t.Run("continuous pages are valid", func(t *testing.T) {
		ok, warnings := v.Validate(page("1", 1000), page("2", 999))
		if !ok || len(warnings) != 0 {
			t.Errorf("Validate = (%v, %v), want (true, none)", ok, warnings)
		}
	})

	t.Run("gap within threshold is valid", func(t *testing.T) {
		ok, warnings := v.Validate(page("1", 2000), page("2", 1500))
		if !ok || len(warnings) != 0 {
			t.Errorf("Validate = (%v, %v), want (true, none)", ok, warnings)
		}
	})

	t.Run("gap above threshold is reported", func(t *testing.T) {
		ok, warnings := v.Validate(page("1", 5000), page("2", 1000))
		if ok {
			t.Error("Validate valid = true, want false")
		}
		if len(warnings) != 1 {
			t.Fatalf("len(warnings) = %d, want 1: %v", len(warnings), warnings)
		}
		if !strings.Contains(warnings[0], "Gap detected") || !strings.Contains(warnings[0], "4000ms") {
			t.Errorf("warning = %q, want gap of 4000ms reported", warnings[0])
		}
	})

	t.Run("custom threshold is respected", func(t *testing.T) {
		wide := NewValidator(5000)
		ok, warnings := wide.Validate(page("1", 5000), page("2", 1000))
		if !ok || len(warnings) != 0 {
			t.Errorf("Validate = (%v, %v), want (true, none)", ok, warnings)
		}
	})

	t.Run("duplicate trade id is reported", func(t *testing.T) {
		ok, warnings := v.Validate(page("1", 1000), page("1", 999))
		if ok {
			t.Error("Validate valid = true, want false")
		}
		if len(warnings) != 1 {
			t.Fatalf("len(warnings) = %d, want 1: %v", len(warnings), warnings)
		}
		if !strings.Contains(warnings[0], "Duplicates") {
			t.Errorf("warning = %q, want duplicate report", warnings[0])
		}
	})

	t.Run("duplicates are counted", func(t *testing.T) {
		prev := page("1", 1000, "2", 1001, "3", 1002)
		curr := page("1", 999, "2", 998, "4", 997)
		ok, warnings := v.Validate(prev, curr)
		if ok {
			t.Error("Validate valid = true, want false")
		}
		if len(warnings) != 1 {
			t.Fatalf("len(warnings) = %d, want 1: %v", len(warnings), warnings)
		}
		if !strings.Contains(warnings[0], "2 trades") {
			t.Errorf("warning = %q, want 2 trades counted", warnings[0])
		}
	})

	t.Run("gap and duplicates both fire", func(t *testing.T) {
		ok, warnings := v.Validate(page("1", 5000), page("1", 1000))
		if ok {
			t.Error("Validate valid = true, want false")
		}
		if len(warnings) != 2 {
			t.Fatalf("len(warnings) = %d, want 2: %v", len(warnings), warnings)
		}
		var gotGap, gotDupe bool
		for _, w := range warnings {
			if strings.Contains(w, "Gap detected") && strings.Contains(w, "4000ms") {
				gotGap = true
			}
			if strings.Contains(w, "Duplicates") && strings.Contains(w, "1 trades") {
				gotDupe = true
			}
		}
		if !gotGap || !gotDupe {
			t.Errorf("warnings = %v, want one gap and one duplicate", warnings)
		}
	})

	t.Run("uses oldest of prev and newest of curr", func(t *testing.T) {
		prev := page("1", 3000, "2", 2000, "3", 2500)
		curr := page("4", 1500, "5", 1800, "6", 1600)
		// Gap is 2000 - 1800 = 200ms, under the threshold.
		ok, warnings := v.Validate(prev, curr)
		if !ok || len(warnings) != 0 {
			t.Errorf("Validate = (%v, %v), want (true, none)", ok, warnings)
		}
	})
}
