package features

import (
	"math"
	"testing"
	"time"

	"github.com/quantlake/deribit-data/internal/model"
)

func tenorRow(ts time.Time, iv float64, dte int) model.TradeRow {
	return model.TradeRow{
		Timestamp: ts,
		IV:        &iv,
		Expiry:    ts.AddDate(0, 0, dte),
	}
}

func TestTermStructureSlope(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	cfg := DefaultConfig()

	t.Run("inverted structure has positive slope", func(t *testing.T) {
		rows := []model.TradeRow{
			tenorRow(base, 80, 7),   // near
			tenorRow(base, 70, 14),  // near
			tenorRow(base, 60, 90),  // far
			tenorRow(base, 50, 120), // far
		}
		points, err := TermStructureSlope(rows, cfg, time.Hour)
		if err != nil {
			t.Fatalf("TermStructureSlope: %v", err)
		}
		if len(points) != 1 {
			t.Fatalf("got %d points, want 1", len(points))
		}
		p := points[0]
		if p.NearIV != 75 || p.FarIV != 55 {
			t.Errorf("near/far = %v/%v, want 75/55", p.NearIV, p.FarIV)
		}
		if p.Slope != 20 {
			t.Errorf("Slope = %v, want 20", p.Slope)
		}
		if math.Abs(p.Ratio-75.0/55.0) > 1e-12 {
			t.Errorf("Ratio = %v, want %v", p.Ratio, 75.0/55.0)
		}
	})

	t.Run("normal structure has negative slope", func(t *testing.T) {
		rows := []model.TradeRow{
			tenorRow(base, 55, 5),
			tenorRow(base, 65, 90),
		}
		points, err := TermStructureSlope(rows, cfg, time.Hour)
		if err != nil {
			t.Fatalf("TermStructureSlope: %v", err)
		}
		if points[0].Slope != -10 {
			t.Errorf("Slope = %v, want -10", points[0].Slope)
		}
	})

	t.Run("mid tenor rows excluded", func(t *testing.T) {
		rows := []model.TradeRow{
			tenorRow(base, 70, 7),
			tenorRow(base, 999, 45), // between near max and far min, ignored
			tenorRow(base, 60, 90),
		}
		points, err := TermStructureSlope(rows, cfg, time.Hour)
		if err != nil {
			t.Fatalf("TermStructureSlope: %v", err)
		}
		if points[0].NearIV != 70 || points[0].FarIV != 60 {
			t.Errorf("near/far = %v/%v, mid-tenor row leaked in", points[0].NearIV, points[0].FarIV)
		}
	})

	t.Run("interval missing far side is omitted", func(t *testing.T) {
		rows := []model.TradeRow{
			tenorRow(base, 70, 7),
			tenorRow(base, 60, 90),
			tenorRow(base.Add(2*time.Hour), 75, 7), // no far trade this hour
		}
		points, err := TermStructureSlope(rows, cfg, time.Hour)
		if err != nil {
			t.Fatalf("TermStructureSlope: %v", err)
		}
		if len(points) != 1 {
			t.Fatalf("got %d points, want 1", len(points))
		}
	})

	t.Run("no overlap at all", func(t *testing.T) {
		rows := []model.TradeRow{tenorRow(base, 70, 7)}
		if _, err := TermStructureSlope(rows, cfg, time.Hour); err == nil {
			t.Fatal("want error when no interval has both tenors")
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if _, err := TermStructureSlope(nil, cfg, time.Hour); err == nil {
			t.Fatal("want error for empty input")
		}
	})
}
