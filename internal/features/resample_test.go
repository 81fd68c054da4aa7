package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/quantlake/deribit-data/internal/model"
)

func ivRow(ts time.Time, iv float64, amount float64) model.TradeRow {
	return model.TradeRow{Timestamp: ts, IV: &iv, Amount: amount}
}

func TestResampleIV(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("builds OHLC per interval", func(t *testing.T) {
		rows := []model.TradeRow{
			ivRow(base.Add(1*time.Minute), 60, 1.0),
			ivRow(base.Add(5*time.Minute), 70, 2.0),
			ivRow(base.Add(9*time.Minute), 55, 0.5),
			ivRow(base.Add(14*time.Minute), 62, 1.0),
			ivRow(base.Add(20*time.Minute), 65, 3.0),
		}
		bars, err := ResampleIV(rows, 15*time.Minute)
		if err != nil {
			t.Fatalf("ResampleIV: %v", err)
		}
		if len(bars) != 2 {
			t.Fatalf("got %d bars, want 2", len(bars))
		}

		b := bars[0]
		if !b.Start.Equal(base) {
			t.Errorf("bar start = %v, want %v", b.Start, base)
		}
		if b.IVOpen != 60 || b.IVHigh != 70 || b.IVLow != 55 || b.IVClose != 62 {
			t.Errorf("OHLC = %v/%v/%v/%v, want 60/70/55/62", b.IVOpen, b.IVHigh, b.IVLow, b.IVClose)
		}
		if b.Volume != 4.5 {
			t.Errorf("Volume = %v, want 4.5", b.Volume)
		}
		if b.Trades != 4 {
			t.Errorf("Trades = %d, want 4", b.Trades)
		}
	})

	t.Run("sorts out of order input", func(t *testing.T) {
		rows := []model.TradeRow{
			ivRow(base.Add(10*time.Minute), 80, 1),
			ivRow(base, 50, 1),
		}
		bars, err := ResampleIV(rows, 15*time.Minute)
		if err != nil {
			t.Fatalf("ResampleIV: %v", err)
		}
		if bars[0].IVOpen != 50 || bars[0].IVClose != 80 {
			t.Errorf("open/close = %v/%v, want 50/80", bars[0].IVOpen, bars[0].IVClose)
		}
	})

	t.Run("omits empty intervals", func(t *testing.T) {
		rows := []model.TradeRow{
			ivRow(base, 60, 1),
			ivRow(base.Add(2*time.Hour), 62, 1),
		}
		bars, err := ResampleIV(rows, 15*time.Minute)
		if err != nil {
			t.Fatalf("ResampleIV: %v", err)
		}
		if len(bars) != 2 {
			t.Fatalf("got %d bars, want 2 (gap intervals omitted)", len(bars))
		}
	})

	t.Run("drops rows without iv", func(t *testing.T) {
		rows := []model.TradeRow{
			{Timestamp: base, Amount: 1},
			ivRow(base.Add(time.Minute), 61, 1),
		}
		bars, err := ResampleIV(rows, 15*time.Minute)
		if err != nil {
			t.Fatalf("ResampleIV: %v", err)
		}
		if bars[0].Trades != 1 {
			t.Errorf("Trades = %d, want 1", bars[0].Trades)
		}
	})

	t.Run("all rows missing iv", func(t *testing.T) {
		rows := []model.TradeRow{{Timestamp: base}, {Timestamp: base.Add(time.Minute)}}
		if _, err := ResampleIV(rows, 15*time.Minute); !errors.Is(err, ErrNoIVData) {
			t.Fatalf("err = %v, want ErrNoIVData", err)
		}
	})

	t.Run("rejects non positive interval", func(t *testing.T) {
		if _, err := ResampleIV([]model.TradeRow{ivRow(base, 60, 1)}, 0); err == nil {
			t.Fatal("want error for zero interval")
		}
	})
}

func TestCloseSeries(t *testing.T) {
	bars := []Bar{{IVClose: 60}, {IVClose: 61.5}, {IVClose: 59}}
	got := CloseSeries(bars)
	want := []float64{60, 61.5, 59}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
