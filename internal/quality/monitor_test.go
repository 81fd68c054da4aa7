package quality

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSource struct {
	coverageCalls atomic.Int64
	gapCalls      atomic.Int64
	failCoverage  bool
}

func (f *fakeSource) CoverageStats(_ context.Context, underlying string) (*Coverage, error) {
	f.coverageCalls.Add(1)
	if f.failCoverage {
		return nil, errors.New("table missing")
	}
	return &Coverage{
		Underlying: underlying,
		TradeCount: 1000,
		Earliest:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Latest:     time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		NullIVRate: 0.05,
	}, nil
}

func (f *fakeSource) GapAnalysis(context.Context, time.Duration) ([]Gap, error) {
	f.gapCalls.Add(1)
	return []Gap{{Hours: 6}}, nil
}

func TestMonitor(t *testing.T) {
	t.Run("samples immediately and on ticks", func(t *testing.T) {
		src := &fakeSource{}
		m := NewMonitor(MonitorConfig{
			Interval:     5 * time.Millisecond,
			GapThreshold: time.Hour,
			Underlyings:  []string{"BTC"},
		}, src, nil, nil)

		if err := m.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}

		deadline := time.After(2 * time.Second)
		for src.gapCalls.Load() < 2 {
			select {
			case <-deadline:
				t.Fatal("monitor never sampled twice")
			case <-time.After(time.Millisecond):
			}
		}

		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := m.Stop(stopCtx); err != nil {
			t.Fatalf("Stop: %v", err)
		}
	})

	t.Run("coverage failure does not halt the loop", func(t *testing.T) {
		src := &fakeSource{failCoverage: true}
		m := NewMonitor(MonitorConfig{
			Interval:     5 * time.Millisecond,
			GapThreshold: time.Hour,
			Underlyings:  []string{"BTC", "ETH"},
		}, src, nil, nil)

		if err := m.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}

		deadline := time.After(2 * time.Second)
		for src.gapCalls.Load() < 1 {
			select {
			case <-deadline:
				t.Fatal("gap analysis never ran despite coverage failures")
			case <-time.After(time.Millisecond):
			}
		}

		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := m.Stop(stopCtx); err != nil {
			t.Fatalf("Stop: %v", err)
		}
	})

	t.Run("defaults fill zero config", func(t *testing.T) {
		m := NewMonitor(MonitorConfig{Underlyings: []string{"BTC"}}, &fakeSource{}, nil, nil)
		if m.cfg.Interval != 15*time.Minute {
			t.Errorf("Interval = %v, want 15m", m.cfg.Interval)
		}
		if m.cfg.GapThreshold != time.Hour {
			t.Errorf("GapThreshold = %v, want 1h", m.cfg.GapThreshold)
		}
	})
}
