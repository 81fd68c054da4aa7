package deribit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient()

		if c.historyURL != DefaultHistoryURL {
			t.Errorf("historyURL = %q, want %q", c.historyURL, DefaultHistoryURL)
		}
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 30*time.Second)
		}
		if c.maxAttempts != 3 {
			t.Errorf("maxAttempts = %d, want 3", c.maxAttempts)
		}
		if c.retryBackoff != time.Second {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, time.Second)
		}
		if c.backoffCap != 10*time.Second {
			t.Errorf("backoffCap = %v, want %v", c.backoffCap, 10*time.Second)
		}
	})

	t.Run("with options", func(t *testing.T) {
		c := NewClient(
			WithHistoryURL("http://example.com"),
			WithTimeout(5*time.Second),
			WithRetries(5, 100*time.Millisecond),
		)
		if c.historyURL != "http://example.com" {
			t.Errorf("historyURL = %q, want http://example.com", c.historyURL)
		}
		if c.httpClient.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 5*time.Second)
		}
		if c.maxAttempts != 5 || c.retryBackoff != 100*time.Millisecond {
			t.Errorf("retries = (%d, %v), want (5, 100ms)", c.maxAttempts, c.retryBackoff)
		}
	})
}

func TestTradesPage(t *testing.T) {
	t.Run("decodes trades and query parameters", func(t *testing.T) {
		var gotQuery map[string]string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = map[string]string{
				"currency":        r.URL.Query().Get("currency"),
				"kind":            r.URL.Query().Get("kind"),
				"start_timestamp": r.URL.Query().Get("start_timestamp"),
				"end_timestamp":   r.URL.Query().Get("end_timestamp"),
				"count":           r.URL.Query().Get("count"),
				"sorting":         r.URL.Query().Get("sorting"),
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{
					"trades": []map[string]any{
						{
							"trade_id":        "BTC-123",
							"instrument_name": "BTC-27DEC24-100000-C",
							"timestamp":       1700000000000,
							"price":           0.042,
							"amount":          5.0,
							"direction":       "buy",
							"iv":              62.5,
							"index_price":     43000.5,
						},
						{
							"trade_id":        "BTC-122",
							"instrument_name": "BTC-27DEC24-90000-P",
							"timestamp":       1699999999000,
							"price":           0.013,
							"amount":          1.5,
							"direction":       "sell",
						},
					},
					"has_more": true,
				},
			})
		}))
		defer srv.Close()

		c := NewClient(WithHistoryURL(srv.URL))
		trades, err := c.TradesPage(context.Background(), TradesPageOptions{
			Currency: "BTC",
			Kind:     "option",
			StartTS:  1514764800000,
			EndTS:    1700000000000,
			Count:    500,
		})
		if err != nil {
			t.Fatalf("TradesPage returned error: %v", err)
		}

		if gotQuery["currency"] != "BTC" || gotQuery["kind"] != "option" {
			t.Errorf("query = %v, want currency=BTC kind=option", gotQuery)
		}
		if gotQuery["start_timestamp"] != "1514764800000" || gotQuery["end_timestamp"] != "1700000000000" {
			t.Errorf("window query = %v", gotQuery)
		}
		if gotQuery["count"] != "500" || gotQuery["sorting"] != "desc" {
			t.Errorf("count/sorting query = %v", gotQuery)
		}

		if len(trades) != 2 {
			t.Fatalf("len(trades) = %d, want 2", len(trades))
		}
		if trades[0].TradeID != "BTC-123" || trades[0].Timestamp != 1700000000000 {
			t.Errorf("first trade = %+v", trades[0])
		}
		if trades[0].IV == nil || *trades[0].IV != 62.5 {
			t.Errorf("IV = %v, want 62.5", trades[0].IV)
		}
		if trades[1].IV != nil {
			t.Errorf("missing IV decoded as %v, want nil", *trades[1].IV)
		}
	})

	t.Run("count is capped at the API maximum", func(t *testing.T) {
		var gotCount string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotCount = r.URL.Query().Get("count")
			_, _ = w.Write([]byte(`{"result": {"trades": []}}`))
		}))
		defer srv.Close()

		c := NewClient(WithHistoryURL(srv.URL))
		if _, err := c.TradesPage(context.Background(), TradesPageOptions{Currency: "BTC", Kind: "option", Count: 5000}); err != nil {
			t.Fatalf("TradesPage returned error: %v", err)
		}
		if gotCount != "1000" {
			t.Errorf("count = %s, want 1000", gotCount)
		}
	})

	t.Run("retries server errors then succeeds", func(t *testing.T) {
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(`{"result": {"trades": []}}`))
		}))
		defer srv.Close()

		c := NewClient(WithHistoryURL(srv.URL), WithRetries(3, time.Millisecond))
		if _, err := c.TradesPage(context.Background(), TradesPageOptions{Currency: "BTC", Kind: "option"}); err != nil {
			t.Fatalf("TradesPage returned error: %v", err)
		}
		if calls.Load() != 3 {
			t.Errorf("calls = %d, want 3", calls.Load())
		}
	})

	t.Run("exhausted retries propagate the API error", func(t *testing.T) {
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c := NewClient(WithHistoryURL(srv.URL), WithRetries(3, time.Millisecond))
		_, err := c.TradesPage(context.Background(), TradesPageOptions{Currency: "BTC", Kind: "option"})
		if err == nil {
			t.Fatal("TradesPage succeeded, want error")
		}
		if calls.Load() != 3 {
			t.Errorf("calls = %d, want 3", calls.Load())
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("error type = %T, want *APIError", err)
		}
		if apiErr.StatusCode != http.StatusBadGateway {
			t.Errorf("StatusCode = %d, want 502", apiErr.StatusCode)
		}
	})

	t.Run("429 surfaces as RateLimitError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := NewClient(WithHistoryURL(srv.URL), WithRetries(2, time.Millisecond))
		_, err := c.TradesPage(context.Background(), TradesPageOptions{Currency: "BTC", Kind: "option"})
		if err == nil {
			t.Fatal("TradesPage succeeded, want error")
		}
		var rlErr *RateLimitError
		if !errors.As(err, &rlErr) {
			t.Fatalf("error type = %T, want *RateLimitError", err)
		}
		if rlErr.StatusCode != http.StatusTooManyRequests {
			t.Errorf("StatusCode = %d, want 429", rlErr.StatusCode)
		}
	})

	t.Run("error envelope is fatal and not retried", func(t *testing.T) {
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			_, _ = w.Write([]byte(`{"error": {"code": 10028, "message": "too_many_requests"}}`))
		}))
		defer srv.Close()

		c := NewClient(WithHistoryURL(srv.URL), WithRetries(3, time.Millisecond))
		_, err := c.TradesPage(context.Background(), TradesPageOptions{Currency: "BTC", Kind: "option"})
		if err == nil {
			t.Fatal("TradesPage succeeded, want error")
		}
		if calls.Load() != 1 {
			t.Errorf("calls = %d, want 1 (envelope errors are not retried)", calls.Load())
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("error type = %T, want *APIError", err)
		}
	})

	t.Run("context cancellation stops retrying", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := NewClient(WithHistoryURL(srv.URL), WithRetries(3, time.Hour))
		_, err := c.TradesPage(ctx, TradesPageOptions{Currency: "BTC", Kind: "option"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}

func TestGetInstruments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("expired"); got != "false" {
			t.Errorf("expired = %q, want false", got)
		}
		_, _ = w.Write([]byte(`{"result": [
			{"instrument_name": "BTC-27DEC24-100000-C", "kind": "option",
			 "strike": 100000, "option_type": "call",
			 "expiration_timestamp": 1735286400000, "is_active": true}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(WithMainURL(srv.URL))
	instruments, err := c.GetInstruments(context.Background(), "BTC", "option", false)
	if err != nil {
		t.Fatalf("GetInstruments returned error: %v", err)
	}
	if len(instruments) != 1 {
		t.Fatalf("len(instruments) = %d, want 1", len(instruments))
	}
	if instruments[0].Strike != 100000 || instruments[0].OptionType != "call" {
		t.Errorf("instrument = %+v", instruments[0])
	}
}
