package quote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketanalysis/internal/errs"
)

const validChartBody = `{
	"chart": {
		"result": [{
			"timestamp": [1700000000, 1700086400, 1700172800],
			"indicators": {
				"quote": [{
					"open":   [10.0, null, 12.0],
					"high":   [10.5, 11.5, 12.5],
					"low":    [9.5, 10.5, 11.5],
					"close":  [10.2, null, 12.2],
					"volume": [1000, 1100, null]
				}]
			}
		}],
		"error": null
	}
}`

// S4 Rate-limit retry shape: 429 three times, then success. 4 outbound
// calls, inter-call sleeps of 2s, 4s, 8s scaled by the configured backoff.
func TestFetch_RetriesOnRateLimitThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, validChartBody)
	}))
	defer server.Close()

	c := New(Options{
		BaseURL:     server.URL,
		RetryMax:    3,
		BackoffBase: 2 * time.Millisecond,
		JitterMax:   0,
	})

	var sleeps []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	series, err := c.Fetch(context.Background(), "AAPL", 90)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if calls != 4 {
		t.Fatalf("outbound calls = %d, want 4 (1 + retry_max)", calls)
	}
	if len(sleeps) != 3 {
		t.Fatalf("sleep count = %d, want 3", len(sleeps))
	}
	if sleeps[0] != 2*time.Millisecond || sleeps[1] != 4*time.Millisecond || sleeps[2] != 8*time.Millisecond {
		t.Fatalf("sleep sequence = %v, want doubling from backoff base", sleeps)
	}
	if len(series.Bars) != 2 {
		t.Fatalf("bar count = %d, want 2 (one bar dropped for a null close)", len(series.Bars))
	}
}

func TestFetch_NoDataIsNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := New(Options{BaseURL: server.URL, RetryMax: 3, BackoffBase: time.Millisecond})
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	_, err := c.Fetch(context.Background(), "NOTASYMBOL", 90)
	if !errs.Is(err, errs.NoData) {
		t.Fatalf("error kind = %v, want NoData", errs.KindOf(err))
	}
	if calls != 1 {
		t.Fatalf("outbound calls = %d, want 1 (NoData must not be retried)", calls)
	}
}

func TestFetch_ExhaustedRetryBudgetSurfacesRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := New(Options{BaseURL: server.URL, RetryMax: 2, BackoffBase: time.Millisecond})
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	_, err := c.Fetch(context.Background(), "AAPL", 90)
	if !errs.Is(err, errs.RateLimited) {
		t.Fatalf("error kind = %v, want RateLimited", errs.KindOf(err))
	}
}

func TestFetch_DropsBarsMissingClose(t *testing.T) {
	body := `{"chart":{"result":[{"timestamp":[1,2,3],"indicators":{"quote":[{"close":[1.0,null,3.0]}]}}],"error":null}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	c := New(Options{BaseURL: server.URL})
	series, err := c.Fetch(context.Background(), "AAPL", 90)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(series.Bars) != 2 {
		t.Fatalf("bar count = %d, want 2", len(series.Bars))
	}
}

func TestFetch_EmptyResultIsNoData(t *testing.T) {
	body := `{"chart":{"result":[],"error":null}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	c := New(Options{BaseURL: server.URL})
	_, err := c.Fetch(context.Background(), "AAPL", 90)
	if !errs.Is(err, errs.NoData) {
		t.Fatalf("error kind = %v, want NoData", errs.KindOf(err))
	}
}
