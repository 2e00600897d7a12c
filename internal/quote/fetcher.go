// Package quote fetches daily OHLCV series from an upstream chart provider.
// The wire format is Yahoo-Finance-chart-shaped: a nested JSON object with a
// timestamp array and parallel open/high/low/close/volume arrays, any of
// which may contain nulls. A null close drops that bar; a null in any other
// array leaves that field at its zero value on the bar.
package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sort"
	"time"

	"marketanalysis/internal/errs"
	"marketanalysis/internal/models"
)

const userAgent = "Mozilla/5.0 (compatible; marketanalysis-engine/1.0)"

// Fetcher retrieves a PriceSeries for a symbol.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, days int) (models.PriceSeries, error)
}

// Options configures a Client's retry/pacing behavior. All durations are
// per-call (the fetcher's own retry loop), independent of the scheduler's
// cross-symbol pacing.
type Options struct {
	BaseURL      string
	HTTPTimeout  time.Duration
	RetryMax     int
	BackoffBase  time.Duration
	JitterMax    time.Duration
}

// Client is the Yahoo-chart-shaped Fetcher implementation.
type Client struct {
	httpClient *http.Client
	baseURL    string
	retryMax   int
	backoff    time.Duration
	jitterMax  time.Duration
	rand       *rand.Rand
	sleep      func(ctx context.Context, d time.Duration) error
}

// New builds a Client with the given options, filling in sane defaults for
// anything left zero.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://query1.finance.yahoo.com"
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 30 * time.Second
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 2 * time.Second
	}
	c := &Client{
		httpClient: &http.Client{Timeout: opts.HTTPTimeout},
		baseURL:    opts.BaseURL,
		retryMax:   opts.RetryMax,
		backoff:    opts.BackoffBase,
		jitterMax:  opts.JitterMax,
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	c.sleep = c.defaultSleep
	return c
}

func (c *Client) defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fetch issues the request, retrying on RateLimited/Transient per §4.2: the
// backoff base doubles each attempt and a uniform jitter is added. NoData is
// never retried.
func (c *Client) Fetch(ctx context.Context, symbol string, days int) (models.PriceSeries, error) {
	delay := c.backoff
	var lastErr error

	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			wait := delay
			if c.jitterMax > 0 {
				wait += time.Duration(c.rand.Int63n(int64(c.jitterMax) + 1))
			}
			if err := c.sleep(ctx, wait); err != nil {
				return models.PriceSeries{}, err
			}
			delay *= 2
		}

		series, err := c.fetchOnce(ctx, symbol, days)
		if err == nil {
			return series, nil
		}
		lastErr = err
		if !retryable(err) {
			return models.PriceSeries{}, err
		}
	}
	return models.PriceSeries{}, lastErr
}

func retryable(err error) bool {
	kind := errs.KindOf(err)
	return kind == errs.RateLimited || kind == errs.Transient
}

func (c *Client) fetchOnce(ctx context.Context, symbol string, days int) (models.PriceSeries, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s", c.baseURL, symbol, rangeForDays(days))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.PriceSeries{}, errs.New(errs.Transient, "quote.fetchOnce", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.PriceSeries{}, errs.New(errs.Transient, "quote.fetchOnce", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return models.PriceSeries{}, errs.New(errs.RateLimited, "quote.fetchOnce", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound:
		return models.PriceSeries{}, errs.New(errs.NoData, "quote.fetchOnce", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return models.PriceSeries{}, errs.New(errs.Transient, "quote.fetchOnce", fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.PriceSeries{}, errs.New(errs.Transient, "quote.fetchOnce", err)
	}

	return parseChartResponse(symbol, body)
}

func rangeForDays(days int) string {
	switch {
	case days <= 90:
		return "6mo"
	case days <= 180:
		return "1y"
	case days <= 365:
		return "2y"
	default:
		return "5y"
	}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

func parseChartResponse(symbol string, body []byte) (models.PriceSeries, error) {
	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return models.PriceSeries{}, errs.New(errs.Transient, "quote.parseChartResponse", err)
	}

	if parsed.Chart.Error != nil {
		return models.PriceSeries{}, errs.New(errs.NoData, "quote.parseChartResponse", fmt.Errorf("%s", parsed.Chart.Error.Description))
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return models.PriceSeries{}, errs.New(errs.NoData, "quote.parseChartResponse", fmt.Errorf("empty result for %s", symbol))
	}

	result := parsed.Chart.Result[0]
	q := result.Indicators.Quote[0]

	bars := make([]models.HistoricalBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		bar := models.HistoricalBar{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *q.Close[i],
		}
		if i < len(q.Open) && q.Open[i] != nil {
			bar.Open = *q.Open[i]
		}
		if i < len(q.High) && q.High[i] != nil {
			bar.High = *q.High[i]
		}
		if i < len(q.Low) && q.Low[i] != nil {
			bar.Low = *q.Low[i]
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return models.PriceSeries{}, errs.New(errs.NoData, "quote.parseChartResponse", fmt.Errorf("no usable bars for %s", symbol))
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	return models.PriceSeries{Symbol: symbol, Bars: bars}, nil
}
