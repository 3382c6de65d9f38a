package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/diplomats-club/internal/flight"
)

var ErrNoFlights = errors.New("no viable flights found")

const (
	defaultTimeout = 10 * time.Second
	maxAttempts    = 3
	backoffStep    = 1 * time.Second
	defaultMinETA  = 3
)

// Client talks to the flight position endpoint. It carries no request state
// of its own and is safe to share; each room suppresses its own overlapping
// requests.
type Client struct {
	baseURL string
	minETA  int
	http    *http.Client
	log     *zap.SugaredLogger
}

func New(baseURL string, log *zap.SugaredLogger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		minETA:  defaultMinETA,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     log,
	}
}

// Deal fetches two viable arrivals, walking the candidate airports after the
// requested one until a pair turns up.
func (c *Client) Deal(ctx context.Context, airport string) (flight.Flight, flight.Flight, error) {
	candidates := append([]string{airport}, flight.DealCandidates...)
	seen := map[string]bool{}

	var lastErr error
	for _, code := range candidates {
		if seen[code] {
			continue
		}
		seen[code] = true

		body, err := c.fetch(ctx, url.Values{
			"airport": {code},
			"minETA":  {fmt.Sprint(c.minETA)},
		})
		if err != nil {
			lastErr = err
			continue
		}
		a, b, err := parseDeal(body, code)
		if err != nil {
			lastErr = err
			continue
		}
		if !a.Valid() || !b.Valid() {
			lastErr = ErrNoFlights
			continue
		}
		return a, b, nil
	}

	if lastErr == nil {
		lastErr = ErrNoFlights
	}
	return flight.Flight{}, flight.Flight{}, fmt.Errorf("deal: %w", lastErr)
}

// Track refreshes position and ETA for the round's two flights.
func (c *Client) Track(ctx context.Context, airport string, ids []string) (map[string]Update, error) {
	body, err := c.fetch(ctx, url.Values{
		"airport": {airport},
		"track":   {strings.Join(ids, ",")},
	})
	if err != nil {
		return nil, fmt.Errorf("track: %w", err)
	}
	return parseTrack(body, ids)
}

// fetch runs one GET with retry: up to maxAttempts, linear backoff.
func (c *Client) fetch(ctx context.Context, query url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt-1) * backoffStep):
			}
		}

		body, err := c.get(ctx, query)
		if err == nil {
			return body, nil
		}
		lastErr = err
		c.log.Warnw("oracle fetch failed", "attempt", attempt, "error", err)
	}
	return nil, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) get(ctx context.Context, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("oracle status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
