package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"perfect-slate/logging"
)

const oddsProvider = "the-odds-api"

// OddsAPIConfig configures the client
type OddsAPIConfig struct {
	BaseURL     string
	APIKey      string
	Regions     string
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
}

// OddsAPIClient talks to The Odds API v4
type OddsAPIClient struct {
	client    *http.Client
	cfg       OddsAPIConfig
	backoffFn func(attempt int) time.Duration
	logger    *logging.Logger
}

// The Odds API response structures
type OddsEvent struct {
	ID           string          `json:"id"`
	SportKey     string          `json:"sport_key"`
	CommenceTime time.Time       `json:"commence_time"`
	HomeTeam     string          `json:"home_team"`
	AwayTeam     string          `json:"away_team"`
	Bookmakers   []OddsBookmaker `json:"bookmakers"`
}

type OddsBookmaker struct {
	Key     string       `json:"key"`
	Title   string       `json:"title"`
	Markets []OddsMarket `json:"markets"`
}

type OddsMarket struct {
	Key      string        `json:"key"`
	Outcomes []OddsOutcome `json:"outcomes"`
}

type OddsOutcome struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Point *float64 `json:"point,omitempty"`
}

type ScoreEvent struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	CommenceTime time.Time   `json:"commence_time"`
	Completed    bool        `json:"completed"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Scores       []TeamScore `json:"scores"`
	LastUpdate   *time.Time  `json:"last_update"`
}

type TeamScore struct {
	Name  string `json:"name"`
	Score string `json:"score"`
}

// Quota is the usage reported in response headers
type Quota struct {
	Remaining string `json:"remaining"`
	Used      string `json:"used"`
}

// NewOddsAPIClient creates a client with linear retry backoff
func NewOddsAPIClient(cfg OddsAPIConfig) *OddsAPIClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.Regions == "" {
		cfg.Regions = "us"
	}
	backoff := cfg.Backoff
	return &OddsAPIClient{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		backoffFn: func(attempt int) time.Duration {
			return time.Duration(attempt) * backoff
		},
		logger: logging.WithPrefix("OddsAPI"),
	}
}

// GetOdds fetches spreads and totals for upcoming events of a sport
func (c *OddsAPIClient) GetOdds(ctx context.Context, sportKey string) ([]OddsEvent, Quota, error) {
	query := url.Values{}
	query.Set("regions", c.cfg.Regions)
	query.Set("markets", "spreads,totals")
	query.Set("oddsFormat", "american")

	var events []OddsEvent
	quota, err := c.get(ctx, "/v4/sports/"+sportKey+"/odds", query, &events)
	if err != nil {
		return nil, quota, err
	}
	c.logger.Infof("Fetched odds for %d %s events (remaining quota %s)", len(events), sportKey, quota.Remaining)
	return events, quota, nil
}

// GetScores fetches live and recently completed scores
func (c *OddsAPIClient) GetScores(ctx context.Context, sportKey string, daysFrom int) ([]ScoreEvent, Quota, error) {
	query := url.Values{}
	if daysFrom > 0 {
		query.Set("daysFrom", strconv.Itoa(daysFrom))
	}

	var events []ScoreEvent
	quota, err := c.get(ctx, "/v4/sports/"+sportKey+"/scores", query, &events)
	if err != nil {
		return nil, quota, err
	}
	c.logger.Infof("Fetched scores for %d %s events (remaining quota %s)", len(events), sportKey, quota.Remaining)
	return events, quota, nil
}

func (c *OddsAPIClient) get(ctx context.Context, path string, query url.Values, out interface{}) (Quota, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		quota, err := c.getOnce(ctx, path, query, out)
		if err == nil {
			return quota, nil
		}
		lastErr = err

		if !retryable(err) || attempt == c.cfg.MaxAttempts {
			return quota, err
		}

		c.logger.Warnf("Request %s failed (attempt %d/%d): %v", path, attempt, c.cfg.MaxAttempts, err)
		select {
		case <-ctx.Done():
			return quota, ctx.Err()
		case <-time.After(c.backoffFn(attempt)):
		}
	}
	return Quota{}, lastErr
}

func retryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient()
}

func (c *OddsAPIClient) getOnce(ctx context.Context, path string, query url.Values, out interface{}) (Quota, error) {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("apiKey", c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return Quota{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Quota{}, ctx.Err()
		}
		return Quota{}, &ProviderError{Provider: oddsProvider, Err: err}
	}
	defer resp.Body.Close()

	quota := Quota{
		Remaining: resp.Header.Get("x-requests-remaining"),
		Used:      resp.Header.Get("x-requests-used"),
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return quota, &RateLimitError{Provider: oddsProvider, RetryAfter: time.Duration(retryAfter) * time.Second}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return quota, &ProviderError{Provider: oddsProvider, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return quota, fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return quota, nil
}
