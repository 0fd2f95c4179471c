// Package gameclient talks to the remote admission game over HTTP. It owns
// everything the decision engine must not: throttling, retries and decoding
// of the wire format.
package gameclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nightgate/nightgate/pkg/admission"
	"github.com/nightgate/nightgate/pkg/metrics"
	"github.com/nightgate/nightgate/pkg/model"
)

const (
	endpointNewGame       = "/new-game"
	endpointDecideAndNext = "/decide-and-next"

	defaultCapacity = 1000
	maxErrorBody    = 1 << 10
)

var (
	ErrNoGame           = errors.New("no game started")
	ErrUnexpectedStatus = errors.New("unexpected game status")
)

type Config struct {
	BaseURL        string        `mapstructure:"base_url"`
	PlayerID       string        `mapstructure:"player_id"`
	Scenario       int           `mapstructure:"scenario"`
	UserAgent      string        `mapstructure:"user_agent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Throttle       time.Duration `mapstructure:"throttle"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BackoffBase    time.Duration `mapstructure:"backoff_base"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"`
}

// StatusError is returned for non-retryable HTTP responses.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Endpoint, e.Code, e.Body)
}

type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	gameID     string
}

func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("game base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse game base url: %w", err)
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if cfg.Throttle > 0 {
		limit = rate.Every(cfg.Throttle)
	}

	return &Client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}, nil
}

func (c *Client) GameID() string { return c.gameID }

type newGameResponse struct {
	GameID              string             `json:"gameId"`
	TargetAdmissions    int                `json:"targetAdmissions"`
	Constraints         []model.Constraint `json:"constraints"`
	AttributeStatistics struct {
		RelativeFrequencies map[string]float64 `json:"relativeFrequencies"`
	} `json:"attributeStatistics"`
}

type decideResponse struct {
	Status        string           `json:"status"`
	AdmittedCount int              `json:"admittedCount"`
	RejectedCount int              `json:"rejectedCount"`
	NextPerson    *model.Candidate `json:"nextPerson"`
	Reason        string           `json:"reason"`
}

// NewGame starts a game and remembers its id for the Start and Decide calls
// that follow. An empty playerID falls back to the configured one.
func (c *Client) NewGame(ctx context.Context, scenario int, playerID string) (*model.Game, error) {
	if playerID == "" {
		playerID = c.cfg.PlayerID
	}
	if playerID == "" {
		return nil, errors.New("player id is required")
	}
	query := url.Values{}
	query.Set("scenario", strconv.Itoa(scenario))
	query.Set("playerId", playerID)

	var resp newGameResponse
	if err := c.get(ctx, endpointNewGame, query, &resp); err != nil {
		return nil, err
	}
	if resp.GameID == "" {
		return nil, errors.New("new game response has no game id")
	}

	capacity := resp.TargetAdmissions
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	frequencies := resp.AttributeStatistics.RelativeFrequencies
	if frequencies == nil {
		frequencies = map[string]float64{}
	}

	c.gameID = resp.GameID
	c.logger.Info("game created",
		zap.String("game_id", resp.GameID),
		zap.Int("scenario", scenario),
		zap.Int("capacity", capacity),
		zap.Int("constraints", len(resp.Constraints)),
	)

	return &model.Game{
		ID:          resp.GameID,
		Capacity:    capacity,
		Constraints: resp.Constraints,
		Frequencies: frequencies,
	}, nil
}

func (c *Client) Start(ctx context.Context) (admission.Step, error) {
	return c.decideAndNext(ctx, 0, nil)
}

func (c *Client) Decide(ctx context.Context, index int, accept bool) (admission.Step, error) {
	return c.decideAndNext(ctx, index, &accept)
}

func (c *Client) decideAndNext(ctx context.Context, index int, accept *bool) (admission.Step, error) {
	if c.gameID == "" {
		return admission.Step{}, ErrNoGame
	}
	query := url.Values{}
	query.Set("gameId", c.gameID)
	query.Set("personIndex", strconv.Itoa(index))
	if accept != nil {
		query.Set("accept", strconv.FormatBool(*accept))
	}

	var resp decideResponse
	if err := c.get(ctx, endpointDecideAndNext, query, &resp); err != nil {
		return admission.Step{}, err
	}
	return toStep(resp)
}

func toStep(resp decideResponse) (admission.Step, error) {
	step := admission.Step{
		Status:        model.GameStatus(resp.Status),
		Candidate:     resp.NextPerson,
		RejectedCount: resp.RejectedCount,
		Reason:        resp.Reason,
	}
	switch step.Status {
	case model.GameRunning, model.GameCompleted, model.GameFailed:
		return step, nil
	default:
		return admission.Step{}, fmt.Errorf("%w: %q", ErrUnexpectedStatus, resp.Status)
	}
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	target := c.baseURL + endpoint + "?" + query.Encode()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			metrics.GameRequestRetries.WithLabelValues(endpoint).Inc()
			if err := sleep(ctx, calculateBackoff(c.cfg.BackoffBase, c.cfg.BackoffMax, attempt-1)); err != nil {
				return err
			}
		}

		retry, err := c.do(ctx, endpoint, target, out)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retry {
			return err
		}
		lastErr = err
		c.logger.Warn("game request failed, retrying",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return fmt.Errorf("%s failed after %d attempts: %w", endpoint, c.cfg.MaxAttempts, lastErr)
}

// do performs one request and reports whether a failure is worth retrying.
func (c *Client) do(ctx context.Context, endpoint, target string, out interface{}) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, err
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.GameRequestDuration.WithLabelValues(endpoint, "error").Observe(time.Since(start).Seconds())
		return true, err
	}
	defer resp.Body.Close()
	metrics.GameRequestDuration.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		return retryableStatus(resp.StatusCode), statusErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return false, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
