// Package sofascore wraps the public SofaScore-style sports-data API: entity
// search plus per-entity upcoming and recent event schedules. The resolution
// engine is its only consumer.
package sofascore

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/wagerlens/slipscan/internal/domain/sportevent"
	"github.com/wagerlens/slipscan/internal/platform/logging"
	"github.com/wagerlens/slipscan/internal/platform/resilience"
	"github.com/wagerlens/slipscan/internal/usecase"
)

const (
	defaultBaseURL = "https://api.sofascore.com/api/v1"
	defaultTimeout = 6 * time.Second

	// Candidate caps mirror how the search response is consumed: at most five
	// hits overall, and when the sport section is empty at most three players
	// and three teams from the generic scan.
	maxCandidates     = 5
	maxGenericPerKind = 3
)

var errSofaScoreTransient = crerr.New("sofascore transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

type searchEntity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type searchSection struct {
	Players []searchEntity `json:"players"`
	Teams   []searchEntity `json:"teams"`
}

// Search queries the provider's entity search, preferring the section for the
// hinted sport and falling back to a generic scan across all sections. Order
// is the provider's own relevance order; only truncation happens locally.
func (c *Client) Search(ctx context.Context, query, sportHint string) ([]sportevent.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", usecase.ErrInvalidInput)
	}

	var sections map[string]searchSection
	if err := c.doJSON(ctx, "/search", map[string]string{"q": query}, &sections); err != nil {
		return nil, fmt.Errorf("search query=%q: %w", query, err)
	}

	hint := strings.ToLower(strings.TrimSpace(sportHint))
	if hint != "" {
		if section, ok := sections[hint]; ok {
			if candidates := collectSection(section, 0); len(candidates) > 0 {
				return truncate(candidates, maxCandidates), nil
			}
		}
	}

	// Generic fallback: stable section order so repeated calls rank the same.
	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	var candidates []sportevent.Candidate
	for _, name := range names {
		candidates = append(candidates, collectSection(sections[name], maxGenericPerKind)...)
	}
	return truncate(candidates, maxCandidates), nil
}

// UpcomingEvents lists the entity's next scheduled fixtures.
func (c *Client) UpcomingEvents(ctx context.Context, externalID int64, kind sportevent.EntityKind) ([]sportevent.Event, error) {
	return c.events(ctx, externalID, kind, "next")
}

// PreviousEvents lists the entity's most recent finished or in-play fixtures,
// used when a slip references a match that already started.
func (c *Client) PreviousEvents(ctx context.Context, externalID int64, kind sportevent.EntityKind) ([]sportevent.Event, error) {
	return c.events(ctx, externalID, kind, "previous")
}

type eventName struct {
	Name string `json:"name"`
}

type eventPayload struct {
	HomeTeam       eventName `json:"homeTeam"`
	AwayTeam       eventName `json:"awayTeam"`
	Tournament     eventName `json:"tournament"`
	Season         eventName `json:"season"`
	StartTimestamp int64     `json:"startTimestamp"`
}

type eventsEnvelope struct {
	Events []eventPayload `json:"events"`
}

func (c *Client) events(ctx context.Context, externalID int64, kind sportevent.EntityKind, page string) ([]sportevent.Event, error) {
	if externalID <= 0 {
		return nil, fmt.Errorf("%w: entity id must be positive", usecase.ErrInvalidInput)
	}
	if kind != sportevent.KindPlayer && kind != sportevent.KindTeam {
		return nil, fmt.Errorf("%w: unknown entity kind %q", usecase.ErrInvalidInput, kind)
	}

	path := fmt.Sprintf("/%s/%d/events/%s/0", kind, externalID, page)
	var envelope eventsEnvelope
	if err := c.doJSON(ctx, path, nil, &envelope); err != nil {
		return nil, fmt.Errorf("fetch %s events %s=%d: %w", page, kind, externalID, err)
	}

	out := make([]sportevent.Event, 0, len(envelope.Events))
	for _, item := range envelope.Events {
		out = append(out, sportevent.Event{
			HomeName:       item.HomeTeam.Name,
			AwayName:       item.AwayTeam.Name,
			TournamentName: item.Tournament.Name,
			SeasonName:     item.Season.Name,
			StartTimestamp: item.StartTimestamp,
		})
	}
	return out, nil
}

func collectSection(section searchSection, perKindCap int) []sportevent.Candidate {
	out := make([]sportevent.Candidate, 0, len(section.Players)+len(section.Teams))
	out = appendEntities(out, section.Players, sportevent.KindPlayer, perKindCap)
	out = appendEntities(out, section.Teams, sportevent.KindTeam, perKindCap)
	return out
}

func appendEntities(out []sportevent.Candidate, entities []searchEntity, kind sportevent.EntityKind, perKindCap int) []sportevent.Candidate {
	taken := 0
	for _, entity := range entities {
		if entity.ID <= 0 || strings.TrimSpace(entity.Name) == "" {
			continue
		}
		if perKindCap > 0 && taken >= perKindCap {
			break
		}
		out = append(out, sportevent.Candidate{
			Kind:        kind,
			ExternalID:  entity.ID,
			DisplayName: entity.Name,
		})
		taken++
	}
	return out
}

func truncate(candidates []sportevent.Candidate, max int) []sportevent.Candidate {
	if len(candidates) > max {
		return candidates[:max]
	}
	return candidates
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "sofascore circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: sports data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isSofaScoreCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	// A payload that does not decode is a hard error for this query, never
	// silently partial data.
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}

	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errSofaScoreTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errSofaScoreTransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else if isRetryableStatus(resp.StatusCode) {
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errSofaScoreTransient, resp.StatusCode, abbreviateBody(raw))
			} else {
				return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "sofascore request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func isSofaScoreCircuitFailure(err error) bool {
	return err != nil && stderrors.Is(err, errSofaScoreTransient)
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}

func abbreviateBody(raw []byte) string {
	body := strings.TrimSpace(string(raw))
	if len(body) > 256 {
		return body[:256] + "..."
	}
	return body
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
