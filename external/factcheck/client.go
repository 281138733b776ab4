// Package factcheck resolves fixtures through a browsing-capable model
// constrained to trusted sports domains. It is the last stage of the
// resolution pipeline and only ever confirms, never guesses: a result whose
// source lies outside the allow-list is discarded wholesale.
package factcheck

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	openai "github.com/sashabaranov/go-openai"

	"github.com/wagerlens/slipscan/internal/domain/sportevent"
	"github.com/wagerlens/slipscan/internal/platform/logging"
)

const (
	defaultModel   = openai.GPT4oMini
	defaultTimeout = 20 * time.Second
)

// allowedDomains maps a sport hint to the domains a verification answer may
// cite. Subdomains of a listed domain are accepted, anything else is not.
var allowedDomains = map[string][]string{
	"tennis": {
		"atptour.com",
		"wtatennis.com",
		"itftennis.com",
		"sofascore.com",
		"flashscore.com",
		"espn.com",
	},
	"football": {
		"uefa.com",
		"fifa.com",
		"premierleague.com",
		"laliga.com",
		"sofascore.com",
		"flashscore.com",
		"espn.com",
	},
	"basketball": {
		"nba.com",
		"euroleaguebasketball.net",
		"fiba.basketball",
		"sofascore.com",
		"flashscore.com",
		"espn.com",
	},
}

// defaultAllowedDomains covers sports without a dedicated list.
var defaultAllowedDomains = []string{
	"sofascore.com",
	"flashscore.com",
	"espn.com",
}

// chatCompleter is the slice of the OpenAI client the verifier needs.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type ClientConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *logging.Logger
}

type Client struct {
	completer chatCompleter
	model     string
	timeout   time.Duration
	logger    *logging.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("factcheck: API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Client{
		completer: openai.NewClientWithConfig(clientConfig),
		model:     model,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// verificationPayload is the JSON object the model is instructed to return.
type verificationPayload struct {
	Tournament string `json:"tournament"`
	StartISO   string `json:"startIso"`
	Timezone   string `json:"tz"`
	SourceURL  string `json:"sourceUrl"`
}

// VerifyFixture asks the model to confirm the fixture against trusted sites.
// ok=false covers every non-confident outcome: no answer, malformed answer,
// missing kickoff time, or a citation outside the sport's allow-list.
func (c *Client) VerifyFixture(ctx context.Context, matchText, sportHint string) (sportevent.Resolution, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.completer.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: verifierSystemPrompt(sportHint),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Match: %s\nSport: %s", matchText, displaySport(sportHint)),
			},
		},
		Temperature:    0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return sportevent.Resolution{}, false, fmt.Errorf("factcheck: completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return sportevent.Resolution{}, false, nil
	}

	raw := trimJSONFence(resp.Choices[0].Message.Content)
	var payload verificationPayload
	if err := sonic.Unmarshal([]byte(raw), &payload); err != nil {
		c.logger.DebugContext(ctx, "verifier returned unparseable payload", "error", err)
		return sportevent.Resolution{}, false, nil
	}

	if !hostAllowed(payload.SourceURL, sportHint) {
		c.logger.DebugContext(ctx, "verifier citation outside allow-list",
			"source_url", payload.SourceURL,
			"sport", sportHint,
		)
		return sportevent.Resolution{}, false, nil
	}

	startAt, err := time.Parse(time.RFC3339, payload.StartISO)
	if err != nil {
		return sportevent.Resolution{}, false, nil
	}

	return sportevent.Resolution{
		Tournament: strings.TrimSpace(payload.Tournament),
		StartAt:    startAt.UTC(),
	}, true, nil
}

func verifierSystemPrompt(sportHint string) string {
	domains := domainsForSport(sportHint)
	return fmt.Sprintf(
		"You verify upcoming %s fixtures. Consult ONLY these sites: %s. "+
			"Respond with a JSON object {\"tournament\": string, \"startIso\": string (RFC 3339 UTC), \"tz\": string, \"sourceUrl\": string}. "+
			"sourceUrl must be the page the answer came from. "+
			"If you cannot confirm the fixture from those sites, return {\"tournament\": \"\", \"startIso\": \"\", \"tz\": \"\", \"sourceUrl\": \"\"}.",
		displaySport(sportHint),
		strings.Join(domains, ", "),
	)
}

func displaySport(sportHint string) string {
	s := strings.ToLower(strings.TrimSpace(sportHint))
	if s == "" {
		return "sports"
	}
	return s
}

func domainsForSport(sportHint string) []string {
	if domains, ok := allowedDomains[strings.ToLower(strings.TrimSpace(sportHint))]; ok {
		return domains
	}
	return defaultAllowedDomains
}

// hostAllowed accepts a URL whose host is a listed domain or a subdomain of
// one. A blank or unparseable URL is never allowed.
func hostAllowed(rawURL, sportHint string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}

	host := strings.ToLower(parsed.Host)
	if idx := strings.Index(host, ":"); idx > 0 {
		host = host[:idx]
	}
	host = strings.TrimPrefix(host, "www.")

	for _, domain := range domainsForSport(sportHint) {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// trimJSONFence strips a markdown code fence if the model wrapped its answer
// in one despite the JSON response format.
func trimJSONFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
