// Package vision reads betting slip photos with a multimodal model and turns
// them into raw selection lines for the resolution pipeline.
package vision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	openai "github.com/sashabaranov/go-openai"

	"github.com/wagerlens/slipscan/internal/domain/slip"
	"github.com/wagerlens/slipscan/internal/platform/logging"
)

const (
	defaultModel   = openai.GPT4o
	defaultTimeout = 30 * time.Second
	maxSelections  = 25
)

const extractorSystemPrompt = `You read photos of betting slips. Extract every wager line you can see.
Respond with a JSON object: {"selections": [{"matchText": string, "tournamentText": string, "startTimeText": string, "market": string, "pick": string, "odds": number, "bookmakerText": string, "sportHint": string}]}.
matchText is the two participants exactly as printed (e.g. "J. Sinner vs F. Cerundolo").
sportHint is a lowercase sport name ("tennis", "football", "basketball") or "" when unclear.
Use "" for any text you cannot read and 0 for unreadable odds. Never invent lines that are not on the slip.`

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type ExtractorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *logging.Logger
}

// Extractor turns one slip image into raw selections.
type Extractor struct {
	completer chatCompleter
	model     string
	timeout   time.Duration
	logger    *logging.Logger
}

func NewExtractor(cfg ExtractorConfig) (*Extractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("vision: API key is required")
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

	return &Extractor{
		completer: openai.NewClientWithConfig(clientConfig),
		model:     model,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

type extractionPayload struct {
	Selections []rawSelectionPayload `json:"selections"`
}

type rawSelectionPayload struct {
	MatchText      string  `json:"matchText"`
	TournamentText string  `json:"tournamentText"`
	StartTimeText  string  `json:"startTimeText"`
	Market         string  `json:"market"`
	Pick           string  `json:"pick"`
	Odds           float64 `json:"odds"`
	BookmakerText  string  `json:"bookmakerText"`
	SportHint      string  `json:"sportHint"`
}

// Extract reads the slip image at imageURL. An image the model cannot read as
// a slip yields an empty list, not an error.
func (e *Extractor) Extract(ctx context.Context, imageURL string) ([]slip.RawSelection, error) {
	if strings.TrimSpace(imageURL) == "" {
		return nil, fmt.Errorf("vision: image URL is required")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.completer.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: extractorSystemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: "Extract every selection from this slip.",
					},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageURL, Detail: openai.ImageURLDetailHigh},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return nil, fmt.Errorf("vision: completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("vision: empty completion response")
	}

	raw := trimJSONFence(resp.Choices[0].Message.Content)
	var payload extractionPayload
	if err := sonic.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("vision: decode extraction payload: %w", err)
	}

	if len(payload.Selections) > maxSelections {
		e.logger.WarnContext(ctx, "extraction truncated",
			"extracted", len(payload.Selections),
			"kept", maxSelections,
		)
		payload.Selections = payload.Selections[:maxSelections]
	}

	selections := make([]slip.RawSelection, 0, len(payload.Selections))
	for _, item := range payload.Selections {
		if strings.TrimSpace(item.MatchText) == "" {
			continue
		}
		selections = append(selections, slip.RawSelection{
			MatchText:      strings.TrimSpace(item.MatchText),
			TournamentText: strings.TrimSpace(item.TournamentText),
			StartTimeText:  strings.TrimSpace(item.StartTimeText),
			Market:         strings.TrimSpace(item.Market),
			Pick:           strings.TrimSpace(item.Pick),
			Odds:           item.Odds,
			BookmakerText:  strings.TrimSpace(item.BookmakerText),
			SportHint:      strings.ToLower(strings.TrimSpace(item.SportHint)),
		})
	}
	return selections, nil
}

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
