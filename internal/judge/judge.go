// Package judge scores discovery candidates against a written aesthetic
// description using an OpenAI-compatible chat completion endpoint.
package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/genre"
)

// ErrNotConfigured is returned by New when no API key or aesthetic is set.
// Callers skip the filter rather than fail the run.
var ErrNotConfigured = errors.New("judge not configured")

// Config configures the judgment client.
type Config struct {
	BaseURL   string
	Model     string
	APIKey    string
	Aesthetic string
	Timeout   time.Duration
}

// Candidate is what the judge sees of an artist.
type Candidate struct {
	Name   string           `json:"name"`
	Genres []genre.Category `json:"genres"`
	Tags   []string         `json:"tags,omitempty"`
}

// Verdict is the judge's decision for one candidate.
type Verdict struct {
	Name   string `json:"name"`
	Keep   bool   `json:"keep"`
	Reason string `json:"reason,omitempty"`
}

// Scorer returns verdicts for a batch of candidates. It may omit
// candidates it has no opinion on.
type Scorer interface {
	Score(ctx context.Context, batch []Candidate) ([]Verdict, error)
}

// Client is a Scorer backed by a chat completion model.
type Client struct {
	client    *openai.Client
	model     string
	aesthetic string
	logger    *slog.Logger
}

// New creates a Client.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" || strings.TrimSpace(cfg.Aesthetic) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		client:    openai.NewClientWithConfig(oc),
		model:     cfg.Model,
		aesthetic: strings.TrimSpace(cfg.Aesthetic),
		logger:    logger.With(slog.String("component", "judge")),
	}, nil
}

const systemPrompt = `You curate a roster of musicians for a listener with this taste:

%s

For every artist in the user's JSON list decide whether they fit. Reply with
a JSON object of the form {"verdicts":[{"name":"...","keep":true,"reason":"..."}]}
using each artist's name exactly as given. Keep reasons under 15 words.`

// Score asks the model for one verdict per candidate.
func (c *Client) Score(ctx context.Context, batch []Candidate) ([]Verdict, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("encoding candidates: %w", err)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(systemPrompt, c.aesthetic)},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}
	return parseVerdicts(resp.Choices[0].Message.Content)
}

// parseVerdicts extracts the verdict object from a model reply, tolerating
// prose or code fences around it.
func parseVerdicts(content string) ([]Verdict, error) {
	start, end := strings.Index(content, "{"), strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in reply %q", truncate(content, 80))
	}
	var out struct {
		Verdicts []Verdict `json:"verdicts"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("decoding verdicts: %w", err)
	}
	return out.Verdicts, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Rejection is a candidate the judge declined.
type Rejection struct {
	Candidate Candidate
	Reason    string
}

// Filter runs candidates through s in batches of batchSize. A batch whose
// scoring fails is kept whole, and candidates the judge does not mention
// are kept. Only a canceled context is returned as an error.
func Filter(ctx context.Context, s Scorer, candidates []Candidate, batchSize int, logger *slog.Logger) (kept []Candidate, rejected []Rejection, err error) {
	if batchSize <= 0 {
		batchSize = 20
	}
	for start := 0; start < len(candidates); start += batchSize {
		batch := candidates[start:min(start+batchSize, len(candidates))]
		verdicts, err := s.Score(ctx, batch)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return kept, rejected, ctxErr
			}
			logger.Warn("judge batch failed, keeping batch",
				slog.Int("batch_size", len(batch)),
				slog.Any("error", err))
			kept = append(kept, batch...)
			continue
		}

		byKey := make(map[string]Verdict, len(verdicts))
		for _, v := range verdicts {
			byKey[artist.NameKey(v.Name)] = v
		}
		for _, c := range batch {
			v, ok := byKey[artist.NameKey(c.Name)]
			if !ok || v.Keep {
				kept = append(kept, c)
				continue
			}
			rejected = append(rejected, Rejection{Candidate: c, Reason: v.Reason})
		}
	}
	return kept, rejected, nil
}
