// Package refine adjusts the style of finished transcripts through an LLM
// chat completion. Refinement is best-effort; callers fall back to the
// unrefined text when it fails.
package refine

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/fukudafukuo/VoiceNote/internal/domain"
)

const systemPrompt = `You are an expert copy editor for transcribed speech.
The text you receive was dictated, machine-transcribed and translated; it may
carry speech artifacts that survived earlier cleanup.

Rules, in priority order:
- Never drop, summarize or reorder anything the speaker said.
- Remove only residual fillers and obvious self-corrections.
- Keep the speaker's register; do not rewrite casual speech into formal prose.
- Return only the adjusted text, no commentary.`

var presetInstructions = map[string]string{
	"plain":      "Output plain prose without any markup.",
	"structured": "When the text covers multiple topics or lists requirements, organize it with ## headings and - bullet lists; wrap technical terms, file names and commands in backticks.",
}

// Config controls the refinement client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// completionClient is the slice of the OpenAI client the refiner needs.
type completionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Refiner implements ports.Refiner over the OpenAI chat completion API.
type Refiner struct {
	cfg    Config
	client completionClient
}

func NewRefiner(cfg Config) *Refiner {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Refiner{cfg: cfg, client: openai.NewClientWithConfig(clientCfg)}
}

// Available reports whether the refiner is configured with credentials.
func (r *Refiner) Available() bool {
	return strings.TrimSpace(r.cfg.APIKey) != ""
}

// AdjustStyle rewrites text according to the preset. Unknown presets use the
// base instructions only; empty input passes through untouched.
func (r *Refiner) AdjustStyle(ctx context.Context, text string, preset string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if !r.Available() {
		return "", fmt.Errorf("%w: refinement API key is not configured", domain.ErrRefinementFailed)
	}

	system := systemPrompt
	if extra, ok := presetInstructions[strings.ToLower(strings.TrimSpace(preset))]; ok {
		system += "\n\n" + extra
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.cfg.Model,
		Temperature: r.cfg.Temperature,
		MaxTokens:   r.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: "Adjust the style of the following transcript.\n\n" + text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrRefinementFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", domain.ErrRefinementFailed)
	}

	refined := strings.TrimSpace(resp.Choices[0].Message.Content)
	if refined == "" {
		return "", fmt.Errorf("%w: blank completion", domain.ErrRefinementFailed)
	}
	return refined, nil
}
