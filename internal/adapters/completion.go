package adapters

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Human/Assistant turn markers required by the text completions API.
const (
	humanPrefix     = "\n\nHuman: "
	assistantSuffix = "\n\nAssistant:"
)

// CompletionAdapter handles the single-field text completions format used by
// Claude Instant and Claude v2 on Bedrock.
//
// Request:  {"prompt": "\n\nHuman: ...\n\nAssistant:", "max_tokens_to_sample": N, ...}
// Response: {"completion": "..."}
type CompletionAdapter struct {
	BaseAdapter
}

// NewCompletionAdapter creates a new text completions adapter.
func NewCompletionAdapter() *CompletionAdapter {
	return &CompletionAdapter{
		BaseAdapter: BaseAdapter{
			name:   "anthropic-completion",
			family: FamilyCompletion,
		},
	}
}

type completionRequest struct {
	Prompt            string   `json:"prompt"`
	MaxTokensToSample int      `json:"max_tokens_to_sample"`
	Temperature       float64  `json:"temperature"`
	TopP              float64  `json:"top_p"`
	StopSequences     []string `json:"stop_sequences,omitempty"`
}

// FormatPrompt wraps a raw prompt in the Human/Assistant turn convention.
func FormatPrompt(prompt string) string {
	return humanPrefix + prompt + assistantSuffix
}

// BuildPayload builds a text completions request.
func (a *CompletionAdapter) BuildPayload(req CanonicalRequest, cfg ProviderConfig) (*BackendPayload, error) {
	if err := checkBuildInputs(req, cfg); err != nil {
		return nil, err
	}

	body, err := json.Marshal(&completionRequest{
		Prompt:            FormatPrompt(req.Prompt),
		MaxTokensToSample: cfg.MaxOutputTokens,
		Temperature:       cfg.Temperature,
		TopP:              cfg.TopP,
		StopSequences:     cfg.StopSequences,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", a.name, err)
	}
	if body, err = mergeExtraParams(body, cfg.ExtraParams); err != nil {
		return nil, err
	}

	return &BackendPayload{
		ModelID:     cfg.ModelID,
		Body:        body,
		ContentType: "application/json",
		Accept:      "*/*",
	}, nil
}

// ParseResponse extracts the "completion" field.
func (a *CompletionAdapter) ParseResponse(raw []byte) (*CanonicalResponse, error) {
	if !gjson.ValidBytes(raw) {
		return nil, malformed(a.family, "body is not valid JSON")
	}

	completion := gjson.GetBytes(raw, "completion")
	if completion.Type != gjson.String {
		return nil, malformed(a.family, "missing completion field")
	}

	return &CanonicalResponse{Text: strings.TrimSpace(completion.Str)}, nil
}

// checkBuildInputs guards BuildPayload against inputs the orchestrator
// should already have rejected.
func checkBuildInputs(req CanonicalRequest, cfg ProviderConfig) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return NewError(KindInvalidInput, "prompt is empty")
	}
	if cfg.MaxOutputTokens <= 0 {
		return NewError(KindConfiguration, fmt.Sprintf("max output tokens must be positive, got %d", cfg.MaxOutputTokens))
	}
	return nil
}

// Ensure CompletionAdapter implements Adapter
var _ Adapter = (*CompletionAdapter)(nil)
