package adapters

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultMessagesVersion is the anthropic_version Bedrock requires in the body.
const DefaultMessagesVersion = "bedrock-2023-05-31"

// MessagesAdapter handles the structured turn-list format (Claude 3 and
// later on Bedrock).
//
// Request:  {"anthropic_version": V, "max_tokens": N, "messages": [{"role": "user", "content": [{"type": "text", "text": "..."}]}]}
// Response: {"content": [{"type": "text", "text": "..."}]}
//
// Only text-typed content blocks are understood. A response whose blocks are
// all of another type fails with KindUnsupportedContent instead of being
// silently replaced.
type MessagesAdapter struct {
	BaseAdapter
}

// NewMessagesAdapter creates a new messages adapter.
func NewMessagesAdapter() *MessagesAdapter {
	return &MessagesAdapter{
		BaseAdapter: BaseAdapter{
			name:   "anthropic-messages",
			family: FamilyMessages,
		},
	}
}

type messagesRequest struct {
	AnthropicVersion string         `json:"anthropic_version"`
	MaxTokens        int            `json:"max_tokens"`
	Temperature      float64        `json:"temperature"`
	TopP             float64        `json:"top_p"`
	StopSequences    []string       `json:"stop_sequences,omitempty"`
	Messages         []messageBlock `json:"messages"`
}

type messageBlock struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// BuildPayload builds a single-turn messages request.
func (a *MessagesAdapter) BuildPayload(req CanonicalRequest, cfg ProviderConfig) (*BackendPayload, error) {
	if err := checkBuildInputs(req, cfg); err != nil {
		return nil, err
	}

	version := cfg.ProtocolVersion
	if version == "" {
		version = DefaultMessagesVersion
	}

	body, err := json.Marshal(&messagesRequest{
		AnthropicVersion: version,
		MaxTokens:        cfg.MaxOutputTokens,
		Temperature:      cfg.Temperature,
		TopP:             cfg.TopP,
		StopSequences:    cfg.StopSequences,
		Messages: []messageBlock{{
			Role:    "user",
			Content: []contentBlock{{Type: "text", Text: req.Prompt}},
		}},
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
		Accept:      "application/json",
	}, nil
}

// ParseResponse takes the first text-typed content block.
func (a *MessagesAdapter) ParseResponse(raw []byte) (*CanonicalResponse, error) {
	if !gjson.ValidBytes(raw) {
		return nil, malformed(a.family, "body is not valid JSON")
	}

	content := gjson.GetBytes(raw, "content")
	if !content.IsArray() || len(content.Array()) == 0 {
		return nil, malformed(a.family, "missing content blocks")
	}

	var seen []string
	for _, block := range content.Array() {
		blockType := block.Get("type").String()
		if blockType != "text" {
			seen = append(seen, blockType)
			continue
		}
		text := block.Get("text")
		if text.Type != gjson.String {
			return nil, malformed(a.family, "text block without text")
		}
		return &CanonicalResponse{Text: strings.TrimSpace(text.Str)}, nil
	}

	return nil, &Error{
		Kind:    KindUnsupportedContent,
		Message: fmt.Sprintf("no text content block in %s response (got %s)", a.family, strings.Join(seen, ", ")),
	}
}

// Ensure MessagesAdapter implements Adapter
var _ Adapter = (*MessagesAdapter)(nil)
