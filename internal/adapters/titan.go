package adapters

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// TitanAdapter handles the result-array format of Amazon Titan text models.
//
// Request:  {"inputText": "...", "textGenerationConfig": {"maxTokenCount": N, ...}}
// Response: {"results": [{"outputText": "..."}]} or, on some model versions,
// {"outputText": "..."} at the top level.
type TitanAdapter struct {
	BaseAdapter
}

// NewTitanAdapter creates a new Titan adapter.
func NewTitanAdapter() *TitanAdapter {
	return &TitanAdapter{
		BaseAdapter: BaseAdapter{
			name:   "amazon-titan",
			family: FamilyTitan,
		},
	}
}

type titanRequest struct {
	InputText            string               `json:"inputText"`
	TextGenerationConfig titanGenerationConfig `json:"textGenerationConfig"`
}

type titanGenerationConfig struct {
	MaxTokenCount int      `json:"maxTokenCount"`
	StopSequences []string `json:"stopSequences"`
	Temperature   float64  `json:"temperature"`
	TopP          float64  `json:"topP"`
}

// BuildPayload builds a Titan text generation request.
func (a *TitanAdapter) BuildPayload(req CanonicalRequest, cfg ProviderConfig) (*BackendPayload, error) {
	if err := checkBuildInputs(req, cfg); err != nil {
		return nil, err
	}

	// Titan wants the field present even when empty.
	stops := cfg.StopSequences
	if stops == nil {
		stops = []string{}
	}

	body, err := json.Marshal(&titanRequest{
		InputText: req.Prompt,
		TextGenerationConfig: titanGenerationConfig{
			MaxTokenCount: cfg.MaxOutputTokens,
			StopSequences: stops,
			Temperature:   cfg.Temperature,
			TopP:          cfg.TopP,
		},
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

// ParseResponse uses results[0].outputText, falling back to a top-level
// outputText. The fallback must be non-empty; an empty one is unrecognized.
func (a *TitanAdapter) ParseResponse(raw []byte) (*CanonicalResponse, error) {
	if !gjson.ValidBytes(raw) {
		return nil, malformed(a.family, "body is not valid JSON")
	}

	results := gjson.GetBytes(raw, "results")
	if results.IsArray() && len(results.Array()) > 0 {
		output := results.Array()[0].Get("outputText")
		if output.Type != gjson.String {
			return nil, malformed(a.family, "first result has no outputText")
		}
		return &CanonicalResponse{Text: strings.TrimSpace(output.Str)}, nil
	}

	if output := gjson.GetBytes(raw, "outputText"); output.Type == gjson.String && output.Str != "" {
		return &CanonicalResponse{Text: strings.TrimSpace(output.Str)}, nil
	}

	return nil, malformed(a.family, "output structure not recognized")
}

// Ensure TitanAdapter implements Adapter
var _ Adapter = (*TitanAdapter)(nil)
