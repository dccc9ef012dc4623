// Package adapters translates the gateway's canonical prompt/completion shapes
// to and from each backend model family's wire format.
//
// DESIGN: Every Bedrock model family expects a different request body and
// returns a different response body. Adapters hide those differences behind
// one Build/Parse pair:
//
//   - BuildPayload:  CanonicalRequest + ProviderConfig → BackendPayload
//   - ParseResponse: raw backend body → CanonicalResponse or *Error
//
// FLOW:
//  1. Orchestrator resolves an adapter from the Registry
//  2. Adapter builds the family-specific payload
//  3. Invoker sends the payload to the backend (see package external)
//  4. Adapter parses the backend body back into canonical form
//
// To add a new model family: implement Adapter and register it in NewRegistry.
package adapters

import (
	"fmt"
	"strings"

	"github.com/tidwall/sjson"
)

// Family identifies a backend wire format.
type Family string

const (
	FamilyCompletion Family = "anthropic-completion"
	FamilyMessages   Family = "anthropic-messages"
	FamilyTitan      Family = "amazon-titan"
)

// String returns the family tag.
func (f Family) String() string {
	return string(f)
}

// =============================================================================
// CANONICAL SHAPES
// =============================================================================

// CanonicalRequest is the backend-agnostic inbound request.
type CanonicalRequest struct {
	Prompt string
}

// CanonicalResponse is the backend-agnostic completion. Text is always trimmed.
type CanonicalResponse struct {
	Text string
}

// ProviderConfig carries the invocation parameters for the configured model.
// Loaded once at startup and read-only afterwards.
type ProviderConfig struct {
	ProviderID      string         // Family tag or model id used for adapter resolution
	ModelID         string         // Bedrock model id, e.g. "anthropic.claude-instant-v1"
	MaxOutputTokens int            // Upper bound on generated tokens (> 0)
	ProtocolVersion string         // Required by some families (anthropic_version)
	Temperature     float64        // [0, 1]
	TopP            float64        // [0, 1]
	StopSequences   []string       // Optional stop sequences
	ExtraParams     map[string]any // Merged into the top level of the request body
}

// BackendPayload is the family-shaped request produced by an adapter.
// Only the owning adapter knows the layout of Body.
type BackendPayload struct {
	ModelID     string
	Body        []byte
	ContentType string
	Accept      string
}

// =============================================================================
// ADAPTER INTERFACE
// =============================================================================

// Adapter translates between canonical shapes and one backend family.
// Adapters are stateless and thread-safe.
type Adapter interface {
	// Name returns the adapter identifier (e.g., "anthropic-messages")
	Name() string

	// Family returns the wire format handled by this adapter
	Family() Family

	// BuildPayload produces the backend request body. Pure: no I/O.
	BuildPayload(req CanonicalRequest, cfg ProviderConfig) (*BackendPayload, error)

	// ParseResponse extracts the completion from a raw backend body.
	// Unrecognized shapes yield *Error with KindMalformedBackendResponse.
	ParseResponse(raw []byte) (*CanonicalResponse, error)
}

// BaseAdapter provides common functionality for all adapters.
type BaseAdapter struct {
	name   string
	family Family
}

// Name returns the adapter name.
func (a *BaseAdapter) Name() string {
	return a.name
}

// Family returns the wire format.
func (a *BaseAdapter) Family() Family {
	return a.family
}

// extraParamKeyChars are sjson path metacharacters. A key containing one
// would address a nested path instead of a top-level field.
const extraParamKeyChars = `.*?|#@\:!`

// ValidateExtraParamKey reports whether key can be set as a top-level field.
func ValidateExtraParamKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("extra parameter key is empty")
	}
	if i := strings.IndexAny(key, extraParamKeyChars); i >= 0 {
		return fmt.Errorf("extra parameter key %q contains %q", key, key[i])
	}
	return nil
}

// mergeExtraParams sets each extra parameter at the top level of body.
// Keys already written by the adapter are overwritten.
func mergeExtraParams(body []byte, extra map[string]any) ([]byte, error) {
	var err error
	for key, value := range extra {
		if kerr := ValidateExtraParamKey(key); kerr != nil {
			return nil, newError(KindConfiguration, "invalid extra parameter", kerr)
		}
		body, err = sjson.SetBytes(body, key, value)
		if err != nil {
			return nil, newError(KindConfiguration, "invalid extra parameter "+key, err)
		}
	}
	return body, nil
}
