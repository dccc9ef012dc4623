// Registry maps provider identifiers to adapters.
//
// DESIGN: Resolution is static. A provider id is either an exact family tag
// ("anthropic-messages") or a Bedrock model id whose prefix identifies the
// family ("amazon.titan-text-lite-v1"). The backend is never probed.
// Built-in adapters are registered at construction; the registry is
// read-only afterwards, so lookups need no locking.
package adapters

import (
	"fmt"
	"strings"
)

// Defaults holds per-family invocation parameters applied when configuration
// leaves them unset.
type Defaults struct {
	MaxOutputTokens int
	ProtocolVersion string
}

// prefixRule maps a model id prefix to a family. Rules are checked in order,
// so more specific prefixes must come first.
type prefixRule struct {
	prefix string
	family Family
}

var defaultPrefixRules = []prefixRule{
	{prefix: "anthropic.claude-3", family: FamilyMessages},
	{prefix: "anthropic.claude-sonnet", family: FamilyMessages},
	{prefix: "anthropic.claude-opus", family: FamilyMessages},
	{prefix: "anthropic.claude-haiku", family: FamilyMessages},
	{prefix: "anthropic.claude", family: FamilyCompletion},
	{prefix: "amazon.titan-text", family: FamilyTitan},
}

type entry struct {
	adapter  Adapter
	defaults Defaults
}

// Registry manages adapter registration and lookup.
type Registry struct {
	adapters map[Family]entry
	rules    []prefixRule
}

// NewRegistry creates a new adapter registry with all built-in adapters.
func NewRegistry() *Registry {
	r := &Registry{
		adapters: make(map[Family]entry),
		rules:    defaultPrefixRules,
	}

	r.Register(NewCompletionAdapter(), Defaults{MaxOutputTokens: 500})
	r.Register(NewMessagesAdapter(), Defaults{MaxOutputTokens: 1024, ProtocolVersion: DefaultMessagesVersion})
	r.Register(NewTitanAdapter(), Defaults{MaxOutputTokens: 512})

	return r
}

// Register adds an adapter with its defaults. Not safe for use after the
// registry has been shared between goroutines.
func (r *Registry) Register(adapter Adapter, defaults Defaults) {
	r.adapters[adapter.Family()] = entry{adapter: adapter, defaults: defaults}
}

// Families returns the registered family tags.
func (r *Registry) Families() []Family {
	out := make([]Family, 0, len(r.adapters))
	for _, f := range []Family{FamilyCompletion, FamilyMessages, FamilyTitan} {
		if _, ok := r.adapters[f]; ok {
			out = append(out, f)
		}
	}
	for f := range r.adapters {
		if f != FamilyCompletion && f != FamilyMessages && f != FamilyTitan {
			out = append(out, f)
		}
	}
	return out
}

// Resolve returns the adapter for a family tag or model id.
// Fails with KindUnknownProvider when nothing matches.
func (r *Registry) Resolve(providerID string) (Adapter, error) {
	family, ok := r.familyFor(providerID)
	if !ok {
		return nil, &Error{
			Kind:    KindUnknownProvider,
			Message: fmt.Sprintf("unknown provider %q", providerID),
		}
	}
	return r.adapters[family].adapter, nil
}

// Defaults returns the invocation defaults for a family tag or model id.
func (r *Registry) Defaults(providerID string) (Defaults, bool) {
	family, ok := r.familyFor(providerID)
	if !ok {
		return Defaults{}, false
	}
	return r.adapters[family].defaults, true
}

// ApplyDefaults fills zero-valued fields of cfg from the family defaults.
// cfg is returned unchanged when the provider is unknown.
func (r *Registry) ApplyDefaults(cfg ProviderConfig) ProviderConfig {
	d, ok := r.Defaults(cfg.ProviderID)
	if !ok {
		return cfg
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = d.MaxOutputTokens
	}
	if cfg.ProtocolVersion == "" {
		cfg.ProtocolVersion = d.ProtocolVersion
	}
	return cfg
}

func (r *Registry) familyFor(providerID string) (Family, bool) {
	id := strings.ToLower(strings.TrimSpace(providerID))
	if id == "" {
		return "", false
	}
	if _, ok := r.adapters[Family(id)]; ok {
		return Family(id), true
	}

	// Cross-region inference profiles prefix the model id with a geography.
	for _, geo := range []string{"us.", "eu.", "apac.", "global."} {
		if strings.HasPrefix(id, geo) {
			id = strings.TrimPrefix(id, geo)
			break
		}
	}
	for _, rule := range r.rules {
		if strings.HasPrefix(id, rule.prefix) {
			if _, ok := r.adapters[rule.family]; ok {
				return rule.family, true
			}
		}
	}
	return "", false
}
