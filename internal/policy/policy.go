// Package policy implements the Strategy pattern for app-specific blocking rules.
// Each app has its own policy defining which process names mark it as blocked.
package policy

import (
	"strings"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

// AppPolicy defines the strategy interface for blocking an application.
type AppPolicy interface {
	// ID returns unique identifier (e.g., "league").
	ID() string

	// Name returns human-readable name for display.
	Name() string

	// Keywords returns substrings that identify the app's processes.
	// Keywords are matched case-insensitively.
	Keywords() []string
}

// KeywordPolicy is an AppPolicy built from configuration.
type KeywordPolicy struct {
	id       string
	name     string
	keywords []string
}

// NewKeywordPolicy creates a policy from an explicit keyword list.
func NewKeywordPolicy(id, name string, keywords []string) *KeywordPolicy {
	return &KeywordPolicy{id: id, name: name, keywords: normalizeKeywords(keywords)}
}

func (p *KeywordPolicy) ID() string         { return p.id }
func (p *KeywordPolicy) Name() string       { return p.name }
func (p *KeywordPolicy) Keywords() []string { return p.keywords }

// ToPolicy converts an AppPolicy to a domain.Policy entity.
func ToPolicy(ap AppPolicy) domain.Policy {
	return domain.Policy{
		ID:       ap.ID(),
		Name:     ap.Name(),
		Keywords: normalizeKeywords(ap.Keywords()),
	}
}

// normalizeKeywords lowercases, trims and drops blanks and duplicates.
// A blank keyword would match every name.
func normalizeKeywords(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// Ensure KeywordPolicy implements AppPolicy.
var _ AppPolicy = (*KeywordPolicy)(nil)
