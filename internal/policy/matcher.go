package policy

import (
	"strings"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

// BlockList is the flattened keyword set of every policy in a store.
// It is built once and treated as constant while the monitor runs.
type BlockList struct {
	keywords []string
}

// NewBlockList collects the keywords of all policies in the store.
func NewBlockList(store domain.PolicyStore) *BlockList {
	var all []string
	for _, p := range store.GetAll() {
		all = append(all, p.Keywords...)
	}
	return &BlockList{keywords: normalizeKeywords(all)}
}

// NewBlockListFromKeywords builds a block list directly from keywords.
func NewBlockListFromKeywords(keywords ...string) *BlockList {
	return &BlockList{keywords: normalizeKeywords(keywords)}
}

// Keywords returns a copy of the lowercase keyword set.
func (b *BlockList) Keywords() []string {
	return append([]string(nil), b.keywords...)
}

// IsBlocked reports whether the identity's canonical name contains a keyword.
// An unresolved (empty) canonical name never matches.
func (b *BlockList) IsBlocked(id domain.ProcessIdentity) bool {
	return b.MatchesName(id.CanonicalName)
}

// MatchesName reports whether name contains any keyword, ignoring case.
func (b *BlockList) MatchesName(name string) bool {
	if name == "" {
		return false
	}
	lower := strings.ToLower(name)
	for _, k := range b.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Ensure BlockList implements domain.Matcher.
var _ domain.Matcher = (*BlockList)(nil)
