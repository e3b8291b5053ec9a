package policy

import (
	"testing"
)

func TestLeaguePolicy_ID(t *testing.T) {
	p := NewLeaguePolicy()
	if p.ID() != "league" {
		t.Errorf("expected ID 'league', got '%s'", p.ID())
	}
}

func TestLeaguePolicy_Name(t *testing.T) {
	p := NewLeaguePolicy()
	if p.Name() != "League of Legends" {
		t.Errorf("expected Name 'League of Legends', got '%s'", p.Name())
	}
}

func TestLeaguePolicy_Keywords(t *testing.T) {
	p := NewLeaguePolicy()
	keywords := p.Keywords()

	expected := map[string]bool{
		"league": false,
		"lol":    false,
		"riot":   false,
	}

	for _, k := range keywords {
		if _, ok := expected[k]; ok {
			expected[k] = true
		}
	}

	for k, found := range expected {
		if !found {
			t.Errorf("expected keyword '%s' not found", k)
		}
	}
}

func TestToPolicy_NormalizesKeywords(t *testing.T) {
	p := ToPolicy(NewKeywordPolicy("x", "X", []string{" Foo ", "", "BAR", "foo"}))

	if len(p.Keywords) != 2 || p.Keywords[0] != "foo" || p.Keywords[1] != "bar" {
		t.Errorf("unexpected keywords: %v", p.Keywords)
	}
}
