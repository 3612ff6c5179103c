package rules

import (
	"fmt"
	"slices"
	"strings"
)

// Set is an ordered list of rules plus protect patterns. Protected entries
// are never matched, and protected directories are never entered.
type Set struct {
	Rules   []Rule   `json:"rules"`
	Protect []string `json:"protect,omitempty"`
}

// NewSet builds and validates a rule set.
func NewSet(rules []Rule, protect ...string) (*Set, error) {
	s := &Set{
		Rules:   append([]Rule(nil), rules...),
		Protect: append([]string(nil), protect...),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks every rule and protect pattern. The first problem found is
// returned with its position.
func (s *Set) Validate() error {
	if s == nil || len(s.Rules) == 0 {
		return fmt.Errorf("%w: no rules defined", ErrInvalidRule)
	}
	for i, r := range s.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i+1, err)
		}
	}
	for i, p := range s.Protect {
		if p == "" {
			return fmt.Errorf("protect pattern %d: %w: empty pattern", i+1, ErrInvalidRule)
		}
		if !strings.HasPrefix(p, "/") {
			if err := validatePattern(p); err != nil {
				return fmt.Errorf("protect pattern %d: %w", i+1, err)
			}
		}
	}
	return nil
}

// Match returns the first rule selecting the entry at rel.
func (s *Set) Match(rel string, isDir bool) (Rule, bool) {
	for _, r := range s.Rules {
		if r.Matches(rel, isDir) {
			return r, true
		}
	}
	return Rule{}, false
}

// Protected reports whether an entry is excluded by a protect pattern.
// Patterns starting with "/" are compared against the absolute path abs,
// all others follow the same name/relative-path rules as Rule patterns.
func (s *Set) Protected(rel, abs string) bool {
	for _, p := range s.Protect {
		if strings.HasPrefix(p, "/") {
			if matchPattern(p, abs) {
				return true
			}
			continue
		}
		if matchPattern(p, rel) {
			return true
		}
	}
	return false
}

// WithProtect returns a copy of the set with extra protect patterns
// appended. Patterns already present are not repeated.
func (s *Set) WithProtect(patterns ...string) *Set {
	out := &Set{
		Rules:   append([]Rule(nil), s.Rules...),
		Protect: append([]string(nil), s.Protect...),
	}
	for _, p := range patterns {
		if !slices.Contains(out.Protect, p) {
			out.Protect = append(out.Protect, p)
		}
	}
	return out
}

// Len returns the number of rules.
func (s *Set) Len() int {
	return len(s.Rules)
}
