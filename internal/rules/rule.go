// Package rules defines the patterns projclean uses to recognise build and
// cache artifacts inside a project tree.
//
// A pattern without a "/" is compared against an entry's base name. A
// pattern containing "/" is compared against the entry's slash-separated
// path relative to the scan root. "*" and "?" are wildcards; any other
// pattern is an exact, case-sensitive comparison.
package rules

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/IGLOU-EU/go-wildcard"
)

// Kind is the type of filesystem entry a rule targets.
type Kind string

const (
	KindDir  Kind = "dir"
	KindFile Kind = "file"
)

// ErrInvalidRule is returned for rules or rule sets that fail validation.
var ErrInvalidRule = errors.New("invalid rule")

// Rule selects entries of one kind by name or glob.
type Rule struct {
	Pattern     string `json:"pattern"`
	Kind        Kind   `json:"kind"`
	Description string `json:"description,omitempty"`
}

// Validate checks that the pattern is usable and the kind is known.
func (r Rule) Validate() error {
	if r.Pattern == "" {
		return fmt.Errorf("%w: empty pattern", ErrInvalidRule)
	}
	if strings.HasPrefix(r.Pattern, "/") {
		return fmt.Errorf("%w: pattern %q must be relative to the scan root", ErrInvalidRule, r.Pattern)
	}
	if err := validatePattern(r.Pattern); err != nil {
		return err
	}
	switch r.Kind {
	case KindDir, KindFile:
	default:
		return fmt.Errorf("%w: pattern %q: kind must be %q or %q, got %q",
			ErrInvalidRule, r.Pattern, KindDir, KindFile, r.Kind)
	}
	return nil
}

// Matches reports whether the rule selects the entry at rel, the
// slash-separated path relative to the scan root.
func (r Rule) Matches(rel string, isDir bool) bool {
	if (r.Kind == KindDir) != isDir {
		return false
	}
	return matchPattern(r.Pattern, rel)
}

func (r Rule) String() string {
	return fmt.Sprintf("%s (%s)", r.Pattern, r.Kind)
}

func validatePattern(p string) error {
	if strings.TrimSpace(p) != p {
		return fmt.Errorf("%w: pattern %q has leading or trailing whitespace", ErrInvalidRule, p)
	}
	if strings.HasSuffix(p, "/") {
		return fmt.Errorf("%w: pattern %q ends with a slash", ErrInvalidRule, p)
	}
	for _, seg := range strings.Split(strings.TrimPrefix(p, "/"), "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: pattern %q has an empty or relative segment", ErrInvalidRule, p)
		}
	}
	return nil
}

func matchPattern(pattern, rel string) bool {
	subject := rel
	if !strings.Contains(pattern, "/") {
		subject = path.Base(rel)
	}
	if !strings.ContainsAny(pattern, "*?") {
		return pattern == subject
	}
	return wildcard.Match(pattern, subject)
}
