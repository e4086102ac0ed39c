package flatten

import (
	"fmt"
	"regexp"
	"strings"
)

// RuleMode selects how the only and ignore sets combine.
type RuleMode string

const (
	// RuleModeUnion caches a page when any of these holds:
	//
	//  1. only is non-empty and matches
	//  2. ignore is non-empty and does not match
	//  3. ignore is empty and only is non-empty
	//
	// Condition 3 means an only set without an ignore set caches every page.
	RuleModeUnion RuleMode = "union"

	// RuleModeAllowList applies conditions 1 and 2 only, so an only set
	// without an ignore set caches just the pages it matches. A page matching
	// both sets is still cached.
	RuleModeAllowList RuleMode = "allowlist"
)

// Rules decides whether a page is cacheable. The zero value caches nothing.
// Rules are immutable and safe for concurrent use.
type Rules struct {
	mode   RuleMode
	only   *regexp.Regexp
	ignore *regexp.Regexp
}

// CompileRules compiles the only and ignore pattern sets in RuleModeUnion.
func CompileRules(only, ignore []string) (*Rules, error) {
	return NewRules(RuleModeUnion, only, ignore)
}

// NewRules compiles the only and ignore pattern sets. Each set is joined with
// "|" into a single alternation; an invalid fragment fails here rather than
// on a request. An empty mode means RuleModeUnion.
func NewRules(mode RuleMode, only, ignore []string) (*Rules, error) {
	switch mode {
	case "":
		mode = RuleModeUnion
	case RuleModeUnion, RuleModeAllowList:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidRuleMode, mode)
	}
	o, err := compileSet("only", only)
	if err != nil {
		return nil, err
	}
	i, err := compileSet("ignore", ignore)
	if err != nil {
		return nil, err
	}
	return &Rules{mode: mode, only: o, ignore: i}, nil
}

func compileSet(name string, patterns []string) (*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	for _, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("%w: %s %q: %w", ErrInvalidPattern, name, p, err)
		}
	}
	re, err := regexp.Compile(strings.Join(patterns, "|"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPattern, name, err)
	}
	return re, nil
}

// ShouldCache reports whether path is cacheable. Patterns match anywhere in
// the path and are case-sensitive. The conditions are evaluated
// independently and OR'ed.
func (r *Rules) ShouldCache(path string) bool {
	if r == nil {
		return false
	}
	cache := false
	if r.only != nil && r.only.MatchString(path) {
		cache = true
	}
	if r.ignore != nil && !r.ignore.MatchString(path) {
		cache = true
	}
	if r.mode != RuleModeAllowList && r.ignore == nil && r.only != nil {
		cache = true
	}
	return cache
}

// Mode returns the rule mode.
func (r *Rules) Mode() RuleMode {
	if r == nil || r.mode == "" {
		return RuleModeUnion
	}
	return r.mode
}

// Empty reports whether neither pattern set is configured.
func (r *Rules) Empty() bool {
	return r == nil || (r.only == nil && r.ignore == nil)
}

// ShouldCache compiles only and ignore in RuleModeUnion and evaluates path.
// Invalid patterns make it return false; use CompileRules to surface them.
func ShouldCache(path string, only, ignore []string) bool {
	r, err := CompileRules(only, ignore)
	if err != nil {
		return false
	}
	return r.ShouldCache(path)
}
