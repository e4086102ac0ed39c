package flatten

import (
	"fmt"
	"slices"

	"github.com/jonwraymond/flatten/cache"
)

// HookPoint selects where the early hook runs in the host's request lifecycle.
type HookPoint string

const (
	// HookRequest runs the hooks around the whole router, before routing.
	HookRequest HookPoint = "request"

	// HookRoute runs the hooks after a route matched, as router middleware.
	// Requests that match no route are never cached.
	HookRoute HookPoint = "route"
)

// DefaultLocale is the fallback locale of DefaultConfig.
const DefaultLocale = "en"

// Config configures a Flattener. It is read once by New and never mutated.
type Config struct {
	// Environment is the name of the running environment.
	Environment string

	// Environments lists the environments in which caching is disabled.
	Environments []string

	// Folder namespaces every key. Empty means the store root.
	Folder string

	// Only and Ignore are the allow-list and deny-list pattern sets.
	Only   []string
	Ignore []string

	// RuleMode selects how Only and Ignore combine. Empty means RuleModeUnion.
	RuleMode RuleMode

	// HookPoint selects where Handler mounts the hooks. Empty means HookRequest.
	HookPoint HookPoint

	// DefaultLocale is used when the path has no leading locale segment.
	DefaultLocale string

	// Localize prefixes keys with the locale.
	Localize bool

	// ETag adds a content digest ETag to served and stored pages and answers
	// matching If-None-Match requests with 304.
	ETag bool
}

// DefaultConfig returns a Config with localization on and HookRequest.
func DefaultConfig() Config {
	return Config{
		HookPoint:     HookRequest,
		RuleMode:      RuleModeUnion,
		DefaultLocale: DefaultLocale,
		Localize:      true,
	}
}

// Validate checks the hook point, the rule mode and the folder. Patterns are
// checked when the rules are compiled.
func (c Config) Validate() error {
	switch c.HookPoint {
	case "", HookRequest, HookRoute:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidHookPoint, c.HookPoint)
	}
	switch c.RuleMode {
	case "", RuleModeUnion, RuleModeAllowList:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRuleMode, c.RuleMode)
	}
	if c.Folder != "" {
		if err := cache.ValidateKey(c.Folder); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidFolder, err)
		}
	}
	return nil
}

// Disabled reports whether Environment is one of Environments.
func (c Config) Disabled() bool {
	return slices.Contains(c.Environments, c.Environment)
}
