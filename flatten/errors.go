package flatten

import "errors"

var (
	// ErrNilStore is returned when a Flattener or Flusher is built without a store.
	ErrNilStore = errors.New("flatten: store is required")

	// ErrInvalidPattern is returned when an only/ignore pattern does not compile.
	ErrInvalidPattern = errors.New("flatten: invalid pattern")

	// ErrInvalidRuleMode is returned for an unknown RuleMode.
	ErrInvalidRuleMode = errors.New("flatten: invalid rule mode")

	// ErrInvalidHookPoint is returned for an unknown Config.HookPoint.
	ErrInvalidHookPoint = errors.New("flatten: invalid hook point")

	// ErrInvalidFolder is returned when Config.Folder is not a valid key namespace.
	ErrInvalidFolder = errors.New("flatten: invalid folder")

	// ErrNilResolver is returned when an Invalidator is built without a resolver.
	ErrNilResolver = errors.New("flatten: url resolver is required")

	// ErrEmptyPattern is returned when a route or action resolves to the site
	// root, which would otherwise flush the whole folder.
	ErrEmptyPattern = errors.New("flatten: resolved pattern is empty")
)
