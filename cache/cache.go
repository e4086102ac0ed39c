package cache

import (
	"context"
	"errors"
	"os"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Separator joins a namespace folder and the page part of a key.
const Separator = string(os.PathSeparator)

// Sentinel errors for cache operations.
var (
	ErrNilStore      = errors.New("cache: store is nil")
	ErrInvalidKey    = errors.New("cache: key is invalid")
	ErrKeyTooLong    = errors.New("cache: key exceeds max length")
	ErrUnknownDriver = errors.New("cache: unknown store driver")
)

// Store is a forever-lived key to page store.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: methods should honor cancellation/deadlines where applicable.
//   - Errors: Get never errors; it returns (nil, false) on miss or failure.
//   - Expiry: entries never expire; they are removed only by Delete,
//     DeleteMatching or Clear.
type Store interface {
	// Get retrieves a stored page. Returns (nil, false) on miss.
	Get(ctx context.Context, key string) ([]byte, bool)

	// SetForever stores a page without expiry.
	SetForever(ctx context.Context, key string, value []byte) error

	// Delete removes a stored page. Idempotent - no error on miss.
	Delete(ctx context.Context, key string) error

	// DeleteMatching removes every entry directly inside namespace whose
	// name contains substr. It is best effort and returns the number of
	// entries actually removed; an error is returned only when the entries
	// could not be enumerated.
	DeleteMatching(ctx context.Context, namespace, substr string) (int, error)

	// Clear removes every entry under namespace. An empty namespace clears
	// the whole store.
	Clear(ctx context.Context, namespace string) error
}

// lookuper is implemented by stores whose reads can fail for reasons other
// than a miss. ResilientStore counts those failures on its breaker.
type lookuper interface {
	lookup(ctx context.Context, key string) ([]byte, bool, error)
}

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r\x00") {
		return ErrInvalidKey
	}
	// Keys double as file names, so no element may escape its folder.
	for _, elem := range strings.Split(key, Separator) {
		if elem == "" || elem == "." || elem == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}

// namespacePrefix returns the key prefix shared by every key in namespace.
func namespacePrefix(namespace string) string {
	namespace = strings.Trim(namespace, Separator)
	if namespace == "" {
		return ""
	}
	return namespace + Separator
}

// matchesInNamespace reports whether key is an entry directly inside
// namespace whose name contains substr.
func matchesInNamespace(key, namespace, substr string) bool {
	prefix := namespacePrefix(namespace)
	if !strings.HasPrefix(key, prefix) {
		return false
	}
	name := key[len(prefix):]
	if strings.Contains(name, Separator) {
		return false
	}
	return strings.Contains(name, substr)
}
