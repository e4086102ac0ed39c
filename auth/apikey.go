package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// APIKeyHeader is the header carrying an API key.
const APIKeyHeader = "X-API-Key"

// APIKey describes a registered key. Only the hash of the key is kept.
type APIKey struct {
	ID        string
	KeyHash   string
	Principal string
	Roles     []string
	ExpiresAt time.Time
}

// APIKeyStore looks up keys by hash.
type APIKeyStore interface {
	Lookup(ctx context.Context, keyHash string) (*APIKey, error)
}

// APIKeyAuthenticator validates X-API-Key headers.
type APIKeyAuthenticator struct {
	store APIKeyStore
}

// NewAPIKeyAuthenticator returns an authenticator backed by store.
func NewAPIKeyAuthenticator(store APIKeyStore) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{store: store}
}

func (a *APIKeyAuthenticator) Name() string { return "api_key" }

func (a *APIKeyAuthenticator) Supports(header http.Header) bool {
	return strings.TrimSpace(header.Get(APIKeyHeader)) != ""
}

func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, header http.Header) (*Result, error) {
	key := strings.TrimSpace(header.Get(APIKeyHeader))
	if key == "" {
		return Failure(ErrMissingCredentials, MethodAPIKey), nil
	}

	info, err := a.store.Lookup(ctx, HashAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("auth: api key lookup: %w", err)
	}
	if info == nil {
		return Failure(ErrInvalidCredentials, MethodAPIKey), nil
	}
	if !info.ExpiresAt.IsZero() && time.Now().After(info.ExpiresAt) {
		return Failure(ErrTokenExpired, MethodAPIKey), nil
	}

	return Success(&Identity{
		Principal: info.Principal,
		Roles:     info.Roles,
		Method:    MethodAPIKey,
		ExpiresAt: info.ExpiresAt,
		Claims:    map[string]any{"key_id": info.ID},
	}), nil
}

// HashAPIKey returns the hex SHA-256 of key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// MemoryAPIKeyStore keeps keys in memory.
type MemoryAPIKeyStore struct {
	mu   sync.RWMutex
	keys []*APIKey
}

// NewMemoryAPIKeyStore returns an empty store.
func NewMemoryAPIKeyStore() *MemoryAPIKeyStore {
	return &MemoryAPIKeyStore{}
}

// Add registers a key.
func (s *MemoryAPIKeyStore) Add(k *APIKey) {
	s.mu.Lock()
	s.keys = append(s.keys, k)
	s.mu.Unlock()
}

// Lookup compares keyHash against every registered hash in constant time.
func (s *MemoryAPIKeyStore) Lookup(_ context.Context, keyHash string) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *APIKey
	for _, k := range s.keys {
		if subtle.ConstantTimeCompare([]byte(k.KeyHash), []byte(keyHash)) == 1 {
			found = k
		}
	}
	return found, nil
}

var (
	_ Authenticator = (*APIKeyAuthenticator)(nil)
	_ APIKeyStore   = (*MemoryAPIKeyStore)(nil)
)
