package auth

import (
	"context"
	"net/http"
)

// Authenticator validates the credentials of a request.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: Authenticate returns (nil, error) for internal errors and
//     (Result, nil) for accepted or rejected credentials.
type Authenticator interface {
	Name() string

	// Supports reports whether the request carries credentials this
	// authenticator understands.
	Supports(header http.Header) bool

	Authenticate(ctx context.Context, header http.Header) (*Result, error)
}

// Result is the outcome of an authentication attempt.
type Result struct {
	Authenticated bool
	Identity      *Identity
	Error         error
	Method        Method
}

// Success returns an accepted Result for id.
func Success(id *Identity) *Result {
	return &Result{Authenticated: true, Identity: id, Method: id.Method}
}

// Failure returns a rejected Result.
func Failure(err error, method Method) *Result {
	return &Result{Error: err, Method: method}
}
