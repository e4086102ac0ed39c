package auth

import (
	"context"
	"net/http"
)

// CompositeAuthenticator tries authenticators in order and returns the first
// success, or the last failure of those that supported the request.
type CompositeAuthenticator struct {
	authenticators []Authenticator
}

// NewCompositeAuthenticator returns a composite of auths. Nil entries are skipped.
func NewCompositeAuthenticator(auths ...Authenticator) *CompositeAuthenticator {
	c := &CompositeAuthenticator{}
	for _, a := range auths {
		if a != nil {
			c.authenticators = append(c.authenticators, a)
		}
	}
	return c
}

func (c *CompositeAuthenticator) Name() string { return "composite" }

func (c *CompositeAuthenticator) Supports(header http.Header) bool {
	for _, a := range c.authenticators {
		if a.Supports(header) {
			return true
		}
	}
	return false
}

func (c *CompositeAuthenticator) Authenticate(ctx context.Context, header http.Header) (*Result, error) {
	var last *Result
	for _, a := range c.authenticators {
		if !a.Supports(header) {
			continue
		}
		res, err := a.Authenticate(ctx, header)
		if err != nil {
			return nil, err
		}
		if res.Authenticated {
			return res, nil
		}
		last = res
	}
	if last != nil {
		return last, nil
	}
	return Failure(ErrMissingCredentials, ""), nil
}

// Len returns the number of authenticators.
func (c *CompositeAuthenticator) Len() int { return len(c.authenticators) }

var _ Authenticator = (*CompositeAuthenticator)(nil)
