// Package auth authenticates callers of the cache admin API.
//
// Two authenticators are provided: JWTAuthenticator validates HMAC-signed
// bearer tokens and APIKeyAuthenticator validates X-API-Key headers against
// hashed keys. CompositeAuthenticator tries them in order. Require turns an
// Authenticator into HTTP middleware that answers 401 for missing or invalid
// credentials and 403 when the identity lacks the required role.
package auth
