// Package secret resolves credentials referenced from flatten configuration.
//
// Configuration values such as the Redis password, the admin JWT secret and
// admin API keys may be written three ways:
//
//	password: plain-text
//	password: ${REDIS_PASSWORD}
//	password: secretref:file:/run/secrets/redis_password
//
// ${VAR} references are expanded strictly (a missing variable is an error).
// secretref:<provider>:<ref> values are resolved by a named Provider; the
// built-in providers are "env" and "file".
package secret
