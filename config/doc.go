// Package config loads flatten's runtime configuration.
//
// Values come from, in increasing precedence: built-in defaults, an optional
// YAML file and FLATTEN_* environment variables (FLATTEN_CACHE_FOLDER sets
// cache.folder). Credentials accept ${VAR} and secretref: references, see
// package secret.
//
// The loaded Config converts into the option structs of packages flatten,
// cache and observe.
package config
