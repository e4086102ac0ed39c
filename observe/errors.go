package observe

import "errors"

// ErrInvalidConfig wraps every Config.Validate failure.
var ErrInvalidConfig = errors.New("observe: invalid config")

// redactedKeys are log field keys whose values are never written.
var redactedKeys = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"apikey",
	"authorization",
	"credential",
	"jwt_secret",
}
