package provider

import "errors"

// Common credential errors
var (
	ErrMissingCredentials = errors.New("provider credentials not configured in environment or request")
	ErrInvalidEnvironment = errors.New("invalid provider environment: must be sandbox or production")
)

// Credentials identify a provider account. Empty fields are placeholders to be
// filled from the server's configured defaults.
type Credentials struct {
	ClientID    string
	Secret      string
	Environment string // sandbox or production
}

// Merge fills empty fields from fallback, mirroring the request-over-environment
// precedence of the credential handling: a request can override any subset of
// the configured credentials.
func (c Credentials) Merge(fallback Credentials) Credentials {
	out := c
	if out.ClientID == "" {
		out.ClientID = fallback.ClientID
	}
	if out.Secret == "" {
		out.Secret = fallback.Secret
	}
	if out.Environment == "" {
		out.Environment = fallback.Environment
	}
	return out
}

// Validate ensures the credentials are complete enough to build a client
func (c Credentials) Validate() error {
	if c.ClientID == "" || c.Secret == "" {
		return ErrMissingCredentials
	}
	switch c.Environment {
	case "sandbox", "production":
		return nil
	default:
		return ErrInvalidEnvironment
	}
}
