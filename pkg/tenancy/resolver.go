package tenancy

import (
	"fmt"
	"net/http"
	"regexp"
)

// maxAccountIDLen bounds the account id; ids are UUID strings.
const maxAccountIDLen = 36

// accountIDRe validates account id format: alphanumeric and hyphens.
var accountIDRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*$`)

// AccountHeader is the HTTP header used for account resolution in header mode.
const AccountHeader = "X-Account-ID"

// Resolver resolves the account context from an HTTP request.
type Resolver interface {
	Resolve(r *http.Request) (AccountContext, error)
}

// HeaderResolver reads the account id from the X-Account-ID header. Intended
// for deployments behind a trusted gateway that has already authenticated the
// caller.
type HeaderResolver struct{}

// Resolve extracts the account id from the request header. Returns an error
// if the header is missing or invalid.
func (HeaderResolver) Resolve(r *http.Request) (AccountContext, error) {
	id := r.Header.Get(AccountHeader)
	if id == "" {
		return AccountContext{}, fmt.Errorf("account id is required (%s header)", AccountHeader)
	}
	if err := validateAccountID(id); err != nil {
		return AccountContext{}, err
	}
	return AccountContext{AccountID: id}, nil
}

// validateAccountID checks that an account id is well-formed: alphanumeric
// and hyphens, at most 36 characters.
func validateAccountID(id string) error {
	if len(id) > maxAccountIDLen {
		return fmt.Errorf("account id %q exceeds maximum length of %d characters", id, maxAccountIDLen)
	}
	if !accountIDRe.MatchString(id) {
		return fmt.Errorf("account id %q is invalid: must consist of alphanumeric characters or hyphens", id)
	}
	return nil
}

// NewModeResolver returns the resolver for the given Mode. ModeJWT uses the
// default JWT resolver configuration (unverified, trusted-proxy).
func NewModeResolver(mode Mode) (Resolver, error) {
	switch mode {
	case ModeJWT:
		return NewJWTResolver(JWTResolverConfig{})
	default:
		return HeaderResolver{}, nil
	}
}
