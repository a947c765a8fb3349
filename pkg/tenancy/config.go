// Package tenancy provides per-request account (tenant) resolution and
// middleware for the fleet registry. Handlers never infer the tenant; the
// account id is always resolved here and carried through the request context.
package tenancy

// Mode controls how the account context is resolved.
type Mode string

const (
	// ModeHeader reads the account id from the X-Account-ID header, suitable
	// behind a trusted gateway that authenticates upstream.
	ModeHeader Mode = "header"
	// ModeJWT extracts the account id from a claim of the Authorization
	// bearer token.
	ModeJWT Mode = "jwt"
)
