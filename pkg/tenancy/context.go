package tenancy

import "context"

// ctxKey is an unexported type used as the context key for AccountContext.
type ctxKey struct{}

// AccountContext carries the resolved tenant information through request context.
type AccountContext struct {
	AccountID string
	Subject   string // authenticated principal, when known
}

// WithAccount returns a new context with the given AccountContext attached.
func WithAccount(ctx context.Context, ac AccountContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, ac)
}

// AccountFromContext retrieves the AccountContext from the context.
// Returns the zero value and false if no account is set.
func AccountFromContext(ctx context.Context) (AccountContext, bool) {
	ac, ok := ctx.Value(ctxKey{}).(AccountContext)
	return ac, ok
}

// AccountIDFromContext is a convenience function that returns the account id
// from the context, or "" if no account context is set.
func AccountIDFromContext(ctx context.Context) string {
	ac, ok := AccountFromContext(ctx)
	if !ok {
		return ""
	}
	return ac.AccountID
}
