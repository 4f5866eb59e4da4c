package auth

import (
	"context"
	"strconv"
)

type ctxKey int

const claimsKey ctxKey = iota

// WithClaims attaches verified token claims to ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}

// UserID returns the authenticated user's id, or 0 when the request is
// anonymous.
func UserID(ctx context.Context) int64 {
	c, ok := ClaimsFrom(ctx)
	if !ok {
		return 0
	}
	id, _ := c.UserID()
	return id
}

// WithUserID attaches claims for userID, as RequireAuth would after
// verifying a token.
func WithUserID(ctx context.Context, userID int64) context.Context {
	c := &Claims{}
	c.Subject = strconv.FormatInt(userID, 10)
	return WithClaims(ctx, c)
}
