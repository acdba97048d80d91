// Package auth resolves request tokens into the user context that stores
// record as the creator of rows.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// HeaderToken is the request header carrying the caller's token.
const HeaderToken = "X-Auth-Token"

var (
	ErrMissingToken = errors.New("auth token missing")
	ErrInvalidToken = errors.New("auth token invalid")
)

// UserCtx identifies the caller of a store operation.
type UserCtx struct {
	UserID int64
}

// FromToken maps a token to a user context. Tokens are the decimal user id;
// anything that is not a positive integer is rejected.
func FromToken(token string) (UserCtx, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return UserCtx{}, ErrMissingToken
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || id <= 0 {
		return UserCtx{}, ErrInvalidToken
	}
	return UserCtx{UserID: id}, nil
}

// TokenFromRequest extracts the token from X-Auth-Token, falling back to an
// "Authorization: Bearer" header.
func TokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(HeaderToken)); token != "" {
		return token
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > len("bearer ") && strings.EqualFold(header[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(header[len("bearer "):])
	}
	return ""
}

type contextKey struct{}

// WithUser returns a copy of ctx carrying utx.
func WithUser(ctx context.Context, utx UserCtx) context.Context {
	return context.WithValue(ctx, contextKey{}, utx)
}

// FromContext returns the user context stored by WithUser.
func FromContext(ctx context.Context) (UserCtx, bool) {
	if ctx == nil {
		return UserCtx{}, false
	}
	utx, ok := ctx.Value(contextKey{}).(UserCtx)
	return utx, ok && utx.UserID > 0
}
