// Package auth carries the bearer token of a call in its context and
// supplies account credentials for logging in again.
package auth

import (
	"context"
	"strings"
	"unicode"

	"avtocod/apierr"
)

type tokenKey struct{}

// WithToken returns a context whose calls are authenticated with token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the token carried by ctx.
func TokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}

// WithoutToken returns a context whose calls carry no token at all, not even
// the default token of the client.
func WithoutToken(ctx context.Context) context.Context {
	return context.WithValue(ctx, tokenKey{}, "")
}

// Anonymous reports whether ctx was stripped of its token by WithoutToken.
func Anonymous(ctx context.Context) bool {
	token, ok := ctx.Value(tokenKey{}).(string)
	return ok && token == ""
}

// ValidateToken rejects empty tokens and tokens with whitespace.
func ValidateToken(token string) error {
	if token == "" {
		return apierr.Validation("token is empty")
	}
	if strings.IndexFunc(token, unicode.IsSpace) >= 0 {
		return apierr.Validation("token is invalid, it can't contain spaces")
	}
	return nil
}

// Credentials are the email and password of an account.
type Credentials struct {
	Email    string
	Password string
}

// CredentialsProvider supplies credentials when the session has expired.
type CredentialsProvider func(ctx context.Context) (Credentials, error)

// Static always returns the same credentials.
func Static(email, password string) CredentialsProvider {
	return func(context.Context) (Credentials, error) {
		return Credentials{Email: email, Password: password}, nil
	}
}
