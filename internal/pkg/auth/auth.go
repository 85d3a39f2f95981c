// Package auth carries the JWT-based caller identity used to gate the bulk
// import surface. Tokens are HMAC-signed and list the caller's permissions
// as plain strings.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Permissions required to run a bulk import. Both must be present.
const (
	PermissionManageOrders       = "MANAGE_ORDERS"
	PermissionManageOrdersImport = "MANAGE_ORDERS_IMPORT"
)

// ErrPermissionDenied is returned when the caller lacks a required
// permission or no identity is attached to the context.
var ErrPermissionDenied = errors.New("auth: permission denied")

// Claims is the token payload this service understands.
type Claims struct {
	jwt.RegisteredClaims
	Permissions []string `json:"permissions"`
}

// Has reports whether the claims grant the given permission.
func (c *Claims) Has(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// ParseToken verifies an HMAC-signed token and returns its claims.
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %q", token.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("auth: parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("auth: invalid token")
	}
	return claims, nil
}

type contextKey struct{}

// WithClaims attaches verified claims to the context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

// FromContext extracts the claims attached by the middleware.
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(contextKey{}).(*Claims)
	return claims, ok
}

// Require checks that the context carries claims granting every listed
// permission.
func Require(ctx context.Context, permissions ...string) error {
	claims, ok := FromContext(ctx)
	if !ok {
		return ErrPermissionDenied
	}
	for _, p := range permissions {
		if !claims.Has(p) {
			return ErrPermissionDenied
		}
	}
	return nil
}

// Middleware verifies the Authorization bearer token and stores its claims
// in the request context. Requests without a valid token get 401; the
// per-operation permission check happens later.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenString == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			claims, err := ParseToken(secret, tokenString)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
