// Package auth guards the staff-facing endpoints. Recipients signing via
// token never pass through here; the token itself is their capability.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Blaineeey/Planning-Suite-sub000/pkg/httpx"
)

type contextKey struct{}

var organizationKey contextKey

// Middleware authenticates a Bearer JWT (HS256) and stores the org_id claim
// on the request context.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID, err := authenticate(secret, r.Header.Get("Authorization"))
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid credentials", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), organizationKey, orgID)))
		})
	}
}

func authenticate(secret, authorization string) (string, error) {
	raw, ok := parseBearerToken(authorization)
	if !ok {
		return "", jwt.ErrTokenMalformed
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", jwt.ErrTokenUnverifiable
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", jwt.ErrTokenInvalidClaims
	}
	orgID, _ := claims["org_id"].(string)
	if orgID == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return orgID, nil
}

func parseBearerToken(authorization string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(authorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// OrganizationID returns the tenant established by Middleware.
func OrganizationID(ctx context.Context) (string, bool) {
	orgID, ok := ctx.Value(organizationKey).(string)
	return orgID, ok && orgID != ""
}
