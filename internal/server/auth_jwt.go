package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const sessionTokenTTL = 24 * time.Hour

// issueToken signs an HS256 bearer token for the given user ID.
func (s *Server) issueToken(userID string, now time.Time) (string, error) {
	if len(s.jwtSecret) == 0 {
		return "", fmt.Errorf("jwt secret is not configured")
	}
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(sessionTokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// parseToken validates a bearer token and returns the subject user ID.
func (s *Server) parseToken(raw string) (string, error) {
	parsed, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// requireAuth resolves the bearer token to a stored user and injects
// it into the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("missing bearer token")))
			return
		}
		userID, err := s.parseToken(raw)
		if err != nil {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("invalid token")))
			return
		}
		user, err := s.store.GetUserByID(r.Context(), userID)
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		if user == nil {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("unknown user")))
			return
		}
		next(w, r.WithContext(contextWithUser(r.Context(), user)))
	})
}
