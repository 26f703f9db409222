package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"telegram-object-publisher/internal/infra/logging"
)

const adminSubjectHeader = "X-Admin-Subject"

// AuthManager mints and checks the HS256 bearer tokens of the admin API.
type AuthManager struct {
	secret []byte
}

func NewAuthManager(secret string) *AuthManager {
	return &AuthManager{secret: []byte(secret)}
}

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Mint issues an admin token for subject valid for ttl.
func (a *AuthManager) Mint(subject string, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("admin jwt secret is not configured")
	}
	now := time.Now()
	claims := AdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   subject,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*AdminClaims, error) {
	// Authorization: Bearer <jwt>
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return nil, errors.New("missing token")
	}
	return a.parse(strings.TrimSpace(hdr[7:]))
}

func (a *AuthManager) parse(tok string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Role != "admin" {
		return nil, errors.New("not an admin token")
	}
	return claims, nil
}

// RequireAdmin rejects requests without a valid admin token.
// With no secret configured every request is refused.
func (a *AuthManager) RequireAdmin(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(a.secret) == 0 {
				logger.Error().Msg("admin jwt secret is not configured")
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			claims, err := a.ParseFromRequest(r)
			if err != nil {
				l := logging.With(r.Context(), logger)
				l.Warn().Err(err).Str("path", r.URL.Path).Msg("admin auth failed")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			r.Header.Set(adminSubjectHeader, claims.Subject)
			next.ServeHTTP(w, r)
		})
	}
}
