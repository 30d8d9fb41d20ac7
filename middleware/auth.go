package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gamelle/league-system/services"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

type contextKey string

const identityContextKey contextKey = "identity"

// ScorerSecretHeader carries the shared scorer capability for live matches.
// Holding the secret bypasses authentication entirely.
const ScorerSecretHeader = "X-Scorer-Secret"

// Authenticator разбирает bearer-токены в разрешённую личность. Выпуском
// токенов занимается auth-обработчик; здесь только потребление.
type Authenticator struct {
	jwtSecret []byte
}

func NewAuthenticator(jwtSecret string) *Authenticator {
	return &Authenticator{jwtSecret: []byte(jwtSecret)}
}

// Authenticate requires a valid bearer token and stores the identity in the
// request context.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := a.identityFromRequest(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if identity == nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuthenticate resolves an identity when a token is present but lets
// anonymous requests through: the live match gate degrades them to viewers.
// A malformed token is still rejected: presenting bad credentials is not
// the same as presenting none.
func (a *Authenticator) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		identity, err := a.identityFromRequest(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) identityFromRequest(r *http.Request) (*services.Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}
	tokenString, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return nil, errors.New("authorization header is not a bearer token")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	rawID, ok := claims["user_id"].(string)
	if !ok {
		return nil, errors.New("missing 'user_id' claim in token")
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid 'user_id' claim: %w", err)
	}

	return &services.Identity{UserID: userID}, nil
}

// IdentityFromContext returns the authenticated identity или nil для
// анонимного запроса.
func IdentityFromContext(ctx context.Context) *services.Identity {
	identity, _ := ctx.Value(identityContextKey).(*services.Identity)
	return identity
}
