package hypercube

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Token hashing parameters.
const (
	tokenSaltSize   = 16
	tokenKeySize    = 32
	tokenIterations = 10000
)

// TokenAuthConfig configures bearer-token authentication for the HTTP API.
type TokenAuthConfig struct {
	// Enabled turns authentication on. When false the middleware passes
	// every request through.
	Enabled bool

	// HashedTokens holds salted PBKDF2 hashes produced by HashToken.
	HashedTokens []string
}

// HashToken derives a salted PBKDF2-SHA256 hash of a token, encoded as
// "salt:key" hex. Store the hash, not the token.
func HashToken(token string) (string, error) {
	salt := make([]byte, tokenSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := pbkdf2.Key([]byte(token), salt, tokenIterations, tokenKeySize, sha256.New)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// TokenAuthenticator verifies bearer tokens against stored hashes.
type TokenAuthenticator struct {
	config TokenAuthConfig
}

// NewTokenAuthenticator creates an authenticator.
func NewTokenAuthenticator(cfg TokenAuthConfig) *TokenAuthenticator {
	return &TokenAuthenticator{config: cfg}
}

// Verify reports whether a presented token matches any stored hash.
// Comparison is constant-time per candidate.
func (a *TokenAuthenticator) Verify(token string) bool {
	if !a.config.Enabled {
		return true
	}
	for _, stored := range a.config.HashedTokens {
		parts := strings.SplitN(stored, ":", 2)
		if len(parts) != 2 {
			continue
		}
		salt, err := hex.DecodeString(parts[0])
		if err != nil {
			continue
		}
		want, err := hex.DecodeString(parts[1])
		if err != nil {
			continue
		}
		got := pbkdf2.Key([]byte(token), salt, tokenIterations, tokenKeySize, sha256.New)
		if subtle.ConstantTimeCompare(got, want) == 1 {
			return true
		}
	}
	return false
}

// Middleware wraps a handler with bearer-token checks. Requests without a
// valid "Authorization: Bearer <token>" header are rejected with 401.
func (a *TokenAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.config.Enabled {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || !a.Verify(token) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
