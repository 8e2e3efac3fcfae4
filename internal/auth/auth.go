package auth

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

// KeyStore persists API key digests.
type KeyStore interface {
	// AddKey stores a digest.
	AddKey(ctx context.Context, digest string) error

	// HasKey reports whether a digest was stored.
	HasKey(ctx context.Context, digest string) (bool, error)
}

// Authenticator checks worker keys against a KeyStore and admin requests
// against a shared secret.
type Authenticator struct {
	store    KeyStore
	adminKey string
}

// New creates an Authenticator. An empty adminKey disables admin access.
func New(store KeyStore, adminKey string) *Authenticator {
	return &Authenticator{store: store, adminKey: adminKey}
}

// Digest returns the hex SHA3-256 digest stored for key.
func Digest(key string) string {
	sum := sha3.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Token extracts the credential from an Authorization header value.
// Both "Bearer <key>" and a bare key are accepted.
func Token(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// IssueKey creates a new API key, stores its digest and returns the key.
// The raw key is not kept anywhere.
func (a *Authenticator) IssueKey(ctx context.Context) (string, error) {
	key := uuid.NewString()
	if err := a.store.AddKey(ctx, Digest(key)); err != nil {
		return "", fmt.Errorf("failed to store api key: %w", err)
	}
	return key, nil
}

// ValidKey reports whether header carries an issued API key.
func (a *Authenticator) ValidKey(ctx context.Context, header string) (bool, error) {
	token := Token(header)
	if token == "" {
		return false, nil
	}
	ok, err := a.store.HasKey(ctx, Digest(token))
	if err != nil {
		return false, fmt.Errorf("failed to look up api key: %w", err)
	}
	return ok, nil
}

// ValidAdmin reports whether header carries the admin secret.
func (a *Authenticator) ValidAdmin(header string) bool {
	if a.adminKey == "" {
		return false
	}
	token := Token(header)
	return subtle.ConstantTimeCompare([]byte(token), []byte(a.adminKey)) == 1
}
