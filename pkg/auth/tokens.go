package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const (
	resetTokenLen = 32 // bytes
	apiKeyLen     = 20 // bytes, 40 hex chars
)

var ErrInvalidUID = errors.New("invalid uid")

// GenerateResetToken generates a cryptographically secure random token
// and returns both the raw token (for the email link) and its SHA-256 hash (for storage).
func GenerateResetToken() (rawToken, tokenHash string, err error) {
	tokenBytes := make([]byte, resetTokenLen)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random token: %w", err)
	}

	rawToken = base64.RawURLEncoding.EncodeToString(tokenBytes)
	tokenHash = HashToken(rawToken)
	return rawToken, tokenHash, nil
}

// HashToken hashes a raw token for lookup.
func HashToken(rawToken string) string {
	hash := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(hash[:])
}

// GenerateAPIKey returns a new opaque API token key.
func GenerateAPIKey() (string, error) {
	b := make([]byte, apiKeyLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// EncodeUID encodes a user id for the path segment of a reset link.
func EncodeUID(id uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id.String()))
}

// DecodeUID reverses EncodeUID. Padded input is accepted.
func DecodeUID(uidb64 string) (uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(trimPadding(uidb64))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidUID, err)
	}
	id, err := uuid.Parse(string(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidUID, err)
	}
	return id, nil
}

func trimPadding(s string) string {
	for len(s) > 0 && s[len(s)-1] == '=' {
		s = s[:len(s)-1]
	}
	return s
}
