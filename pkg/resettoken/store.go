// Package resettoken stores single-use password reset tokens.
//
// Only the SHA-256 hash of a token is ever handed to a Store; the raw value
// lives in the emailed link.
package resettoken

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidToken is returned by Consume for a token that is unknown,
// expired, already used, or issued to a different user.
var ErrInvalidToken = errors.New("password reset token is invalid or has expired")

// Store saves, consumes and revokes reset tokens by hash.
type Store interface {
	// Save records a token hash for userID that expires after ttl.
	Save(ctx context.Context, userID uuid.UUID, tokenHash string, ttl time.Duration) error
	// Consume atomically marks the token used. Only one caller can succeed
	// for a given token.
	Consume(ctx context.Context, userID uuid.UUID, tokenHash string) error
	// Release makes a consumed token usable again, keeping its original
	// expiry. It returns ErrInvalidToken if the token was not consumed or
	// has expired since.
	Release(ctx context.Context, userID uuid.UUID, tokenHash string) error
	// Revoke drops every outstanding token for userID.
	Revoke(ctx context.Context, userID uuid.UUID) error
}

func validate(userID uuid.UUID, tokenHash string) error {
	if userID == uuid.Nil {
		return errors.New("resettoken: user id is required")
	}
	if tokenHash == "" {
		return errors.New("resettoken: token hash is required")
	}
	return nil
}
