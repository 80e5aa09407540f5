package resettoken

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eswan18/passwordreset/pkg/db"
)

// PostgresStore keeps tokens in the password_reset_tokens table.
type PostgresStore struct {
	q   db.Querier
	now func() time.Time
}

func NewPostgresStore(q db.Querier) *PostgresStore {
	return &PostgresStore{q: q, now: time.Now}
}

func (s *PostgresStore) Save(ctx context.Context, userID uuid.UUID, tokenHash string, ttl time.Duration) error {
	if err := validate(userID, tokenHash); err != nil {
		return err
	}
	if ttl <= 0 {
		return errors.New("resettoken: ttl must be positive")
	}
	err := s.q.CreatePasswordResetToken(ctx, db.CreatePasswordResetTokenParams{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: s.now().Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

func (s *PostgresStore) Consume(ctx context.Context, userID uuid.UUID, tokenHash string) error {
	if err := validate(userID, tokenHash); err != nil {
		return ErrInvalidToken
	}
	_, err := s.q.ConsumePasswordResetToken(ctx, db.ConsumePasswordResetTokenParams{
		UserID:    userID,
		TokenHash: tokenHash,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}
	return nil
}

func (s *PostgresStore) Release(ctx context.Context, userID uuid.UUID, tokenHash string) error {
	if err := validate(userID, tokenHash); err != nil {
		return ErrInvalidToken
	}
	n, err := s.q.ReleasePasswordResetToken(ctx, db.ReleasePasswordResetTokenParams{
		UserID:    userID,
		TokenHash: tokenHash,
	})
	if err != nil {
		return fmt.Errorf("failed to release reset token: %w", err)
	}
	if n == 0 {
		return ErrInvalidToken
	}
	return nil
}

func (s *PostgresStore) Revoke(ctx context.Context, userID uuid.UUID) error {
	if err := s.q.DeletePasswordResetTokensForUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke reset tokens: %w", err)
	}
	return nil
}
