package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/eswan18/passwordreset/pkg/db"
	"github.com/eswan18/passwordreset/pkg/email"
)

// memQuerier is an in-memory db.Querier.
type memQuerier struct {
	mu          sync.Mutex
	users       map[uuid.UUID]db.AuthUser
	authTokens  map[string]db.AuthToken
	resetTokens map[string]db.PasswordResetToken
	// resetPasswordErr, when set, fails ResetUserPassword.
	resetPasswordErr error
}

var _ db.Querier = (*memQuerier)(nil)

func newMemQuerier() *memQuerier {
	return &memQuerier{
		users:       map[uuid.UUID]db.AuthUser{},
		authTokens:  map[string]db.AuthToken{},
		resetTokens: map[string]db.PasswordResetToken{},
	}
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505"}
}

func (q *memQuerier) CreateUser(ctx context.Context, arg db.CreateUserParams) (db.AuthUser, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, u := range q.users {
		if u.Username == arg.Username {
			return db.AuthUser{}, uniqueViolation()
		}
	}
	now := time.Now().UTC()
	u := db.AuthUser{
		ID:           uuid.New(),
		Username:     arg.Username,
		Email:        arg.Email,
		FirstName:    arg.FirstName,
		LastName:     arg.LastName,
		PasswordHash: arg.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	q.users[u.ID] = u
	return u, nil
}

func (q *memQuerier) GetUserByID(ctx context.Context, id uuid.UUID) (db.AuthUser, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	u, ok := q.users[id]
	if !ok {
		return db.AuthUser{}, sql.ErrNoRows
	}
	return u, nil
}

func (q *memQuerier) findUser(match func(db.AuthUser) bool) (db.AuthUser, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, u := range q.users {
		if match(u) {
			return u, nil
		}
	}
	return db.AuthUser{}, sql.ErrNoRows
}

func (q *memQuerier) GetUserByUsername(ctx context.Context, username string) (db.AuthUser, error) {
	return q.findUser(func(u db.AuthUser) bool { return u.Username == username })
}

func (q *memQuerier) GetUserByEmail(ctx context.Context, email string) (db.AuthUser, error) {
	return q.findUser(func(u db.AuthUser) bool { return u.Email == email })
}

func (q *memQuerier) GetUserByAuthToken(ctx context.Context, key string) (db.AuthUser, error) {
	q.mu.Lock()
	tok, ok := q.authTokens[key]
	q.mu.Unlock()
	if !ok {
		return db.AuthUser{}, sql.ErrNoRows
	}
	return q.GetUserByID(ctx, tok.UserID)
}

func (q *memQuerier) UpdateUserProfile(ctx context.Context, arg db.UpdateUserProfileParams) (db.AuthUser, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	u, ok := q.users[arg.ID]
	if !ok {
		return db.AuthUser{}, sql.ErrNoRows
	}
	u.FirstName, u.LastName, u.Email = arg.FirstName, arg.LastName, arg.Email
	u.UpdatedAt = time.Now().UTC()
	q.users[u.ID] = u
	return u, nil
}

func (q *memQuerier) UpdateUserPassword(ctx context.Context, arg db.UpdateUserPasswordParams) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.resetPasswordErr != nil {
		return q.resetPasswordErr
	}
	u, ok := q.users[arg.ID]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = arg.PasswordHash
	q.users[u.ID] = u
	return nil
}

func (q *memQuerier) ResetUserPassword(ctx context.Context, arg db.ResetUserPasswordParams) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.resetPasswordErr != nil {
		return q.resetPasswordErr
	}
	u, ok := q.users[arg.ID]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = arg.PasswordHash
	u.LastLogin = sql.NullTime{Time: arg.LastLogin, Valid: true}
	q.users[u.ID] = u
	return nil
}

func (q *memQuerier) CreateAuthToken(ctx context.Context, arg db.CreateAuthTokenParams) (db.AuthToken, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.authTokens {
		if t.UserID == arg.UserID {
			return db.AuthToken{}, uniqueViolation()
		}
	}
	t := db.AuthToken{Key: arg.Key, UserID: arg.UserID, CreatedAt: time.Now().UTC()}
	q.authTokens[t.Key] = t
	return t, nil
}

func (q *memQuerier) GetAuthTokenByUser(ctx context.Context, userID uuid.UUID) (db.AuthToken, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.authTokens {
		if t.UserID == userID {
			return t, nil
		}
	}
	return db.AuthToken{}, sql.ErrNoRows
}

func (q *memQuerier) DeleteAuthTokensForUser(ctx context.Context, userID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for k, t := range q.authTokens {
		if t.UserID == userID {
			delete(q.authTokens, k)
		}
	}
	return nil
}

func (q *memQuerier) CreatePasswordResetToken(ctx context.Context, arg db.CreatePasswordResetTokenParams) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resetTokens[arg.TokenHash] = db.PasswordResetToken{
		ID:        uuid.New(),
		UserID:    arg.UserID,
		TokenHash: arg.TokenHash,
		ExpiresAt: arg.ExpiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (q *memQuerier) ConsumePasswordResetToken(ctx context.Context, arg db.ConsumePasswordResetTokenParams) (db.PasswordResetToken, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.resetTokens[arg.TokenHash]
	if !ok || t.UserID != arg.UserID || t.UsedAt.Valid || !t.ExpiresAt.After(time.Now()) {
		return db.PasswordResetToken{}, sql.ErrNoRows
	}
	t.UsedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	q.resetTokens[arg.TokenHash] = t
	return t, nil
}

func (q *memQuerier) ReleasePasswordResetToken(ctx context.Context, arg db.ReleasePasswordResetTokenParams) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.resetTokens[arg.TokenHash]
	if !ok || t.UserID != arg.UserID || !t.UsedAt.Valid || !t.ExpiresAt.After(time.Now()) {
		return 0, nil
	}
	t.UsedAt = sql.NullTime{}
	q.resetTokens[arg.TokenHash] = t
	return 1, nil
}

func (q *memQuerier) DeletePasswordResetTokensForUser(ctx context.Context, userID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for k, t := range q.resetTokens {
		if t.UserID == userID {
			delete(q.resetTokens, k)
		}
	}
	return nil
}

// captureSender records outgoing email instead of sending it.
type captureSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (c *captureSender) Send(ctx context.Context, msg email.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureSender) Last() (email.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return email.Message{}, false
	}
	return c.sent[len(c.sent)-1], true
}

var errSMTPDown = errors.New("smtp: connection refused")
