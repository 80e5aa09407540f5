package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/eswan18/passwordreset/pkg/auth"
	"github.com/eswan18/passwordreset/pkg/db"
	"github.com/eswan18/passwordreset/pkg/metrics"
	"github.com/eswan18/passwordreset/pkg/store"
	"github.com/google/uuid"
)

type userResponse struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	LastLogin *time.Time `json:"last_login"`
}

func newUserResponse(u db.AuthUser) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
	if u.LastLogin.Valid {
		t := u.LastLogin.Time
		resp.LastLogin = &t
	}
	return resp
}

type authResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

type ctxKey int

const userCtxKey ctxKey = iota

func userFromContext(ctx context.Context) (db.AuthUser, bool) {
	u, ok := ctx.Value(userCtxKey).(db.AuthUser)
	return u, ok
}

// requireToken authenticates "Authorization: Token <key>" and stores the
// user on the request context.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			s.unauthorized(w, "Authentication credentials were not provided.")
			return
		}
		scheme, key, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Token") || key == "" || strings.Contains(key, " ") {
			s.unauthorized(w, "Invalid token header.")
			return
		}

		user, err := s.queries.GetUserByAuthToken(r.Context(), key)
		if errors.Is(err, sql.ErrNoRows) {
			s.unauthorized(w, "Invalid token.")
			return
		}
		if err != nil {
			s.log.Error().Err(err).Msg("failed to look up auth token")
			writeDetail(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		ctx := context.WithValue(r.Context(), userCtxKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Token")
	writeDetail(w, http.StatusUnauthorized, detail)
}

// getOrCreateAuthToken returns the user's API token, creating one if needed.
func (s *Server) getOrCreateAuthToken(ctx context.Context, userID uuid.UUID) (string, error) {
	tok, err := s.queries.GetAuthTokenByUser(ctx, userID)
	if err == nil {
		return tok.Key, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("get auth token: %w", err)
	}

	key, err := auth.GenerateAPIKey()
	if err != nil {
		return "", err
	}
	tok, err = s.queries.CreateAuthToken(ctx, db.CreateAuthTokenParams{Key: key, UserID: userID})
	if store.IsUniqueViolation(err) {
		// Another request created it first.
		tok, err = s.queries.GetAuthTokenByUser(ctx, userID)
	}
	if err != nil {
		return "", fmt.Errorf("create auth token: %w", err)
	}
	return tok.Key, nil
}

type registerRequest struct {
	Username  string `json:"username" validate:"required,max=150,username_chars"`
	Email     string `json:"email" validate:"omitempty,email,max=254"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Password  string `json:"password" validate:"required"`
}

const duplicateUsernameMessage = "A user with that username already exists."

// HandleRegister godoc
// @Summary      Register a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Success      201 {object} authResponse
// @Failure      400 {object} fieldErrors
// @Router       /api/auth/register/ [post]
func (s *Server) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := validateRequest(req); errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	_, err := s.queries.GetUserByUsername(r.Context(), req.Username)
	if err == nil {
		writeJSON(w, http.StatusBadRequest, fieldErrors{"username": {duplicateUsernameMessage}})
		return
	}
	if !errors.Is(err, sql.ErrNoRows) {
		s.log.Error().Err(err).Msg("failed to look up username")
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to hash password")
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user, err := s.queries.CreateUser(r.Context(), db.CreateUserParams{
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: passwordHash,
	})
	if store.IsUniqueViolation(err) {
		writeJSON(w, http.StatusBadRequest, fieldErrors{"username": {duplicateUsernameMessage}})
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create user")
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := s.getOrCreateAuthToken(r.Context(), user.ID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to issue auth token")
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	metrics.RecordRegistration()
	s.log.Info().Str("user_id", user.ID.String()).Msg("user registered")
	writeJSON(w, http.StatusCreated, authResponse{User: newUserResponse(user), Token: token})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin godoc
// @Summary      Obtain an API token
// @Tags         users
// @Accept       json
// @Produce      json
// @Success      200 {object} authResponse
// @Failure      400 {object} fieldErrors
// @Router       /api/auth/login/ [post]
func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := validateRequest(req); errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	invalid := fieldErrors{"non_field_errors": {"Unable to log in with provided credentials."}}

	user, err := s.queries.GetUserByUsername(r.Context(), req.Username)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordLogin(metrics.ResultFailure)
		writeJSON(w, http.StatusBadRequest, invalid)
		return
	}
	if err != nil {
		metrics.RecordLogin(metrics.ResultError)
		s.log.Error().Err(err).Msg("failed to look up user")
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID.String()).Msg("stored password hash is unreadable")
	}
	if !ok {
		metrics.RecordLogin(metrics.ResultFailure)
		writeJSON(w, http.StatusBadRequest, invalid)
		return
	}

	token, err := s.getOrCreateAuthToken(r.Context(), user.ID)
	if err != nil {
		metrics.RecordLogin(metrics.ResultError)
		s.log.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to issue auth token")
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	metrics.RecordLogin(metrics.ResultSuccess)
	writeJSON(w, http.StatusOK, authResponse{User: newUserResponse(user), Token: token})
}

// HandleLogout godoc
// @Summary      Delete the caller's API token
// @Tags         users
// @Produce      json
// @Success      200 {object} map[string]bool
// @Router       /api/auth/logout/ [post]
func (s *Server) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	if err := s.queries.DeleteAuthTokensForUser(r.Context(), user.ID); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to delete auth token")
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleGetUser godoc
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Success      200 {object} userResponse
// @Router       /api/auth/user/ [get]
func (s *Server) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

type updateUserRequest struct {
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Email     string `json:"email" validate:"omitempty,email,max=254"`
}

// HandleUpdateUser godoc
// @Summary      Update profile fields
// @Description  Non-empty first_name, last_name and email overwrite the stored values
// @Tags         users
// @Accept       json
// @Produce      json
// @Success      200 {object} userResponse
// @Router       /api/auth/update-user/ [put]
func (s *Server) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := validateRequest(req); errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	params := db.UpdateUserProfileParams{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	}
	if req.FirstName != "" {
		params.FirstName = req.FirstName
	}
	if req.LastName != "" {
		params.LastName = req.LastName
	}
	if req.Email != "" {
		params.Email = req.Email
	}

	updated, err := s.queries.UpdateUserProfile(r.Context(), params)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to update user")
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(updated))
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// HandleChangePassword godoc
// @Summary      Change password
// @Tags         users
// @Accept       json
// @Produce      json
// @Success      200 {object} userResponse
// @Failure      400 {object} fieldErrors
// @Router       /api/auth/change-password/ [post]
func (s *Server) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.OldPassword == "" {
		writeJSON(w, http.StatusBadRequest, fieldErrors{"old_password": {"old_password is required"}})
		return
	}
	if req.NewPassword == "" {
		writeJSON(w, http.StatusBadRequest, fieldErrors{"new_password": {"new_password is required"}})
		return
	}

	if ok, _ := auth.VerifyPassword(req.OldPassword, user.PasswordHash); !ok {
		writeJSON(w, http.StatusBadRequest, fieldErrors{"old_password": {"old_password is invalid!"}})
		return
	}

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to hash password")
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	err = s.queries.UpdateUserPassword(r.Context(), db.UpdateUserPasswordParams{
		ID:           user.ID,
		PasswordHash: passwordHash,
	})
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to update password")
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Outstanding reset links die with the old password.
	if err := s.resetTokens.Revoke(r.Context(), user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to revoke reset tokens")
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}
