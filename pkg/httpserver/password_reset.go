package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/eswan18/passwordreset/pkg/auth"
	"github.com/eswan18/passwordreset/pkg/db"
	"github.com/eswan18/passwordreset/pkg/email"
	"github.com/eswan18/passwordreset/pkg/metrics"
	"github.com/eswan18/passwordreset/pkg/resettoken"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const defaultResetSubject = "Password Reset email"

type resetPasswordRequest struct {
	Email   string `json:"email"`
	Subject string `json:"subject"`
}

// HandleResetPasswordRequest godoc
// @Summary      Request a password reset email
// @Description  Emails a single-use link to the account with the given address
// @Tags         password-reset
// @Accept       json
// @Produce      json
// @Param        email   body string true  "Account email"
// @Param        subject body string false "Email subject"
// @Success      200 {object} map[string]string
// @Failure      400 {object} map[string]string "Unable to send email"
// @Failure      404 {object} map[string]string "No account with that email"
// @Router       /api/auth/reset-password/ [post]
func (s *Server) HandleResetPasswordRequest(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Subject == "" {
		req.Subject = defaultResetSubject
	}

	if req.Email == "" {
		metrics.RecordResetEmailRequest(metrics.ResultNotFound)
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	user, err := s.queries.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordResetEmailRequest(metrics.ResultNotFound)
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	if err != nil {
		metrics.RecordResetEmailRequest(metrics.ResultError)
		s.log.Error().Err(err).Msg("failed to look up user by email")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	rawToken, tokenHash, err := auth.GenerateResetToken()
	if err != nil {
		metrics.RecordResetEmailRequest(metrics.ResultError)
		s.log.Error().Err(err).Msg("failed to generate reset token")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if err := s.resetTokens.Save(r.Context(), user.ID, tokenHash, s.config.ResetTokenTTL); err != nil {
		metrics.RecordResetEmailRequest(metrics.ResultError)
		s.log.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to store reset token")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	msg := email.NewPasswordResetMessage(user.Email, req.Subject, email.PasswordResetData{
		SiteName:  s.config.SiteName,
		Username:  user.Username,
		ResetURL:  s.resetURL(r, user.ID, rawToken),
		ExpiresIn: formatTTL(s.config.ResetTokenTTL),
	})
	if err := s.emailSender.Send(r.Context(), msg); err != nil {
		metrics.RecordResetEmailRequest(metrics.ResultSendFailed)
		s.log.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to send reset email")
		writeMessage(w, http.StatusBadRequest, "Unable to send email!")
		return
	}

	metrics.RecordResetEmailRequest(metrics.ResultSuccess)
	s.log.Info().Str("user_id", user.ID.String()).Msg("password reset email sent")
	writeMessage(w, http.StatusOK, "Password reset email sent successfully!")
}

// resetURL builds the absolute confirmation link for the email.
func (s *Server) resetURL(r *http.Request, userID uuid.UUID, rawToken string) string {
	base := s.config.PublicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return fmt.Sprintf("%s%s%s/%s/", base, resetConfirmationPrefix, auth.EncodeUID(userID), rawToken)
}

func formatTTL(d time.Duration) string {
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	if d%time.Minute == 0 {
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
	return d.String()
}

// userFromUID resolves the uidb64 path segment. Any decoding or lookup
// failure yields ok=false; err is set only for database errors.
func (s *Server) userFromUID(r *http.Request) (user db.AuthUser, ok bool, err error) {
	id, err := auth.DecodeUID(chi.URLParam(r, "uidb64"))
	if err != nil {
		return db.AuthUser{}, false, nil
	}
	user, err = s.queries.GetUserByID(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return db.AuthUser{}, false, nil
	}
	if err != nil {
		return db.AuthUser{}, false, err
	}
	return user, true, nil
}

// HandleResetPasswordConfirmationGet godoc
// @Summary      Show the new password form
// @Description  Page opened from the reset email. The token is checked on submit, not here.
// @Tags         password-reset
// @Produce      html
// @Param        uidb64 path string true "Encoded user id"
// @Param        token  path string true "Reset token"
// @Success      200 {string} string "HTML form, or a plain text notice for an unknown user"
// @Router       /api/auth/reset_password_confirmation/{uidb64}/{token}/ [get]
func (s *Server) HandleResetPasswordConfirmationGet(w http.ResponseWriter, r *http.Request) {
	user, ok, err := s.userFromUID(r)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to look up user for reset form")
		http.Error(w, "An error occurred while loading the page", http.StatusInternalServerError)
		return
	}
	if !ok {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Invalid password reset token!"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.passwordChangeForm.Execute(w, PasswordChangePageData{
		SiteName: s.config.SiteName,
		Username: user.Username,
	}); err != nil {
		s.log.Error().Err(err).Msg("failed to render password change form")
	}
}

type confirmResetRequest struct {
	Password string `json:"password"`
}

// HandleResetPasswordConfirmationPost godoc
// @Summary      Set a new password
// @Description  Consumes the reset token, sets the password and returns an API token
// @Tags         password-reset
// @Accept       json
// @Produce      json
// @Param        uidb64   path string true "Encoded user id"
// @Param        token    path string true "Reset token"
// @Param        password body string true "New password"
// @Success      200 {object} authResponse
// @Failure      403 {object} map[string]string "Token expired or already used"
// @Failure      404 {object} map[string]string "Unknown user"
// @Router       /api/auth/reset_password_confirmation/{uidb64}/{token}/ [post]
func (s *Server) HandleResetPasswordConfirmationPost(w http.ResponseWriter, r *http.Request) {
	user, ok, err := s.userFromUID(r)
	if err != nil {
		metrics.RecordResetConfirmation(metrics.ResultError)
		s.log.Error().Err(err).Msg("failed to look up user for reset")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !ok {
		metrics.RecordResetConfirmation(metrics.ResultNotFound)
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Invalid user token!"})
		return
	}

	var req confirmResetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		metrics.RecordResetConfirmation(metrics.ResultError)
		s.log.Error().Err(err).Msg("failed to hash password")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	tokenHash := auth.HashToken(chi.URLParam(r, "token"))
	err = s.resetTokens.Consume(r.Context(), user.ID, tokenHash)
	if errors.Is(err, resettoken.ErrInvalidToken) {
		metrics.RecordResetConfirmation(metrics.ResultInvalidToken)
		s.log.Debug().Str("user_id", user.ID.String()).Msg("rejected reset token")
		writeMessage(w, http.StatusForbidden, "Password reset token has expired!")
		return
	}
	if err != nil {
		metrics.RecordResetConfirmation(metrics.ResultError)
		s.log.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to consume reset token")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	now := s.now().UTC()
	err = s.queries.ResetUserPassword(r.Context(), db.ResetUserPasswordParams{
		ID:           user.ID,
		PasswordHash: passwordHash,
		LastLogin:    now,
	})
	if err != nil {
		metrics.RecordResetConfirmation(metrics.ResultError)
		s.log.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to reset password")
		// The password did not change, so the link stays good.
		if err := s.resetTokens.Release(context.WithoutCancel(r.Context()), user.ID, tokenHash); err != nil {
			s.log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to release reset token")
		}
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	user.PasswordHash = passwordHash
	user.LastLogin = sql.NullTime{Time: now, Valid: true}

	// Any other links sent to this user are now stale.
	if err := s.resetTokens.Revoke(r.Context(), user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to revoke reset tokens")
	}

	token, err := s.getOrCreateAuthToken(r.Context(), user.ID)
	if err != nil {
		metrics.RecordResetConfirmation(metrics.ResultError)
		s.log.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to issue auth token")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	metrics.RecordResetConfirmation(metrics.ResultSuccess)
	s.log.Info().Str("user_id", user.ID.String()).Msg("password reset")
	writeJSON(w, http.StatusOK, authResponse{User: newUserResponse(user), Token: token})
}
