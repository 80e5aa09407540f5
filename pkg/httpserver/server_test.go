package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/eswan18/passwordreset/pkg/auth"
	"github.com/eswan18/passwordreset/pkg/config"
	"github.com/eswan18/passwordreset/pkg/db"
	"github.com/eswan18/passwordreset/pkg/resettoken"
)

var resetLinkPattern = regexp.MustCompile(`https?://[^\s"<]+/api/auth/reset_password_confirmation/([^/\s]+)/([^/\s]+)/`)

type ServerSuite struct {
	suite.Suite
	cfg     *config.Config
	queries *memQuerier
	redis   *miniredis.Miniredis
	tokens  *resettoken.RedisStore
	sender  *captureSender
	server  *Server
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	s.redis = miniredis.RunT(s.T())
	s.tokens = resettoken.NewRedisStore(redis.NewClient(&redis.Options{Addr: s.redis.Addr()}))
	s.queries = newMemQuerier()
	s.sender = &captureSender{}
	s.cfg = &config.Config{
		HTTPAddress:   "127.0.0.1:0",
		TemplatesDir:  "../../templates",
		StaticDir:     s.T().TempDir(),
		SiteName:      "Acme",
		PublicURL:     "https://auth.example.com",
		ResetTokenTTL: 30 * time.Minute,
	}
	s.server = New(s.cfg, s.queries, s.tokens, s.sender, zerolog.Nop())
}

func (s *ServerSuite) TearDownTest() {
	s.tokens.Close()
}

func (s *ServerSuite) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		s.Require().NoError(err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	rec := httptest.NewRecorder()
	s.server.Router().ServeHTTP(rec, req)
	return rec
}

func (s *ServerSuite) decode(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// seedUser creates a user with the given password and returns it with an
// API token.
func (s *ServerSuite) seedUser(username, emailAddr, password string) (db.AuthUser, string) {
	hash, err := auth.HashPassword(password)
	s.Require().NoError(err)
	u, err := s.queries.CreateUser(context.Background(), db.CreateUserParams{
		Username:     username,
		Email:        emailAddr,
		FirstName:    "John",
		LastName:     "Snow",
		PasswordHash: hash,
	})
	s.Require().NoError(err)
	token, err := s.server.getOrCreateAuthToken(context.Background(), u.ID)
	s.Require().NoError(err)
	return u, token
}

// requestReset asks for a reset email and returns the uidb64 and raw token
// from the emailed link.
func (s *ServerSuite) requestReset(emailAddr string) (string, string) {
	rec := s.do(http.MethodPost, "/api/auth/reset-password/", map[string]string{"email": emailAddr}, "")
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	msg, ok := s.sender.Last()
	s.Require().True(ok)
	m := resetLinkPattern.FindStringSubmatch(msg.Text)
	s.Require().Len(m, 3, msg.Text)
	return m[1], m[2]
}

func (s *ServerSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/health", nil, "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("OK", rec.Body.String())
}

func (s *ServerSuite) TestNotFound() {
	rec := s.do(http.MethodGet, "/nope", nil, "")
	s.Equal(http.StatusNotFound, rec.Code)
	s.Contains(rec.Body.String(), "/nope")
}

func (s *ServerSuite) TestMetrics() {
	s.do(http.MethodPost, "/api/auth/reset-password/", map[string]string{"email": "nobody@example.com"}, "")

	rec := s.do(http.MethodGet, "/metrics", nil, "")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "passwordreset_email_requests_total")
}

func (s *ServerSuite) TestRegister() {
	rec := s.do(http.MethodPost, "/api/auth/register/", map[string]string{
		"username":   "mike",
		"email":      "miketyson@code.com",
		"first_name": "Mike",
		"last_name":  "Tyson",
		"password":   "pass1234",
	}, "")
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	body := s.decode(rec)
	user := body["user"].(map[string]any)
	s.Equal("mike", user["username"])
	s.Equal("Mike", user["first_name"])
	s.Equal("Tyson", user["last_name"])
	s.NotContains(user, "password_hash")
	s.Len(body["token"], 40)
}

func (s *ServerSuite) TestRegister_Duplicate() {
	s.seedUser("mike", "mike@example.com", "pass1234")

	rec := s.do(http.MethodPost, "/api/auth/register/", map[string]string{
		"username": "mike",
		"password": "other",
	}, "")
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal([]any{duplicateUsernameMessage}, s.decode(rec)["username"])
}

func (s *ServerSuite) TestRegister_Validation() {
	rec := s.do(http.MethodPost, "/api/auth/register/", map[string]string{
		"username": "bad name!",
		"email":    "not-an-email",
	}, "")
	s.Require().Equal(http.StatusBadRequest, rec.Code)

	body := s.decode(rec)
	s.Contains(body, "username")
	s.Equal([]any{"Enter a valid email address."}, body["email"])
	s.Equal([]any{"This field is required."}, body["password"])
}

func (s *ServerSuite) TestRegister_BadJSON() {
	rec := s.do(http.MethodPost, "/api/auth/register/", "{not json", "")
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(s.decode(rec)["detail"], "JSON parse error")
}

func (s *ServerSuite) TestLogin() {
	_, token := s.seedUser("john", "john@snow.com", "secret99")

	rec := s.do(http.MethodPost, "/api/auth/login/", map[string]string{
		"username": "john",
		"password": "secret99",
	}, "")
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	body := s.decode(rec)
	s.Equal(token, body["token"], "existing token is reused")
	s.Equal("john@snow.com", body["user"].(map[string]any)["email"])
}

func (s *ServerSuite) TestLogin_WrongPassword() {
	s.seedUser("john", "john@snow.com", "secret99")

	for _, creds := range []map[string]string{
		{"username": "john", "password": "wrong"},
		{"username": "ghost", "password": "secret99"},
	} {
		rec := s.do(http.MethodPost, "/api/auth/login/", creds, "")
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal([]any{"Unable to log in with provided credentials."}, s.decode(rec)["non_field_errors"])
	}
}

func (s *ServerSuite) TestAuthRequired() {
	rec := s.do(http.MethodGet, "/api/auth/user/", nil, "")
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("Authentication credentials were not provided.", s.decode(rec)["detail"])
	s.Equal("Token", rec.Header().Get("WWW-Authenticate"))

	rec = s.do(http.MethodGet, "/api/auth/user/", nil, "deadbeef")
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("Invalid token.", s.decode(rec)["detail"])

	req := httptest.NewRequest(http.MethodGet, "/api/auth/user/", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rr := httptest.NewRecorder()
	s.server.Router().ServeHTTP(rr, req)
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *ServerSuite) TestGetUserAndLogout() {
	_, token := s.seedUser("john", "john@snow.com", "secret99")

	rec := s.do(http.MethodGet, "/api/auth/user/", nil, token)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("john", s.decode(rec)["username"])

	rec = s.do(http.MethodPost, "/api/auth/logout/", nil, token)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(true, s.decode(rec)["success"])

	rec = s.do(http.MethodGet, "/api/auth/user/", nil, token)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *ServerSuite) TestUpdateUser() {
	_, token := s.seedUser("john", "john@snow.com", "secret99")

	rec := s.do(http.MethodPatch, "/api/auth/update-user/", map[string]string{
		"first_name": "Froid",
		"last_name":  "",
	}, token)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	body := s.decode(rec)
	s.Equal("Froid", body["first_name"])
	s.Equal("Snow", body["last_name"], "empty values leave fields unchanged")
	s.Equal("john@snow.com", body["email"])

	rec = s.do(http.MethodPut, "/api/auth/update-user/", map[string]string{"email": "king@north.com"}, token)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("king@north.com", s.decode(rec)["email"])
}

func (s *ServerSuite) TestChangePassword() {
	_, token := s.seedUser("john", "john@snow.com", "secret99")

	rec := s.do(http.MethodPost, "/api/auth/change-password/", map[string]string{"new_password": "x"}, token)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal([]any{"old_password is required"}, s.decode(rec)["old_password"])

	rec = s.do(http.MethodPost, "/api/auth/change-password/", map[string]string{"old_password": "secret99"}, token)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal([]any{"new_password is required"}, s.decode(rec)["new_password"])

	rec = s.do(http.MethodPost, "/api/auth/change-password/", map[string]string{
		"old_password": "wrong",
		"new_password": "newpass99",
	}, token)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal([]any{"old_password is invalid!"}, s.decode(rec)["old_password"])

	rec = s.do(http.MethodPost, "/api/auth/change-password/", map[string]string{
		"old_password": "secret99",
		"new_password": "newpass99",
	}, token)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/auth/login/", map[string]string{"username": "john", "password": "newpass99"}, "")
	s.Equal(http.StatusOK, rec.Code)
}

func (s *ServerSuite) TestChangePassword_RevokesResetLinks() {
	user, token := s.seedUser("john", "john@snow.com", "secret99")
	uidb64, rawToken := s.requestReset(user.Email)

	rec := s.do(http.MethodPost, "/api/auth/change-password/", map[string]string{
		"old_password": "secret99",
		"new_password": "newpass99",
	}, token)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/api/auth/reset_password_confirmation/"+uidb64+"/"+rawToken+"/", map[string]string{"password": "another1"}, "")
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *ServerSuite) TestCORS() {
	s.cfg.CORSAllowedOrigins = []string{"https://app.example.com"}
	s.server = New(s.cfg, s.queries, s.tokens, s.sender, zerolog.Nop())

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.server.Router().ServeHTTP(rec, req)

	s.Less(rec.Code, 300)
	s.Equal("https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/auth/login/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	s.server.Router().ServeHTTP(rec, req)
	s.Empty(rec.Header().Get("Access-Control-Allow-Origin"))
}

func (s *ServerSuite) TestRequestLog_OmitsResetToken() {
	var buf bytes.Buffer
	s.server = New(s.cfg, s.queries, s.tokens, s.sender, zerolog.New(&buf))
	user, _ := s.seedUser("john", "john@snow.com", "secret99")
	uidb64, rawToken := s.requestReset(user.Email)

	s.do(http.MethodGet, "/api/auth/reset_password_confirmation/"+uidb64+"/"+rawToken+"/", nil, "")
	s.do(http.MethodPost, "/api/auth/reset_password_confirmation/"+uidb64+"/"+rawToken+"/", map[string]string{"password": "x"}, "")
	s.do(http.MethodGet, "/api/auth/reset_password_confirmation/"+uidb64+"/"+rawToken, nil, "")

	logged := buf.String()
	s.NotContains(logged, rawToken)
	s.Contains(logged, `"path":"/api/auth/reset_password_confirmation/{uidb64}/{token}/"`)
}

func TestLoggedPath_Unrouted(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/reset_password_confirmation/abc/secret-token", nil)
	assert.Equal(t, "/api/auth/reset_password_confirmation/[redacted]", loggedPath(req))

	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	assert.Equal(t, "/nope", loggedPath(req))
}
