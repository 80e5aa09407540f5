package httpserver

import (
	"context"
	"html/template"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/eswan18/passwordreset/pkg/config"
	"github.com/eswan18/passwordreset/pkg/db"
	"github.com/eswan18/passwordreset/pkg/email"
	"github.com/eswan18/passwordreset/pkg/resettoken"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type Server struct {
	config             *config.Config
	queries            db.Querier
	resetTokens        resettoken.Store
	emailSender        email.Sender
	log                zerolog.Logger
	router             chi.Router
	httpServer         *http.Server
	passwordChangeForm *template.Template
	now                func() time.Time
}

func New(cfg *config.Config, queries db.Querier, resetTokens resettoken.Store, emailSender email.Sender, log zerolog.Logger) *Server {
	r := chi.NewRouter()
	passwordChangeForm := template.Must(template.ParseFiles(filepath.Join(cfg.TemplatesDir, "password_change_form.html")))

	log = log.With().Str("component", "httpserver").Logger()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	s := &Server{
		config:             cfg,
		queries:            queries,
		resetTokens:        resetTokens,
		emailSender:        emailSender,
		log:                log,
		router:             r,
		passwordChangeForm: passwordChangeForm,
		now:                time.Now,
	}
	s.registerRoutes()

	return s
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// IsListening checks if the server is listening on the configured address.
func (s *Server) IsListening() bool {
	if s.httpServer == nil {
		return false
	}
	conn, err := net.DialTimeout("tcp", s.config.HTTPAddress, 5*time.Second)
	if err != nil {
		return false
	}
	defer conn.Close()
	return true
}

func (s *Server) Run() error {
	s.httpServer = &http.Server{
		Addr:              s.config.HTTPAddress,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Str("addr", s.config.HTTPAddress).Msg("listening")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Close() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

const resetConfirmationPrefix = "/api/auth/reset_password_confirmation/"

// requestLogger writes one structured line per request. Matched requests
// are logged by route pattern so reset tokens in the URL never reach the
// log.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			log.Info().
				Str("method", r.Method).
				Str("path", loggedPath(r)).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("remote_ip", r.RemoteAddr).
				Msg("http_request")
		})
	}
}

func loggedPath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	if strings.HasPrefix(r.URL.Path, resetConfirmationPrefix) {
		return resetConfirmationPrefix + "[redacted]"
	}
	return r.URL.Path
}
