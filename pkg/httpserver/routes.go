package httpserver

import (
	"net/http"

	"github.com/eswan18/passwordreset/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
)

// registerRoutes registers all routes on the given router.
func (s *Server) registerRoutes() {
	// Static files (the wasm form controller and its loader)
	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	s.router.Get("/health", s.HandleHealthCheck)
	s.router.Handle("/metrics", metrics.Handler())

	s.router.Route("/api/auth", func(r chi.Router) {
		if len(s.config.CORSAllowedOrigins) > 0 {
			r.Use(cors.New(cors.Options{
				AllowedOrigins: s.config.CORSAllowedOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
				AllowedHeaders: []string{"Content-Type", "Authorization"},
				MaxAge:         3600,
			}).Handler)
		}

		r.Post("/register/", s.HandleRegister)
		r.Post("/login/", s.HandleLogin)
		r.Post("/reset-password/", s.HandleResetPasswordRequest)
		r.Get("/reset_password_confirmation/{uidb64}/{token}/", s.HandleResetPasswordConfirmationGet)
		r.Post("/reset_password_confirmation/{uidb64}/{token}/", s.HandleResetPasswordConfirmationPost)

		// Token authenticated
		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)
			r.Post("/logout/", s.HandleLogout)
			r.Get("/user/", s.HandleGetUser)
			r.Put("/update-user/", s.HandleUpdateUser)
			r.Patch("/update-user/", s.HandleUpdateUser)
			r.Post("/change-password/", s.HandleChangePassword)
		})
	})

	// 404 handler - catch all unmatched routes
	s.router.NotFound(s.HandleNotFound)
}

// HandleNotFound handles 404 Not Found errors
func (s *Server) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte("404 - Not Found: " + r.URL.Path))
}

// HandleHealthCheck godoc
// @Summary      Health check
// @Tags         health
// @Produce      plain
// @Success      200 {string} string "OK"
// @Router       /health [get]
func (s *Server) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
