package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jlcilliers/cvchat/internal/api"
	"github.com/jlcilliers/cvchat/internal/api/handlers"
	"github.com/jlcilliers/cvchat/internal/api/middleware"
)

// MaxBodyBytes leaves room for multipart framing around a maximum-size CV.
const MaxBodyBytes int64 = 11 * 1024 * 1024

type RouterConfig struct {
	AdminToken    string
	ChatHandler   *handlers.ChatHandler
	SearchHandler *handlers.SearchHandler
	AdminHandler  *handlers.AdminHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.MaxBodyBytes(MaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", cfg.ChatHandler.Chat)
		r.Post("/search", cfg.SearchHandler.Search)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAuth(cfg.AdminToken))

			r.Post("/upload", cfg.AdminHandler.Upload)
			r.Get("/index", cfg.AdminHandler.IndexStatus)
			r.Get("/document", cfg.AdminHandler.Document)
		})
	})

	return r
}
