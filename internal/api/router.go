package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	// Registers the generated API definitions with swag.
	_ "ryan-quiz/backend/docs"
)

// RouterConfig holds the router settings that come from configuration.
type RouterConfig struct {
	AllowedOrigins []string
	// RequestTimeout must exceed the model call timeout since message
	// submission waits for the reply.
	RequestTimeout time.Duration
}

// NewRouter creates and configures a new chi router with all the application's routes.
func NewRouter(handler *SessionHandler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CORS(cfg.AllowedOrigins))

	r.Get("/api/swagger/*", httpSwagger.WrapHandler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}

		r.Get("/questions", handler.ListQuestions)

		r.Post("/sessions", handler.CreateSession)
		r.Get("/sessions/{sessionID}", handler.GetSession)
		r.Delete("/sessions/{sessionID}", handler.DeleteSession)
		r.Post("/sessions/{sessionID}/messages", handler.SubmitMessage)
	})

	return r
}
