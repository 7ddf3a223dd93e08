package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/hidaya/internal/app"
	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

// Store est la base locale vue par le contrôle de santé.
type Store interface {
	Ping(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)
}

// Deps regroupe les services exposés par l'API; un service nil désactive ses routes.
type Deps struct {
	Jobs     *app.JobService
	Settings *app.SettingsService
	Reader   *app.Reader
	Player   *app.PlaybackController
	Search   *app.SearchService
	Daily    *app.DailyVerseService
	Prayer   *app.PrayerService
	Commands *app.Dispatcher
	Offline  ports.OfflineRepository
	Bus      ports.EventBus
	Store    Store
}

type Server struct {
	logger zerolog.Logger
	deps   Deps
}

func NewServer(logger zerolog.Logger, deps Deps) *Server {
	return &Server{logger: logger, deps: deps}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLogFn))

	r.Route("/api/v1", func(r chi.Router) {
		// Flux SSE: hors du timeout des requêtes classiques.
		r.Get("/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(defaultRequestTimeout))

			r.Get("/health", s.handleHealth)
			r.Get("/version", s.handleVersion)
			r.Get("/openapi.json", s.handleOpenAPI)

			if s.deps.Jobs != nil {
				NewJobsHandler(s.deps.Jobs).Routes(r)
			}
			if s.deps.Settings != nil {
				NewSettingsHandler(s.deps.Settings).Routes(r)
			}
			if s.deps.Reader != nil {
				NewReaderHandler(s.deps.Reader).Routes(r)
			}
			if s.deps.Player != nil && s.deps.Commands != nil {
				NewPlaybackHandler(s.deps.Player, s.deps.Commands).Routes(r)
				r.Post("/commands", s.handleCommand)
			}
			if s.deps.Search != nil {
				NewSearchHandler(s.deps.Search).Routes(r)
			}
			if s.deps.Daily != nil {
				r.Get("/daily", s.handleDaily)
			}
			if s.deps.Prayer != nil {
				r.Get("/prayer-times", s.handlePrayerTimes)
			}
			if s.deps.Offline != nil {
				r.Get("/offline", s.handleOffline)
			}
		})
	})

	return r
}
