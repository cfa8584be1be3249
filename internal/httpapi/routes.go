package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-draft-assistant/internal/assistant"
	"github.com/DoyleJ11/lol-draft-assistant/internal/ws"
)

type Options struct {
	Logger *zap.Logger
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
	// RecordsPath is reloaded by POST /admin/reload without a body.
	RecordsPath string
}

func SetupRoutes(svc *assistant.Service, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger))

	r.Route("/drafts", func(r chi.Router) {
		r.Post("/", CreateDraft(svc, logger))
		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", GetDraft(svc, logger))
			r.Post("/actions", ApplyAction(svc, logger))
			r.Post("/random", RandomAction(svc, logger))
			r.Post("/undo", Undo(svc, logger))
			r.Post("/reset", Reset(svc, logger))
			r.Put("/home", SetHome(svc, logger))
			r.Put("/teams", SetTeams(svc, logger))
			r.Get("/phase", GetPhase(svc, logger))
			r.Get("/candidates", GetCandidates(svc, logger))
			r.Post("/advice", Advise(svc, logger))
		})
	})

	r.Get("/champions", ListChampions(svc, logger))
	r.Get("/teams/{name}", GetTeam(svc))
	r.Get("/teams/{name}/top-picks", GetTeamTopPicks(svc, logger))
	r.Get("/players/{name}", GetPlayer(svc))
	r.Post("/admin/reload", Reload(svc, opts.RecordsPath, logger))

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(svc, logger))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}
