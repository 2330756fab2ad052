package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/hoanghai1803/murmur/internal/ai"
	"github.com/hoanghai1803/murmur/internal/api/handlers"
	"github.com/hoanghai1803/murmur/internal/archive"
	"github.com/hoanghai1803/murmur/internal/collect"
)

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(backend archive.Backend, aiProvider ai.AIProvider, collectors []collect.Collector, collectCfg collect.Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(RequestLogger)
	r.Use(Recovery)
	r.Use(CORS)

	r.Route("/api", func(api chi.Router) {
		api.Post("/collect", handlers.Collect(handlers.CollectDeps{
			Collectors: collectors,
			Suggester:  suggesterOrNil(aiProvider),
			Archive:    backend,
			Config:     collectCfg,
		}))

		api.Get("/batches", handlers.ListBatches(backend))
		api.Get("/batches/{id}", handlers.GetBatch(backend))

		api.Post("/suggest", handlers.Suggest(aiProvider))
		api.Get("/stats", handlers.GetStats(backend))
	})

	return r
}

// suggesterOrNil narrows the provider to the planner's Suggester interface,
// keeping a nil provider as a nil interface rather than a typed nil.
func suggesterOrNil(p ai.AIProvider) collect.Suggester {
	if p == nil {
		return nil
	}
	return p
}
