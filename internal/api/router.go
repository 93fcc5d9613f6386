package api

import (
	"net/http"

	"carpool-route-service/internal/api/handlers"
	"carpool-route-service/internal/ports"
	"carpool-route-service/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Groups             ports.GroupRepository
	Runs               ports.RunRepository
	Planner            handlers.RunPlanner
	Optimizer          services.RouteOptimizer
	DefaultDestination string
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(d Deps) http.Handler {
	groupHandler := &handlers.GroupHandler{Repo: d.Groups}
	planHandler := &handlers.PlanHandler{
		Planner:            d.Planner,
		DefaultDestination: d.DefaultDestination,
	}
	routeHandler := &handlers.RouteHandler{Optimizer: d.Optimizer}
	runHandler := &handlers.RunHandler{Repo: d.Runs}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", handlers.Health)
	r.Get("/groups", groupHandler.List)
	r.Post("/plans", planHandler.Plan)
	r.Post("/routes", routeHandler.Compute)
	r.Get("/runs", runHandler.List)
	r.Get("/runs/{id}", runHandler.Get)

	return r
}
