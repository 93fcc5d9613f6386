package handlers

import (
	"net/http"
	"strings"

	"carpool-route-service/internal/api/dto"
	"carpool-route-service/internal/domain"
	"carpool-route-service/internal/services"
)

// RouteHandler optimizes a single ad-hoc leg.
type RouteHandler struct {
	Optimizer services.RouteOptimizer
}

func (h *RouteHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var req dto.RouteRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	end := strings.TrimSpace(req.End)
	if end == "" {
		writeError(w, r, http.StatusBadRequest, "end is required")
		return
	}

	route, err := h.Optimizer.Optimize(r.Context(), strings.TrimSpace(req.Start), req.Stops, end)
	if err != nil {
		writeJSON(w, r, http.StatusUnprocessableEntity, domain.AsRouteError(err))
		return
	}

	writeJSON(w, r, http.StatusOK, dto.RouteResponse{
		Order:        route.Order,
		TotalSeconds: route.TotalSeconds,
		PrettyTime:   route.PrettyTime,
		MapsURL:      services.DirectionsURL(route.Order, false),
	})
}
