package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"carpool-route-service/internal/api/dto"
	"carpool-route-service/internal/domain"
	"carpool-route-service/internal/services"

	"github.com/sirupsen/logrus"
)

// RunPlanner is the planning entry point the handler needs.
type RunPlanner interface {
	Run(ctx context.Context, destination string) (*domain.Run, error)
}

type PlanHandler struct {
	Planner            RunPlanner
	DefaultDestination string
}

// Plan routes every roster group to the requested destination and returns
// the recorded run. Per-group failures are part of a 200 response.
func (h *PlanHandler) Plan(w http.ResponseWriter, r *http.Request) {
	var req dto.PlanRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	dest := strings.TrimSpace(req.Destination)
	if dest == "" {
		dest = strings.TrimSpace(h.DefaultDestination)
	}

	run, err := h.Planner.Run(r.Context(), dest)
	if errors.Is(err, services.ErrMissingDestination) {
		writeError(w, r, http.StatusBadRequest, "destination is required")
		return
	}
	if err != nil {
		logrus.WithError(err).Error("plan run failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewRunResponse(run))
}
