package handlers

import (
	"net/http"
	"strconv"

	"carpool-route-service/internal/api/dto"
	"carpool-route-service/internal/domain"
	"carpool-route-service/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// RunHandler serves the planning run history.
type RunHandler struct {
	Repo ports.RunRepository
}

func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeError(w, r, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	runs, err := h.Repo.ListRuns(r.Context(), limit)
	if err != nil {
		logrus.WithError(err).Error("list runs failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.ListRunsResponse{
		Runs: lo.Map(runs, func(run domain.Run, _ int) dto.RunSummaryResponse {
			return dto.RunSummaryResponse{
				ID:          run.ID,
				Destination: run.Destination,
				StartedAt:   run.StartedAt,
				FinishedAt:  run.FinishedAt,
			}
		}),
	})
}

func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.Repo.GetRun(r.Context(), id)
	if err != nil {
		logrus.WithError(err).WithField("run_id", id).Error("get run failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	if run == nil {
		writeError(w, r, http.StatusNotFound, "run not found")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewRunResponse(run))
}
