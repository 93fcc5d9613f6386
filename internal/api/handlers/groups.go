package handlers

import (
	"net/http"

	"carpool-route-service/internal/api/dto"
	"carpool-route-service/internal/ports"

	"github.com/sirupsen/logrus"
)

// GroupHandler exposes the stored roster read-only.
type GroupHandler struct {
	Repo ports.GroupRepository
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Repo.ListGroups(r.Context())
	if err != nil {
		logrus.WithError(err).Error("list groups failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.ListGroupsResponse{Groups: groups})
}
