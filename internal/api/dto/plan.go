package dto

import (
	"time"

	"carpool-route-service/internal/domain"
)

type PlanRequest struct {
	Destination string `json:"destination"`
}

type RunResponse struct {
	ID          string         `json:"id"`
	Destination string         `json:"destination"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	FailedLegs  int            `json:"failed_legs"`
	Groups      []domain.Group `json:"groups"`
}

type RunSummaryResponse struct {
	ID          string    `json:"id"`
	Destination string    `json:"destination"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

type ListRunsResponse struct {
	Runs []RunSummaryResponse `json:"runs"`
}

func NewRunResponse(run *domain.Run) RunResponse {
	groups := run.Groups
	if groups == nil {
		groups = []domain.Group{}
	}
	return RunResponse{
		ID:          run.ID,
		Destination: run.Destination,
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
		FailedLegs:  run.FailedLegs(),
		Groups:      groups,
	}
}
