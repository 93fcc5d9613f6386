package ports

import (
	"context"

	"carpool-route-service/internal/domain"
)

// Port: write-once history of planning runs.
type RunRepository interface {
	SaveRun(ctx context.Context, run *domain.Run) error
	// Return nil, nil when no run has the given id.
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	// Return the most recent runs first, without group details.
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)
}
