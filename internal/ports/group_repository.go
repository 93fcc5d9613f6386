package ports

import (
	"context"

	"carpool-route-service/internal/domain"
)

// Port: a boundary for retrieving carpool groups from the roster.
type GroupRepository interface {
	// Retrieve all groups in roster order.
	ListGroups(ctx context.Context) ([]domain.Group, error)
}
