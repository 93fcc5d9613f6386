package ports

import (
	"context"

	"carpool-route-service/internal/domain"
)

// Contract for retrieving live-traffic travel durations between locations.
type TravelTimeOracle interface {
	// Return the full pairwise duration matrix for locations in the given order.
	// Failures are *domain.RouteError values.
	FetchDurations(ctx context.Context, locations []string) (*domain.DurationMatrix, error)
}
