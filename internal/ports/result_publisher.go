package ports

import (
	"context"

	"carpool-route-service/internal/domain"
)

// ResultPublisher hands computed group routes to downstream consumers
// (sheet writers, notifiers).
type ResultPublisher interface {
	PublishRun(ctx context.Context, run *domain.Run) error
}
