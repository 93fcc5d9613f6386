package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"carpool-route-service/internal/domain"
	"carpool-route-service/internal/platform/obs"
	"carpool-route-service/internal/ports"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrMissingDestination = errors.New("final destination is required")

// Planner runs one planning pass: roster in, routed groups out, recorded and
// handed to downstream consumers.
type Planner struct {
	groups      ports.GroupRepository
	runs        ports.RunRepository
	coordinator *RoundTripCoordinator
	publisher   ports.ResultPublisher
	now         func() time.Time
}

// NewPlanner wires the planner; runs and publisher may be nil.
func NewPlanner(
	groups ports.GroupRepository,
	runs ports.RunRepository,
	coordinator *RoundTripCoordinator,
	publisher ports.ResultPublisher,
) *Planner {
	return &Planner{
		groups:      groups,
		runs:        runs,
		coordinator: coordinator,
		publisher:   publisher,
		now:         time.Now,
	}
}

// Run routes every group of the roster to destination.
func (p *Planner) Run(ctx context.Context, destination string) (*domain.Run, error) {
	if strings.TrimSpace(destination) == "" {
		return nil, ErrMissingDestination
	}

	groups, err := p.groups.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("plan run: list groups: %w", err)
	}

	return p.RunGroups(ctx, groups, destination)
}

// RunGroups routes the given groups to destination. Only recording the run
// can fail it; routing failures live on the groups.
func (p *Planner) RunGroups(ctx context.Context, groups []domain.Group, destination string) (_ *domain.Run, err error) {
	defer obs.Time(ctx, "planner.RunGroups")(&err)

	dest := strings.TrimSpace(destination)
	if dest == "" {
		return nil, ErrMissingDestination
	}

	run := &domain.Run{
		ID:          uuid.NewString(),
		Destination: dest,
		StartedAt:   p.now().UTC(),
	}
	run.Groups = p.coordinator.ComputeRoundTrips(ctx, groups, dest)
	run.FinishedAt = p.now().UTC()

	if p.runs != nil {
		if err := p.runs.SaveRun(ctx, run); err != nil {
			return nil, fmt.Errorf("plan run: save run %s: %w", run.ID, err)
		}
	}

	if p.publisher != nil {
		if err := p.publisher.PublishRun(ctx, run); err != nil {
			logrus.WithError(err).WithField("run_id", run.ID).Warn("publish run results failed")
		}
	}

	logrus.WithFields(logrus.Fields{
		"run_id":      run.ID,
		"groups":      len(run.Groups),
		"failed_legs": run.FailedLegs(),
		"dur_ms":      run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
	}).Info("planning run complete")

	return run, nil
}
