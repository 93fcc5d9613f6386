package services

import (
	"context"

	"carpool-route-service/internal/domain"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// RoundTripCoordinator computes the forward and return legs of every group.
//
// Each leg is its own optimizer call and therefore its own oracle fetch; the
// return leg is never derived from the forward matrix because traffic is not
// symmetric. A failing leg is recorded on its group and never stops the batch.
type RoundTripCoordinator struct {
	optimizer   RouteOptimizer
	concurrency int
}

// NewRoundTripCoordinator processes groups one at a time when concurrency <= 1,
// otherwise up to concurrency groups in flight.
func NewRoundTripCoordinator(optimizer RouteOptimizer, concurrency int) *RoundTripCoordinator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &RoundTripCoordinator{optimizer: optimizer, concurrency: concurrency}
}

// ComputeRoundTrip returns a copy of g with its route fields filled in.
func (c *RoundTripCoordinator) ComputeRoundTrip(ctx context.Context, g domain.Group, destination string) domain.Group {
	out := g
	out.ClearRoutes()
	stops := g.Stops()

	fwd, err := c.optimizer.Optimize(ctx, g.StartingAddress, stops, destination)
	if err != nil {
		out.BestRouteError = domain.AsRouteError(err)
	} else {
		out.BestRoute = fwd
		out.MapsURL = DirectionsURL(fwd.Order, false)
	}

	// The group start is the return leg's end; without it there is nothing to route to.
	if !g.HasStart() {
		out.BestReturnRouteError = domain.NewRouteError(domain.ErrMissingStart, "", nil)
	} else {
		ret, err := c.optimizer.Optimize(ctx, destination, stops, g.StartingAddress)
		if err != nil {
			out.BestReturnRouteError = domain.AsRouteError(err)
		} else {
			out.BestReturnRoute = ret
			out.MapsReturnURL = DirectionsURL(ret.Order, false)
		}
	}

	logGroup(&out)
	return out
}

// ComputeRoundTrips routes every group and returns them in input order.
func (c *RoundTripCoordinator) ComputeRoundTrips(ctx context.Context, groups []domain.Group, destination string) []domain.Group {
	out := make([]domain.Group, len(groups))

	if c.concurrency == 1 {
		for i := range groups {
			out[i] = c.ComputeRoundTrip(ctx, groups[i], destination)
		}
		return out
	}

	var eg errgroup.Group
	eg.SetLimit(c.concurrency)
	for i := range groups {
		eg.Go(func() error {
			out[i] = c.ComputeRoundTrip(ctx, groups[i], destination)
			return nil
		})
	}
	_ = eg.Wait()

	return out
}

func logGroup(g *domain.Group) {
	entry := logrus.WithFields(logrus.Fields{
		"column": g.Column,
		"driver": g.Driver,
		"stops":  len(g.PickupAddresses),
	})
	if g.BestRoute != nil {
		entry = entry.WithField("forward", g.BestRoute.PrettyTime)
	}
	if g.BestReturnRoute != nil {
		entry = entry.WithField("return", g.BestReturnRoute.PrettyTime)
	}

	if g.Failed() {
		if g.BestRouteError != nil {
			entry = entry.WithField("forward_error", g.BestRouteError.Error())
		}
		if g.BestReturnRouteError != nil {
			entry = entry.WithField("return_error", g.BestReturnRouteError.Error())
		}
		entry.Warn("group routed with errors")
		return
	}
	entry.Info("group routed")
}
