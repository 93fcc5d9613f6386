package traveltime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"carpool-route-service/internal/domain"
	"carpool-route-service/internal/platform/obs"
	"carpool-route-service/internal/ports"
)

// GoogleOracle implements TravelTimeOracle using the Google Distance Matrix API.
//
// Each FetchDurations call issues one all-pairs query in driving mode with a
// traffic-aware model and a departure time at or after the call. Results are
// validated into a complete DurationMatrix at this boundary; nothing downstream
// ever sees a partial matrix.
//
// The oracle is safe for concurrent use.
type GoogleOracle struct {
	session         *http.Client
	apiKey          string
	baseURL         string
	units           string
	trafficModel    string
	timeout         time.Duration
	departureOffset time.Duration
	maxLocations    int
	backoff         time.Duration
	throttle        ports.Throttle
	now             func() time.Time
}

type GoogleOptions struct {
	BaseURL         string
	Units           string
	TrafficModel    string
	Timeout         time.Duration
	DepartureOffset time.Duration
	MaxLocations    int
	// Optional; nil disables pacing.
	Throttle ports.Throttle
}

const (
	defaultBaseURL      = "https://maps.googleapis.com/maps/api/distancematrix/json"
	defaultTimeout      = 20 * time.Second
	defaultMaxLocations = 25
)

func NewGoogleOracle(apiKey string, opts GoogleOptions) (*GoogleOracle, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("google maps api key is empty")
	}

	o := &GoogleOracle{
		session:         &http.Client{},
		apiKey:          apiKey,
		baseURL:         opts.BaseURL,
		units:           opts.Units,
		trafficModel:    opts.TrafficModel,
		timeout:         opts.Timeout,
		departureOffset: opts.DepartureOffset,
		maxLocations:    opts.MaxLocations,
		backoff:         200 * time.Millisecond,
		throttle:        opts.Throttle,
		now:             time.Now,
	}
	if o.baseURL == "" {
		o.baseURL = defaultBaseURL
	}
	if o.units == "" {
		o.units = "imperial"
	}
	if o.trafficModel == "" {
		o.trafficModel = "best_guess"
	}
	if o.timeout <= 0 {
		o.timeout = defaultTimeout
	}
	if o.maxLocations <= 0 {
		o.maxLocations = defaultMaxLocations
	}
	if o.departureOffset < 0 {
		o.departureOffset = 0
	}

	return o, nil
}

// FetchDurations returns the live-traffic duration matrix for locations.
func (o *GoogleOracle) FetchDurations(
	ctx context.Context,
	locations []string,
) (_ *domain.DurationMatrix, err error) {
	defer obs.Time(ctx, "google.FetchDurations")(&err)

	if len(locations) == 0 {
		return nil, domain.NewRouteError(domain.ErrOracleRejected, "INVALID_REQUEST",
			errors.New("at least one location is required"))
	}
	if len(locations) > o.maxLocations {
		return nil, domain.NewRouteError(domain.ErrOracleLimitExceeded, "",
			fmt.Errorf("%d locations exceeds the provider limit of %d", len(locations), o.maxLocations))
	}
	for i, loc := range locations {
		if strings.TrimSpace(loc) == "" {
			return nil, domain.NewRouteError(domain.ErrOracleRejected, "INVALID_REQUEST",
				fmt.Errorf("location %d is empty", i))
		}
		// "|" separates locations in the origins and destinations params.
		if strings.Contains(loc, "|") {
			return nil, domain.NewRouteError(domain.ErrOracleRejected, "INVALID_REQUEST",
				fmt.Errorf("location %d contains the reserved separator %q", i, "|"))
		}
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var resp *matrixResponse
	err = o.doWithRetry(ctx, func() error {
		var e error
		resp, e = o.queryMatrix(ctx, locations)
		return e
	})
	if err != nil {
		return nil, classify(err)
	}

	return buildMatrix(locations, resp)
}

// departureTime returns a unix timestamp that is never before the current
// instant; traffic queries dated in the past are rejected by the provider.
func (o *GoogleOracle) departureTime() int64 {
	t := o.now().Add(o.departureOffset)
	secs := t.Unix()
	if t.Nanosecond() > 0 {
		secs++
	}
	return secs
}

// classify maps transport and provider failures onto the leg error taxonomy.
func classify(err error) *domain.RouteError {
	var re *domain.RouteError
	if errors.As(err, &re) {
		return re
	}

	var se *providerStatusError
	if errors.As(err, &se) {
		if se.Status == "REQUEST_DENIED" {
			return domain.NewRouteError(domain.ErrOracleUnavailable, se.Status, err)
		}
		return domain.NewRouteError(domain.ErrOracleRejected, se.Status, err)
	}

	var he *httpStatusError
	if errors.As(err, &he) {
		status := fmt.Sprintf("HTTP %d", he.Code)
		switch {
		case he.Code == http.StatusUnauthorized, he.Code == http.StatusForbidden,
			he.Code == http.StatusTooManyRequests, he.Code >= 500:
			return domain.NewRouteError(domain.ErrOracleUnavailable, status, err)
		default:
			return domain.NewRouteError(domain.ErrOracleRejected, status, err)
		}
	}

	return domain.NewRouteError(domain.ErrOracleUnavailable, "", err)
}
