package traveltime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"carpool-route-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOracle(t *testing.T, handler http.HandlerFunc) (*GoogleOracle, *int32) {
	t.Helper()

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	o, err := NewGoogleOracle("test-key", GoogleOptions{
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
	})
	require.NoError(t, err)
	o.session = server.Client()
	o.backoff = time.Millisecond

	return o, &hits
}

func writeMatrix(t *testing.T, w http.ResponseWriter, resp matrixResponse) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func el(duration, traffic float64) matrixElement {
	e := matrixElement{Status: "OK"}
	if duration >= 0 {
		e.Duration = &matrixValue{Value: duration}
	}
	if traffic >= 0 {
		e.DurationInTraffic = &matrixValue{Value: traffic}
	}
	return e
}

func TestFetchDurationsPrefersTrafficDuration(t *testing.T) {
	fixedNow := time.Date(2026, 3, 2, 7, 30, 0, 500, time.UTC)

	o, hits := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Home|Work", q.Get("origins"))
		assert.Equal(t, "Home|Work", q.Get("destinations"))
		assert.Equal(t, "driving", q.Get("mode"))
		assert.Equal(t, "best_guess", q.Get("traffic_model"))
		assert.Equal(t, "imperial", q.Get("units"))
		assert.Equal(t, "test-key", q.Get("key"))

		dep, err := strconv.ParseInt(q.Get("departure_time"), 10, 64)
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, dep, fixedNow.Unix()+1, "departure time must not be in the past")

		writeMatrix(t, w, matrixResponse{
			Status: "OK",
			Rows: []matrixRow{
				{Elements: []matrixElement{el(0, 0), el(600, 900)}},
				{Elements: []matrixElement{el(650, -1), el(0, -1)}},
			},
		})
	})
	o.now = func() time.Time { return fixedNow }
	o.departureOffset = 0

	m, err := o.FetchDurations(context.Background(), []string{"Home", "Work"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))

	assert.Equal(t, 2, m.Size())
	assert.Equal(t, 900.0, m.At(0, 1), "traffic duration should win")
	assert.Equal(t, 650.0, m.At(1, 0), "baseline duration is the fallback")
	assert.Equal(t, 0.0, m.At(1, 1))
}

func TestFetchDurationsMissingDurationFailsWholesale(t *testing.T) {
	o, _ := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		writeMatrix(t, w, matrixResponse{
			Status: "OK",
			Rows: []matrixRow{
				{Elements: []matrixElement{el(0, 0), el(600, 900)}},
				{Elements: []matrixElement{{Status: "ZERO_RESULTS"}, el(0, 0)}},
			},
		})
	})

	m, err := o.FetchDurations(context.Background(), []string{"Home", "Nowhere"})
	require.Error(t, err)
	assert.Nil(t, m)
	assert.True(t, errors.Is(err, domain.ErrOracleDataMissing))
	assert.Equal(t, "ZERO_RESULTS", domain.AsRouteError(err).Status)
}

func TestFetchDurationsShortRowsAreDataMissing(t *testing.T) {
	o, _ := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		writeMatrix(t, w, matrixResponse{
			Status: "OK",
			Rows:   []matrixRow{{Elements: []matrixElement{el(0, 0), el(1, 1)}}},
		})
	})

	_, err := o.FetchDurations(context.Background(), []string{"A", "B"})
	assert.True(t, errors.Is(err, domain.ErrOracleDataMissing))
}

func TestFetchDurationsNonOKStatusIsRejected(t *testing.T) {
	o, hits := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		writeMatrix(t, w, matrixResponse{Status: "MAX_ELEMENTS_EXCEEDED", ErrorMessage: "too many"})
	})

	_, err := o.FetchDurations(context.Background(), []string{"A", "B"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOracleRejected))

	re := domain.AsRouteError(err)
	assert.Equal(t, "oracle_rejected", re.Code)
	assert.Equal(t, "MAX_ELEMENTS_EXCEEDED", re.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestFetchDurationsRequestDeniedIsUnavailable(t *testing.T) {
	o, _ := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		writeMatrix(t, w, matrixResponse{Status: "REQUEST_DENIED", ErrorMessage: "The provided API key is invalid."})
	})

	_, err := o.FetchDurations(context.Background(), []string{"A", "B"})
	assert.True(t, errors.Is(err, domain.ErrOracleUnavailable))
	assert.Equal(t, "REQUEST_DENIED", domain.AsRouteError(err).Status)
}

func TestFetchDurationsServerErrorIsUnavailableWithoutRetry(t *testing.T) {
	o, hits := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := o.FetchDurations(context.Background(), []string{"A", "B"})
	assert.True(t, errors.Is(err, domain.ErrOracleUnavailable))
	assert.Equal(t, "HTTP 502", domain.AsRouteError(err).Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestFetchDurationsRetriesRateLimiting(t *testing.T) {
	var n int32
	o, hits := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&n, 1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			writeMatrix(t, w, matrixResponse{Status: "OVER_QUERY_LIMIT"})
		default:
			writeMatrix(t, w, matrixResponse{
				Status: "OK",
				Rows:   []matrixRow{{Elements: []matrixElement{el(0, 0)}}},
			})
		}
	})

	m, err := o.FetchDurations(context.Background(), []string{"A"})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Size())
	assert.Equal(t, int32(3), atomic.LoadInt32(hits))
}

func TestFetchDurationsLimitExceededSkipsProvider(t *testing.T) {
	o, hits := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider should not be called")
	})

	locations := make([]string, 26)
	for i := range locations {
		locations[i] = "Stop " + strconv.Itoa(i)
	}

	_, err := o.FetchDurations(context.Background(), locations)
	assert.True(t, errors.Is(err, domain.ErrOracleLimitExceeded))
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestFetchDurationsRejectsEmptyLocations(t *testing.T) {
	o, hits := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider should not be called")
	})

	_, err := o.FetchDurations(context.Background(), []string{"A", "  "})
	assert.True(t, errors.Is(err, domain.ErrOracleRejected))

	_, err = o.FetchDurations(context.Background(), nil)
	assert.True(t, errors.Is(err, domain.ErrOracleRejected))
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestFetchDurationsRejectsSeparatorInLocation(t *testing.T) {
	o, hits := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider should not be called")
	})

	_, err := o.FetchDurations(context.Background(), []string{"123 Main St", "Suite 4|B Blvd", "Dest Plaza"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOracleRejected))

	re := domain.AsRouteError(err)
	assert.Equal(t, "INVALID_REQUEST", re.Status)
	assert.Contains(t, re.Message, "location 1")
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestFetchDurationsTimeoutIsUnavailable(t *testing.T) {
	o, _ := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	o.timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := o.FetchDurations(context.Background(), []string{"A", "B"})
	assert.True(t, errors.Is(err, domain.ErrOracleUnavailable))
	assert.Less(t, time.Since(start), time.Second)
}

type countingThrottle struct{ n int32 }

func (c *countingThrottle) Wait(ctx context.Context) error {
	atomic.AddInt32(&c.n, 1)
	return ctx.Err()
}

func TestFetchDurationsWaitsOnThrottleEachAttempt(t *testing.T) {
	var n int32
	o, _ := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) == 1 {
			writeMatrix(t, w, matrixResponse{Status: "OVER_QUERY_LIMIT"})
			return
		}
		writeMatrix(t, w, matrixResponse{
			Status: "OK",
			Rows:   []matrixRow{{Elements: []matrixElement{el(0, 0)}}},
		})
	})
	th := &countingThrottle{}
	o.throttle = th

	_, err := o.FetchDurations(context.Background(), []string{"A"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&th.n))
}

func TestDepartureTimeNeverInPast(t *testing.T) {
	o, err := NewGoogleOracle("k", GoogleOptions{})
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 8, 0, 0, 1, time.UTC)
	o.now = func() time.Time { return now }
	o.departureOffset = 0
	assert.Equal(t, now.Unix()+1, o.departureTime())

	o.departureOffset = time.Minute
	assert.Equal(t, now.Unix()+61, o.departureTime())
}

func TestNewGoogleOracleRequiresKey(t *testing.T) {
	_, err := NewGoogleOracle("   ", GoogleOptions{})
	assert.Error(t, err)
}
