package traveltime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"carpool-route-service/internal/domain"
)

type matrixValue struct {
	Value float64 `json:"value"`
	Text  string  `json:"text"`
}

type matrixElement struct {
	Status            string       `json:"status"`
	Duration          *matrixValue `json:"duration"`
	DurationInTraffic *matrixValue `json:"duration_in_traffic"`
	Distance          *matrixValue `json:"distance"`
}

type matrixRow struct {
	Elements []matrixElement `json:"elements"`
}

type matrixResponse struct {
	Status               string      `json:"status"`
	ErrorMessage         string      `json:"error_message"`
	OriginAddresses      []string    `json:"origin_addresses"`
	DestinationAddresses []string    `json:"destination_addresses"`
	Rows                 []matrixRow `json:"rows"`
}

// queryMatrix requests durations for every ordered pair of locations in one call.
func (o *GoogleOracle) queryMatrix(ctx context.Context, locations []string) (*matrixResponse, error) {
	req, err := o.newRequest(ctx, http.MethodGet, o.baseURL, nil)
	if err != nil {
		return nil, err
	}

	joined := strings.Join(locations, "|")
	q := req.URL.Query()
	q.Set("origins", joined)
	q.Set("destinations", joined)
	q.Set("mode", "driving")
	q.Set("units", o.units)
	q.Set("traffic_model", o.trafficModel)
	q.Set("departure_time", strconv.FormatInt(o.departureTime(), 10))
	q.Set("key", o.apiKey)
	req.URL.RawQuery = q.Encode()

	resp, err := o.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("decode matrix response: %w", err)
	}

	if mr.Status != "OK" {
		return nil, &providerStatusError{Status: mr.Status, Message: mr.ErrorMessage}
	}

	return &mr, nil
}

// buildMatrix validates that every pair carries a duration, preferring the
// traffic-adjusted value and falling back to the traffic-free one.
func buildMatrix(locations []string, mr *matrixResponse) (*domain.DurationMatrix, error) {
	n := len(locations)
	if len(mr.Rows) != n {
		return nil, domain.NewRouteError(domain.ErrOracleDataMissing, "",
			fmt.Errorf("expected %d rows, got %d", n, len(mr.Rows)))
	}

	m := domain.NewDurationMatrix(locations)
	for i, row := range mr.Rows {
		if len(row.Elements) != n {
			return nil, domain.NewRouteError(domain.ErrOracleDataMissing, "",
				fmt.Errorf("row %d: expected %d elements, got %d", i, n, len(row.Elements)))
		}

		for j, el := range row.Elements {
			dur := el.DurationInTraffic
			if dur == nil {
				dur = el.Duration
			}
			if dur == nil {
				return nil, domain.NewRouteError(domain.ErrOracleDataMissing, el.Status,
					fmt.Errorf("no duration for pair %d -> %d (%q -> %q)", i, j, locations[i], locations[j]))
			}
			if dur.Value < 0 {
				return nil, domain.NewRouteError(domain.ErrOracleDataMissing, el.Status,
					fmt.Errorf("negative duration for pair %d -> %d", i, j))
			}
			m.Set(i, j, dur.Value)
		}
	}

	return m, nil
}
