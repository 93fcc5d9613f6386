package domain

import "strings"

// Group is one carpool: a driver, their passengers and the addresses derived
// from the roster. Routing only reads StartingAddress and PickupAddresses and
// only writes the route fields.
type Group struct {
	ID              int64    `json:"id,omitempty"`
	Column          string   `json:"column"`
	Capacity        *int     `json:"capacity"`
	Driver          string   `json:"driver"`
	Passengers      []string `json:"passengers"`
	StartingAddress string   `json:"starting_address"`
	PickupAddresses []string `json:"pickup_addresses"`

	BestRoute            *Route      `json:"best_route,omitempty"`
	BestRouteError       *RouteError `json:"best_route_error,omitempty"`
	BestReturnRoute      *Route      `json:"best_return_route,omitempty"`
	BestReturnRouteError *RouteError `json:"best_return_route_error,omitempty"`
	MapsURL              string      `json:"maps_url,omitempty"`
	MapsReturnURL        string      `json:"maps_return_url,omitempty"`
}

// HasStart reports whether the group carries a usable starting address.
func (g *Group) HasStart() bool {
	return strings.TrimSpace(g.StartingAddress) != ""
}

// Stops returns a copy of the pickup addresses in roster order.
func (g *Group) Stops() []string {
	out := make([]string, len(g.PickupAddresses))
	copy(out, g.PickupAddresses)
	return out
}

// ClearRoutes drops any route results from a previous computation.
func (g *Group) ClearRoutes() {
	g.BestRoute = nil
	g.BestRouteError = nil
	g.BestReturnRoute = nil
	g.BestReturnRouteError = nil
	g.MapsURL = ""
	g.MapsReturnURL = ""
}

// Failed reports whether either leg ended in an error.
func (g *Group) Failed() bool {
	return g.BestRouteError != nil || g.BestReturnRouteError != nil
}
