package dto

import "carpool-route-service/internal/domain"

type RouteRequest struct {
	Start string   `json:"start"`
	Stops []string `json:"stops"`
	End   string   `json:"end"`
}

type RouteResponse struct {
	Order        []string `json:"order"`
	TotalSeconds float64  `json:"total_seconds"`
	PrettyTime   string   `json:"pretty_time"`
	MapsURL      string   `json:"maps_url"`
}

type ListGroupsResponse struct {
	Groups []domain.Group `json:"groups"`
}
