package services

import (
	"net/url"
	"strings"
)

const directionsBase = "https://www.google.com/maps/dir/?api=1"

// DirectionsURL builds a Google Maps directions link that keeps the waypoint
// order fixed. order is [start, stops..., end]; fewer than two entries yield "".
func DirectionsURL(order []string, startNavigation bool) string {
	if len(order) < 2 {
		return ""
	}

	var b strings.Builder
	b.WriteString(directionsBase)
	b.WriteString("&origin=" + escape(order[0]))
	b.WriteString("&destination=" + escape(order[len(order)-1]))
	b.WriteString("&travelmode=driving")

	if waypoints := order[1 : len(order)-1]; len(waypoints) > 0 {
		parts := make([]string, len(waypoints))
		for i, w := range waypoints {
			parts[i] = escape(w)
		}
		b.WriteString("&waypoints=" + strings.Join(parts, "%7C"))
	}

	if startNavigation {
		b.WriteString("&dir_action=navigate")
	}

	return b.String()
}

// escape percent-encodes everything outside the unreserved set, spaces as %20.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
