package ports

import "context"

// Throttle paces requests to the travel-time provider across the process (or fleet).
type Throttle interface {
	// Block until one more request may be issued or ctx is done.
	Wait(ctx context.Context) error
}
