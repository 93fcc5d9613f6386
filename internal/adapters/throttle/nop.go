package throttle

import "context"

// Nop never delays; used when no shared Redis is configured.
type Nop struct{}

func (Nop) Wait(ctx context.Context) error { return ctx.Err() }
