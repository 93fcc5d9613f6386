package traveltime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type httpStatusError struct {
	Code int
	Body string
}

// providerStatusError is a non-OK top-level status in an HTTP 200 response.
type providerStatusError struct {
	Status  string
	Message string
}

func (o *GoogleOracle) newRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	return req, nil
}

func (o *GoogleOracle) do(req *http.Request) (*http.Response, error) {
	resp, err := o.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// doWithRetry retries provider rate limiting (HTTP 429, OVER_QUERY_LIMIT)
// using exponential backoff while respecting context cancellation. Every
// attempt passes through the throttle first. Other failures return at once.
func (o *GoogleOracle) doWithRetry(ctx context.Context, call func() error) error {
	const maxAttempts = 4
	backoff := o.backoff

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if o.throttle != nil {
			if err := o.throttle.Wait(ctx); err != nil {
				return fmt.Errorf("throttle: %w", err)
			}
		}

		err := call()
		if err == nil {
			return nil
		}
		lastErr = err

		if !rateLimited(err) || attempt == maxAttempts {
			return lastErr
		}

		logrus.WithFields(logrus.Fields{
			"attempt": attempt,
			"backoff": backoff,
		}).WithError(err).Warn("travel-time provider rate limited, backing off")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
	}

	return lastErr
}

func rateLimited(err error) bool {
	var he *httpStatusError
	if errors.As(err, &he) {
		return he.Code == http.StatusTooManyRequests
	}
	var se *providerStatusError
	if errors.As(err, &se) {
		return se.Status == "OVER_QUERY_LIMIT"
	}
	return false
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

func (e *providerStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider status %s", e.Status)
	}
	return fmt.Sprintf("provider status %s: %s", e.Status, e.Message)
}
