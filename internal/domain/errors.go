package domain

import (
	"errors"
	"fmt"
)

// Sentinel kinds for every failure a routing leg can end in.
// Match with errors.Is against a returned *RouteError.
var (
	ErrMissingStart        = errors.New("missing_starting_address")
	ErrOracleLimitExceeded = errors.New("oracle_limit_exceeded")
	ErrOracleDataMissing   = errors.New("oracle_data_missing")
	ErrOracleRejected      = errors.New("oracle_rejected")
	ErrOracleUnavailable   = errors.New("oracle_unavailable")
)

// RouteError is the structured failure attached to a group leg.
// Code is the stable reason code; Status carries the raw provider status when
// the provider reported one.
type RouteError struct {
	Code    string `json:"error"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`

	kind error
	err  error
}

func NewRouteError(kind error, status string, cause error) *RouteError {
	e := &RouteError{
		Code:   kind.Error(),
		Status: status,
		kind:   kind,
		err:    cause,
	}
	if cause != nil {
		e.Message = cause.Error()
	}
	return e
}

func (e *RouteError) Error() string {
	switch {
	case e.Status != "" && e.Message != "":
		return fmt.Sprintf("%s (status %s): %s", e.Code, e.Status, e.Message)
	case e.Status != "":
		return fmt.Sprintf("%s (status %s)", e.Code, e.Status)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func (e *RouteError) Is(target error) bool {
	return e.kind != nil && e.kind == target
}

func (e *RouteError) Unwrap() error { return e.err }

// AsRouteError extracts the structured leg failure from err. Errors that did
// not originate from the oracle or optimizer are reported as unavailable so a
// failure is never dropped.
func AsRouteError(err error) *RouteError {
	if err == nil {
		return nil
	}
	var re *RouteError
	if errors.As(err, &re) {
		return re
	}
	return NewRouteError(ErrOracleUnavailable, "", err)
}

var routeErrorKinds = map[string]error{
	ErrMissingStart.Error():        ErrMissingStart,
	ErrOracleLimitExceeded.Error(): ErrOracleLimitExceeded,
	ErrOracleDataMissing.Error():   ErrOracleDataMissing,
	ErrOracleRejected.Error():      ErrOracleRejected,
	ErrOracleUnavailable.Error():   ErrOracleUnavailable,
}

// RestoreRouteError rebuilds a RouteError read back from storage.
func RestoreRouteError(code, status, message string) *RouteError {
	e := &RouteError{Code: code, Status: status, Message: message}
	e.kind = routeErrorKinds[code]
	return e
}
