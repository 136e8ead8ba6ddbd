// Package apperrors defines the error taxonomy shared by the restriction
// engine, the backend services and the API client.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code carried on the wire.
type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeInvalidTimeSlot  Code = "INVALID_TIME_SLOT"
	CodeInvalidState     Code = "INVALID_STATE"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeNotFound         Code = "NOT_FOUND"
	CodeForbidden        Code = "FORBIDDEN"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodePolicySyncFailed Code = "POLICY_SYNC_FAILED"
	CodeHistoryFailed    Code = "HISTORY_WRITE_FAILED"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStaleOperation marks the result of a superseded coordinator
	// operation. It is never shown to a user.
	ErrStaleOperation = errors.New("stale operation discarded")
)

// ParseError reports a malformed time slot. Callers must reject the whole
// batch the slot belongs to.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid time slot %q: %s", e.Input, e.Reason)
}

// InvalidStateError reports a workflow transition attempted from a state
// that does not allow it.
type InvalidStateError struct {
	Op        string
	RequestID string
	Status    string
}

func (e *InvalidStateError) Error() string {
	if e.RequestID == "" {
		return fmt.Sprintf("cannot %s: %s", e.Op, e.Status)
	}
	return fmt.Sprintf("cannot %s request %s: status is %s", e.Op, e.RequestID, e.Status)
}

// TransportError wraps network and HTTP failures returned by the backend.
type TransportError struct {
	Op         string
	StatusCode int
	Code       Code
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Temporary reports whether repeating the same idempotent call may succeed.
func (e *TransportError) Temporary() bool {
	return e.Err != nil || e.StatusCode >= http.StatusInternalServerError
}

// PolicySyncError is returned next to an approved request when clearing the
// child's block failed. The approval itself stays committed.
type PolicySyncError struct {
	RequestID string
	ChildID   string
	Err       error
}

func (e *PolicySyncError) Error() string {
	return fmt.Sprintf("request %s approved but block on child %s was not cleared: %v", e.RequestID, e.ChildID, e.Err)
}

func (e *PolicySyncError) Unwrap() error { return e.Err }

// HistoryWriteError is returned next to a committed workflow transition whose
// audit entry could not be appended. The transition itself stays committed.
type HistoryWriteError struct {
	Action    string
	RequestID string
	Err       error
}

func (e *HistoryWriteError) Error() string {
	return fmt.Sprintf("request %s: %s committed but history was not written: %v", e.RequestID, e.Action, e.Err)
}

func (e *HistoryWriteError) Unwrap() error { return e.Err }

// Committed reports whether err only accompanies a write that was kept, so
// the caller should show the result together with a warning.
func Committed(err error) bool {
	if err == nil {
		return false
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !Committed(e) {
				return false
			}
		}
		return true
	}
	var (
		syncErr    *PolicySyncError
		historyErr *HistoryWriteError
	)
	return errors.As(err, &syncErr) || errors.As(err, &historyErr)
}

// CodeOf classifies err into a wire code.
func CodeOf(err error) Code {
	var (
		parseErr   *ParseError
		stateErr   *InvalidStateError
		syncErr    *PolicySyncError
		historyErr *HistoryWriteError
		tErr       *TransportError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &parseErr):
		return CodeInvalidTimeSlot
	case errors.As(err, &stateErr):
		return CodeInvalidState
	case errors.As(err, &syncErr):
		return CodePolicySyncFailed
	case errors.As(err, &historyErr):
		return CodeHistoryFailed
	case errors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.As(err, &tErr) && tErr.Code != "":
		return tErr.Code
	default:
		return CodeUnknown
	}
}

// HTTPStatus maps a code to the status the backend answers with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidTimeSlot, CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeInvalidState:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodePolicySyncFailed, CodeHistoryFailed:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}
