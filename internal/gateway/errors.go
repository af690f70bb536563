package gateway

import (
	"errors"
	"fmt"

	apperrors "github.com/migratemate/cancellation-flow/pkg/util/errorutil"
)

// Kind classifies a persistence failure.
type Kind string

const (
	KindNetwork  Kind = "network"
	KindServer   Kind = "server"
	KindNotFound Kind = "not_found"
	KindDecode   Kind = "decode"
)

// PersistenceError describes a failed gateway call.
type PersistenceError struct {
	Op      string
	Kind    Kind
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *PersistenceError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the call may succeed. A request still
// in flight under the same Idempotency-Key is retryable: the next attempt
// either waits again or gets the stored response.
func (e *PersistenceError) Retryable() bool {
	switch {
	case e.Kind == KindNetwork:
		return true
	case e.Kind != KindServer:
		return false
	case e.Status >= 500:
		return true
	default:
		return e.Code == apperrors.CodeIdempotencyInFlight
	}
}

// IsKind reports whether err is a PersistenceError of kind k.
func IsKind(err error, k Kind) bool {
	var pe *PersistenceError
	return errors.As(err, &pe) && pe.Kind == k
}
