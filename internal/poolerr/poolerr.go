// Package poolerr defines the pool error taxonomy and its
// classification helpers used by the HTTP layer.
package poolerr

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrInvalidConfig reports malformed construction parameters.
	ErrInvalidConfig = errors.New("invalid pool configuration")

	// ErrAcquireTimeout reports that the configured acquire deadline
	// elapsed before an instance became available.
	ErrAcquireTimeout = errors.New("pool acquire timed out")

	// ErrAcquireAborted reports a caller-initiated cancellation while
	// waiting for an instance.
	ErrAcquireAborted = errors.New("pool acquire aborted")

	// ErrForeignInstance reports a release of a handle the pool does
	// not own.
	ErrForeignInstance = errors.New("instance not owned by this pool")

	// ErrDoubleRelease reports a release of an instance that is
	// already free.
	ErrDoubleRelease = errors.New("instance already released")

	// ErrPoolDrained reports an operation on a pool after drain has
	// started.
	ErrPoolDrained = errors.New("pool drained")
)

func Kind(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrInvalidConfig):
		return "invalid_config"

	case errors.Is(err, ErrAcquireTimeout):
		return "timeout"

	case errors.Is(err, ErrAcquireAborted):
		return "aborted"

	case errors.Is(err, ErrForeignInstance):
		return "foreign_instance"

	case errors.Is(err, ErrDoubleRelease):
		return "double_release"

	case errors.Is(err, ErrPoolDrained):
		return "drained"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrAcquireTimeout):
		return http.StatusGatewayTimeout

	case errors.Is(err, ErrAcquireAborted):
		return http.StatusBadRequest

	case errors.Is(err, ErrPoolDrained):
		return http.StatusServiceUnavailable

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
