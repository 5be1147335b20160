package fetcher

import (
	"fmt"

	apperrors "econdash/internal/errors"
)

// FetchError reports a network, upstream or decode failure for one endpoint.
type FetchError struct {
	Endpoint string
	Cause    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// EmptyDataError reports a well-formed response with no records. It
// unwraps to an EMPTY_DATA application error.
type EmptyDataError struct {
	Endpoint string
	Cause    error
}

func newEmptyDataError(endpoint string) *EmptyDataError {
	return &EmptyDataError{
		Endpoint: endpoint,
		Cause: apperrors.NewEmptyDataError(fmt.Sprintf("no observations for %s", endpoint)).
			WithContext("endpoint", endpoint),
	}
}

func (e *EmptyDataError) Error() string {
	return fmt.Sprintf("fetch %s: no records", e.Endpoint)
}

func (e *EmptyDataError) Unwrap() error { return e.Cause }
