package degiro

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication means the login response carried no session cookie.
	// Wrong credentials and unexpected login responses both end up here.
	ErrAuthentication = errors.New("degiro: authentication failed")

	// ErrNotAuthenticated is returned by calls issued before a session exists.
	ErrNotAuthenticated = errors.New("degiro: client is not authenticated")

	// ErrProductNotFound means a product search returned no candidates.
	ErrProductNotFound = errors.New("degiro: product not found")

	// ErrInvalidOrder means an order request is missing a required field.
	ErrInvalidOrder = errors.New("degiro: invalid order")
)

// APIError is a write call whose response envelope reported a non-zero
// status. Message is the server text, unmodified.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("degiro: api error (status %d): %s", e.Status, e.Message)
}

// MalformedResponseError is a read call whose payload lacked the expected
// shape.
type MalformedResponseError struct {
	Field string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("degiro: malformed response: missing or invalid %q", e.Field)
}

// OrderError reports the workflow stage at which Buy or Sell failed.
type OrderError struct {
	Stage Stage
	Err   error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("degiro: order failed while %s: %v", e.Stage, e.Err)
}

func (e *OrderError) Unwrap() error { return e.Err }
