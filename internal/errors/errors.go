package errors

import "errors"

// Sentinel errors shared by the service and API layers. Services wrap these;
// the API layer matches them with errors.Is and picks the HTTP status.

var (
	// ErrNotFound signifies that a requested session could not be located.
	// Mapped to 404 Not Found.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation signifies that client input failed validation.
	// Mapped to 400 Bad Request.
	ErrValidation = errors.New("validation failed")

	// ErrConflict signifies that a concurrent update to the same session could
	// not be applied. Mapped to 409 Conflict.
	ErrConflict = errors.New("resource conflict")

	// ErrInternal signifies an unexpected server error. Mapped to 500.
	ErrInternal = errors.New("internal server error")
)
