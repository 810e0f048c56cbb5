// Package errs holds the sentinel errors shared by the store, service and
// handler layers. Callers wrap them with fmt.Errorf("%w: ...") and the HTTP
// layer maps them back with errors.Is.
package errs

import "errors"

var (
	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates malformed input or a no-op update.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStore indicates an underlying record or report store call failed.
	ErrStore = errors.New("store error")

	// ErrPublish indicates the event queue rejected a publish.
	ErrPublish = errors.New("publish error")

	// ErrParse indicates a queue message body could not be decoded.
	ErrParse = errors.New("parse error")

	// ErrUnauthorized indicates a missing or invalid bearer token or bad credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller touching another owner's data.
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyExists indicates a uniqueness violation (username or email taken).
	ErrAlreadyExists = errors.New("already exists")
)
