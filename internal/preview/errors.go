package preview

import "fmt"

// ErrorType classifies pipeline failures so the transport can map them to
// HTTP statuses without string matching.
type ErrorType int

const (
	// ErrTypeMissingInput means the request carried neither an uploaded file
	// nor a remote URL.
	ErrTypeMissingInput ErrorType = iota
	// ErrTypeDownload means the remote image could not be fetched.
	ErrTypeDownload
	// ErrTypeRender means thumbnail rendering failed; no usable output
	// exists.
	ErrTypeRender
	// ErrTypeInternal covers unexpected local failures (filesystem, stat,
	// read-back).
	ErrTypeInternal
)

// Error is the classified error returned by Pipeline.Process. Message is
// safe to show to API clients; Err carries the wrapped detail for logs.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(t ErrorType, message string, err error) *Error {
	return &Error{Type: t, Message: message, Err: err}
}
