package fault

import (
	"errors"
	"fmt"
)

const (
	KindUnknownTool         = "UNKNOWN_TOOL"
	KindInvalidParameter    = "INVALID_PARAMETER"
	KindNotFound            = "NOT_FOUND"
	KindResourceUnavailable = "RESOURCE_UNAVAILABLE"
	KindLaunchFailure       = "LAUNCH_FAILURE"
	KindCaptureFailure      = "CAPTURE_FAILURE"
	KindTimeout             = "TIMEOUT"
	KindInternal            = "INTERNAL"
)

// CodedError is a typed error used for stable envelope and API mapping.
type CodedError struct {
	Kind    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

// New builds a CodedError. Cause may be nil.
func New(kind, msg string, cause error) error {
	return &CodedError{Kind: kind, Message: msg, Cause: cause}
}

// Newf builds a CodedError without a cause from a format string.
func Newf(kind, format string, args ...any) error {
	return &CodedError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Kind extracts the error kind, or KindInternal for uncoded errors.
func Kind(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Kind
	}
	return KindInternal
}

// Message extracts the caller-facing message, or the raw error text for
// uncoded errors.
func Message(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		if coded.Cause != nil {
			return fmt.Sprintf("%s: %v", coded.Message, coded.Cause)
		}
		return coded.Message
	}
	return err.Error()
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind string) bool {
	return Kind(err) == kind
}
