package formats

import (
	"errors"
	"fmt"
)

// Sentinel errors for format operations.
var (
	// ErrParse indicates that content could not be parsed as a graph.
	ErrParse = errors.New("graph parse failed")

	// ErrSerialize indicates that a graph could not be serialized.
	ErrSerialize = errors.New("graph serialize failed")

	// ErrUnsupportedMediaType indicates that no codec handles the media type.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrNotAcceptable indicates that none of the accepted media types is supported.
	ErrNotAcceptable = errors.New("no acceptable media type")
)

// Error describes a failed parse or serialize call.
type Error struct {
	Op        string // "parse" or "serialize"
	MediaType string
	Kind      error // one of the sentinels above
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("formats %s [%s]: %v: %v", e.Op, e.MediaType, e.Kind, e.Cause)
	}
	return fmt.Sprintf("formats %s [%s]: %v", e.Op, e.MediaType, e.Kind)
}

// Unwrap returns the kind and the cause so errors.Is matches both.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func newParseError(mediaType string, cause error) *Error {
	return &Error{Op: "parse", MediaType: mediaType, Kind: ErrParse, Cause: cause}
}

func newSerializeError(mediaType string, cause error) *Error {
	return &Error{Op: "serialize", MediaType: mediaType, Kind: ErrSerialize, Cause: cause}
}

func newUnsupportedError(op, mediaType string) *Error {
	return &Error{Op: op, MediaType: mediaType, Kind: ErrUnsupportedMediaType}
}

// IsParseError reports whether err is a parse failure.
func IsParseError(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsSerializeError reports whether err is a serialize failure.
func IsSerializeError(err error) bool {
	return errors.Is(err, ErrSerialize)
}
