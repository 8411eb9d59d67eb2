package ais

import "github.com/pkg/errors"

// Kind classifies the errors this package's operations can return, per the
// error taxonomy in the spec: field-level problems recover locally, encode
// problems surface to the caller, and PortClosed is not an error at all from
// the replay source's point of view (it latches a done event).
type Kind int

const (
	// DecodeFailure means the codec returned no message for a sentence; the
	// sentence is ignored, this is never returned from SendSentence.
	DecodeFailure Kind = iota
	// UnsupportedMessage means the codec decoded an AIS message type this
	// manager has no handler for.
	UnsupportedMessage
	// InvalidField means a single field (ETA, lat/lon) failed validation;
	// the field is cleared and the rest of the update proceeds.
	InvalidField
	// EncodeFailure means encoding an outbound message did not yield the
	// sentence count the caller required.
	EncodeFailure
	// UnsupportedEncoding means the caller asked to encode on behalf of a
	// transceiver class this manager cannot originate.
	UnsupportedEncoding
	// PortClosed signals end-of-data from the sentence source.
	PortClosed
)

func (k Kind) String() string {
	switch k {
	case DecodeFailure:
		return "DecodeFailure"
	case UnsupportedMessage:
		return "UnsupportedMessage"
	case InvalidField:
		return "InvalidField"
	case EncodeFailure:
		return "EncodeFailure"
	case UnsupportedEncoding:
		return "UnsupportedEncoding"
	case PortClosed:
		return "PortClosed"
	default:
		return "Unknown"
	}
}

// Error is the error type every fallible operation in this package returns.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func wrapError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.Wrap(err, op)}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
