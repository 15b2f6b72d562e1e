// Package ddgerr defines the typed error kinds a goal-graph run can fail
// with. Every failure mode in the system is one of these five kinds; none
// are recovered locally, so a CLI layer can print the cause chain and
// exit non-zero.
package ddgerr

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind identifies which of the five typed error families an error belongs
// to, so callers can branch on it with errors.As without string matching.
type Kind int

const (
	KindConfigInvalid Kind = iota
	KindOutOfRange
	KindTraceMalformed
	KindUnknownOpcode
	KindSpillIoError
)

func (k Kind) String() string {
	switch k {
	case KindConfigInvalid:
		return "ConfigInvalid"
	case KindOutOfRange:
		return "OutOfRange"
	case KindTraceMalformed:
		return "TraceMalformed"
	case KindUnknownOpcode:
		return "UnknownOpcode"
	case KindSpillIoError:
		return "SpillIoError"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying cause with the kind that classifies it and a
// short human-readable message. Unwrap() returns the pkg/errors-wrapped
// cause (nil when there is none) so
// the CLI can print a full diagnostic while typed call sites can still
// match on Kind.
type Error struct {
	kind    Kind
	message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Kind() Kind { return e.kind }

func newErr(kind Kind, cause error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	var wrapped error
	if cause != nil {
		wrapped = pkgerrors.Wrap(cause, msg)
	}
	return &Error{kind: kind, message: msg, cause: wrapped}
}

// ConfigInvalid reports a node count below 1, or a strategy name outside
// its allowed set (spec.md §7).
func ConfigInvalid(format string, args ...any) error {
	return newErr(KindConfigInvalid, nil, format, args...)
}

// OutOfRange reports a topology lookup with an index beyond its count.
func OutOfRange(format string, args ...any) error {
	return newErr(KindOutOfRange, nil, format, args...)
}

// TraceMalformed reports a CSV record with fewer than four fields, or a
// non-integer in asu/lba/size.
func TraceMalformed(cause error, format string, args ...any) error {
	return newErr(KindTraceMalformed, cause, format, args...)
}

// UnknownOpcode reports an opcode other than 'r'/'w'.
func UnknownOpcode(op string) error {
	return newErr(KindUnknownOpcode, nil, "opcode %q is neither 'r' nor 'w'", op)
}

// SpillIoError reports any write/read/flush failure on a per-rank spill
// file or the final goal sink.
func SpillIoError(cause error, format string, args ...any) error {
	return newErr(KindSpillIoError, cause, format, args...)
}

// Is reports whether err, or an error it wraps, is an *Error of the given
// kind, comparing kinds rather than identity.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if de, ok := err.(*Error); ok {
			e = de
			break
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	return e != nil && e.kind == kind
}
