// Package jsonerr defines the errors reported by the jsonshape runtime.
//
// Every failure of the emitter, lexer and codec packages is an *Error carrying a Kind, the
// byte offset where the problem was detected and, when known, the path of the field being
// processed. Callers select on the kind with errors.Is against the sentinel values:
//
//	if errors.Is(err, jsonerr.ErrRange) { ... }
//
// and recover the offset with errors.As.
package jsonerr

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Kind categorizes runtime errors.
type Kind string

const (
	// KindLex reports a malformed byte stream.
	KindLex Kind = "lex"
	// KindStructural reports a grammar or shape violation: an unexpected token, a value of the
	// wrong JSON type for a field, or an array whose length differs from its capacity.
	KindStructural Kind = "structural"
	// KindRange reports a number outside the domain of the target field.
	KindRange Kind = "range"
	// KindNumericDomain reports an attempt to serialize NaN or an infinity.
	KindNumericDomain Kind = "numeric_domain"
	// KindIO reports a failed read from the source or write to the sink.
	KindIO Kind = "io"
)

// NoOffset is used when no meaningful byte offset exists.
const NoOffset int64 = -1

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrLex           = &Error{Kind: KindLex, Offset: NoOffset}
	ErrStructural    = &Error{Kind: KindStructural, Offset: NoOffset}
	ErrRange         = &Error{Kind: KindRange, Offset: NoOffset}
	ErrNumericDomain = &Error{Kind: KindNumericDomain, Offset: NoOffset}
	ErrIO            = &Error{Kind: KindIO, Offset: NoOffset}
)

// Error is a runtime error with location information.
type Error struct {
	Kind    Kind
	Offset  int64
	Path    string
	Message string
	Err     error
}

// Error implements error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" error")
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithPath returns a copy of e located at path. An existing path is kept since it is
// always the more specific one.
func (e *Error) WithPath(path string) *Error {
	if e.Path != "" || path == "" {
		return e
	}
	c := *e
	c.Path = path
	return &c
}

// Lex creates a lexical error at offset.
func Lex(offset int64, format string, args ...any) *Error {
	return &Error{Kind: KindLex, Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// Structural creates a grammar or shape error at offset.
func Structural(offset int64, format string, args ...any) *Error {
	return &Error{Kind: KindStructural, Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// Range creates an out-of-domain number error at offset.
func Range(offset int64, format string, args ...any) *Error {
	return &Error{Kind: KindRange, Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// NumericDomain creates an error for a non-finite float.
func NumericDomain(offset int64, value float64) *Error {
	return &Error{Kind: KindNumericDomain, Offset: offset, Message: fmt.Sprintf("%v is not representable in JSON", value)}
}

// IO wraps a failed read or write.
func IO(offset int64, err error) *Error {
	return &Error{Kind: KindIO, Offset: offset, Err: errors.WithStack(err)}
}

// KindOf returns the kind of the first *Error in err's chain and false when there is none.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// OffsetOf returns the byte offset recorded in err, or NoOffset.
func OffsetOf(err error) int64 {
	var e *Error
	if errors.As(err, &e) {
		return e.Offset
	}
	return NoOffset
}
