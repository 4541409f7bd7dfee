// Package errors implements functions to manipulate and categorize errors
// generated by the gzip package.
package errors

import "runtime"

// Kind reports the kind of error encountered.
type Kind uint8

const (
	// Invalid indicates that a header field did not parse.
	Invalid Kind = iota + 1
	// Corrupted indicates that a stream's content contradicts a value
	// recorded elsewhere in the stream (a checksum or a length field).
	Corrupted
	// IO indicates that the error came from the underlying io.Reader or
	// io.Writer, rather than from this package's own parsing logic.
	IO
)

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "invalid"
	case Corrupted:
		return "corrupted"
	case IO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is an error value tagged with a Kind, so that callers can
// distinguish a malformed header from a failed checksum without parsing
// the message text.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// KindOf reports the Kind of err, or Kind(0) if err was not produced by
// this package.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return 0
}

// Recover catches a panic produced by this package (or any error value)
// and stores it in *err; it re-panics on anything else, including
// runtime.Error, which always indicates a bug rather than a malformed
// stream.
func Recover(err *error) {
	switch ex := recover().(type) {
	case nil:
		// Do nothing.
	case runtime.Error:
		panic(ex)
	case error:
		*err = ex
	default:
		panic(ex)
	}
}
