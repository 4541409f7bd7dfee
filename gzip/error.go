package gzip

import (
	"fmt"

	"example.com/gunzip/internal/errors"
)

func errorf(kind errors.Kind, format string, a ...interface{}) error {
	return &errors.Error{Kind: kind, Msg: "gzip: " + fmt.Sprintf(format, a...)}
}

func panicf(kind errors.Kind, format string, a ...interface{}) {
	panic(errorf(kind, format, a...))
}

// errWrap tags a foreign error (typically from the underlying io.Reader,
// or from the embedded flate.Reader) with kind, unless it already carries
// a more specific Kind of its own.
func errWrap(err error, kind errors.Kind) error {
	if errors.KindOf(err) != 0 {
		return err
	}
	return errorf(kind, "%v", err)
}
