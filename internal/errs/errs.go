// Package errs defines the pipeline error classes. Every failure surfaced by a
// pipeline stage carries exactly one class so callers can distinguish bad input
// data from CRS problems from join-key problems with errors.Is.
package errs

import "errors"

var (
	// ErrDataLoad marks missing files, unreadable formats, and missing
	// required columns.
	ErrDataLoad = errors.New("data load error")

	// ErrProjection marks invalid or unsupported CRS transforms.
	ErrProjection = errors.New("projection error")

	// ErrJoin marks join-key mismatches between tables.
	ErrJoin = errors.New("join error")
)

// Mark attaches a class sentinel to err. Returns nil when err is nil so call
// sites can wrap unconditionally.
func Mark(class, err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(class, err)
}
