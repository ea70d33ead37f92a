package compiler

import (
	"context"
	"errors"
	"fmt"
)

// ExitCompilationError is the GAMS return code for a model with compilation
// errors. The listing is still written, so it is not an invocation failure.
const ExitCompilationError = 2

// ErrUnavailable is returned when the compiler executable cannot be found.
var ErrUnavailable = errors.New("gams executable not available")

// Compiler produces the listing, reference file and log for a GAMS source.
type Compiler interface {
	// Compile compiles text as the document at path. An empty text compiles
	// the file on disk.
	Compile(ctx context.Context, path, text string) (*Output, error)
}

// Output holds the artifacts of one compilation. File references in
// Reference and Log name the original document path.
type Output struct {
	Listing   string
	Reference string
	Log       string
	ExitCode  int
}

// InvocationError reports that the compiler could not be run or produced no
// listing.
type InvocationError struct {
	Path     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *InvocationError) Error() string {
	msg := fmt.Sprintf("gams invocation failed for %s", e.Path)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code %d)", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}
