// Package packager turns a named asset closure into a platform bundle.
package packager

import (
	"context"
	"errors"
	"fmt"

	"github.com/opencontainers/go-digest"

	"github.com/bianoble/contentpack/internal/descriptor"
	"github.com/bianoble/contentpack/internal/platform"
	"github.com/bianoble/contentpack/internal/toolchain"
)

// Packager builds one bundle for one platform. It blocks until the bundle
// is written or the build fails.
//
// Errors are classified by the caller: *Failure is a structured build
// failure, ErrCancelled or a context error is a cancellation, and anything
// else is a host fault.
type Packager interface {
	Package(ctx context.Context, req Request) (*Result, error)
}

// Request names the bundle to build and what goes in it.
type Request struct {
	Bundle      string
	Assets      []descriptor.AssetPath
	Platform    platform.Platform
	Target      toolchain.Target
	OutputDir   string // relative to the packager's output root
	Compression string // "none", "lz4" or "zstd"
}

// Result describes a written bundle.
type Result struct {
	Path   string
	Digest digest.Digest
	Size   int64
	Assets int
}

// ErrCancelled is returned when a build is interrupted.
var ErrCancelled = errors.New("packaging cancelled")

// Failure is a structured, non-fatal build failure.
type Failure struct {
	Bundle string
	Reason string
	Err    error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("packaging %s: %s", f.Bundle, f.Reason)
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// IsCancellation reports whether err means the build was interrupted.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
