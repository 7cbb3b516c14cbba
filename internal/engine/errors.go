package engine

import (
	"errors"
	"fmt"

	"github.com/bianoble/contentpack/internal/platform"
)

// ErrorKind classifies a failed build.
type ErrorKind string

const (
	KindPersistenceRequired ErrorKind = "persistence_required"
	KindPlatformUnsupported ErrorKind = "platform_unsupported"
	KindNoValidAssets       ErrorKind = "no_valid_assets"
	KindEnvironment         ErrorKind = "environment"
	KindPackagerFailure     ErrorKind = "packager_failure"
	KindOperationCancelled  ErrorKind = "operation_cancelled"
	KindHostFault           ErrorKind = "host_fault"
)

var (
	ErrPersistenceRequired = errors.New("content root has unsaved changes that must be persisted")
	ErrPlatformUnsupported = errors.New("platform not supported by host toolchain")
	ErrNoValidAssets       = errors.New("no valid assets to package")
	ErrEnvironment         = errors.New("target environment switch failed")
	ErrPackagerFailure     = errors.New("packager failed")
	ErrOperationCancelled  = errors.New("operation cancelled")
	ErrHostFault           = errors.New("host fault")

	// ErrNoPlatforms is returned when no platform remains after expansion.
	ErrNoPlatforms = errors.New("no platforms requested")

	// ErrNoSuccessfulBuilds is returned when a loop that ran to completion
	// produced no bundle.
	ErrNoSuccessfulBuilds = errors.New("no platform built successfully, check detail log")

	// ErrStoppedOnFailure is returned when stop-on-failure ended the loop.
	ErrStoppedOnFailure = errors.New("build stopped on first failure")
)

var kindErrors = map[ErrorKind]error{
	KindPersistenceRequired: ErrPersistenceRequired,
	KindPlatformUnsupported: ErrPlatformUnsupported,
	KindNoValidAssets:       ErrNoValidAssets,
	KindEnvironment:         ErrEnvironment,
	KindPackagerFailure:     ErrPackagerFailure,
	KindOperationCancelled:  ErrOperationCancelled,
	KindHostFault:           ErrHostFault,
}

// Fatal reports whether a failure of this kind ends the whole call.
func (k ErrorKind) Fatal() bool {
	switch k {
	case KindPersistenceRequired, KindOperationCancelled, KindHostFault:
		return true
	default:
		return false
	}
}

// BuildError is a classified orchestrator failure. errors.Is matches both
// the kind's sentinel and the underlying cause.
type BuildError struct {
	Kind     ErrorKind
	Platform platform.Platform
	Msg      string
	Err      error
}

func (e *BuildError) Error() string {
	if e == nil {
		return ""
	}
	msg := kindErrors[e.Kind].Error()
	if e.Platform != platform.None {
		msg = e.Platform.String() + ": " + msg
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BuildError) Unwrap() []error {
	errs := []error{kindErrors[e.Kind]}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func buildErrorf(kind ErrorKind, p platform.Platform, cause error, format string, args ...any) *BuildError {
	return &BuildError{Kind: kind, Platform: p, Msg: fmt.Sprintf(format, args...), Err: cause}
}
