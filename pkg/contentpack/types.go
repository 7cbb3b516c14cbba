package contentpack

import (
	"github.com/bianoble/contentpack/internal/batch"
	"github.com/bianoble/contentpack/internal/engine"
	"github.com/bianoble/contentpack/internal/envctl"
	"github.com/bianoble/contentpack/internal/packager"
	"github.com/bianoble/contentpack/internal/platform"
	"github.com/bianoble/contentpack/internal/policy"
	"github.com/bianoble/contentpack/internal/project"
	"github.com/bianoble/contentpack/internal/toolchain"
)

// Type aliases re-export internal types as the public API.
// Users import "github.com/bianoble/contentpack/pkg/contentpack" and use
// contentpack.Report, contentpack.BuildResult, etc.

type Platform = platform.Platform
type BuildOptions = engine.Options
type BuildResult = engine.BuildResult
type Report = engine.Report
type ErrorKind = engine.ErrorKind
type BuildError = engine.BuildError
type ContentRoot = project.ContentRoot
type Batch = batch.Batch
type Bundle = packager.Bundle
type EnvironmentState = envctl.State

const (
	Windows = platform.Windows
	OSX     = platform.OSX
	Linux   = platform.Linux
	IOS     = platform.IOS
	Android = platform.Android
	WebGL   = platform.WebGL
	TVOS    = platform.TVOS
)

var (
	ErrNoSuccessfulBuilds  = engine.ErrNoSuccessfulBuilds
	ErrStoppedOnFailure    = engine.ErrStoppedOnFailure
	ErrOperationCancelled  = engine.ErrOperationCancelled
	ErrPersistenceRequired = engine.ErrPersistenceRequired
)

// PlatformInfo describes how one platform is built on this host.
type PlatformInfo struct {
	Platform   Platform
	Definition toolchain.Definition
	Installed  bool
	Custom     bool
	Slot       string // "first", "last" or ""
	Policy     policy.Policy
}
