package engine

import (
	"context"
	"fmt"

	"github.com/opencontainers/go-digest"

	"github.com/bianoble/contentpack/internal/descriptor"
	"github.com/bianoble/contentpack/internal/platform"
	"github.com/bianoble/contentpack/internal/project"
)

// BuildResult is the outcome for one platform.
type BuildResult struct {
	Platform           platform.Platform
	Bundle             string
	OutputArtifactPath string
	Digest             digest.Digest
	Succeeded          bool
	ErrorKind          ErrorKind
	ErrorDetail        string
	Err                error // *BuildError for failed results
}

// Report is the outcome of one Build call.
type Report struct {
	Root      string
	Order     []platform.Platform
	Succeeded []BuildResult
	Failed    []BuildResult
	Aborted   bool // a fatal failure ended the loop
	Stopped   bool // stop-on-failure ended the loop
}

// Summary returns "N of M platforms built".
func (r *Report) Summary() string {
	return fmt.Sprintf("%d of %d platforms built", len(r.Succeeded), len(r.Order))
}

// Options configures a Build call.
type Options struct {
	// Platforms to build. Empty means every platform the root declares.
	Platforms []platform.Platform

	StopOnFailure bool

	// OnProgress is called after each successful platform with the number
	// of platforms processed so far and the total.
	OnProgress func(p platform.Platform, completed, total int)

	// ConfirmPersist is asked before persisting pending changes. Nil means
	// always persist.
	ConfirmPersist func(root project.ContentRoot) bool

	// PostProcess runs after the environment has been restored.
	PostProcess func(ctx context.Context, report *Report) error
}

// Authoring resolves content roots and persists their pending changes.
type Authoring interface {
	Resolve(ctx context.Context, id string) (project.ContentRoot, error)
	ExtraRoots(ctx context.Context, root project.ContentRoot) ([]project.ContentRoot, error)
	HasPendingChanges(root project.ContentRoot) bool
	PersistPending(ctx context.Context, root project.ContentRoot) error
}

// Collector computes the asset closure of a root document.
type Collector interface {
	Collect(ctx context.Context, root descriptor.AssetPath, extraRoots []descriptor.AssetPath) ([]descriptor.AssetPath, error)
}
