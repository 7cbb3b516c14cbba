// Package engine drives per-platform bundle builds for one content root.
package engine

import (
	"context"
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bianoble/contentpack/internal/descriptor"
	"github.com/bianoble/contentpack/internal/envctl"
	"github.com/bianoble/contentpack/internal/packager"
	"github.com/bianoble/contentpack/internal/platform"
	"github.com/bianoble/contentpack/internal/policy"
	"github.com/bianoble/contentpack/internal/project"
	"github.com/bianoble/contentpack/internal/toolchain"
)

// BuildEngine builds one content root for a set of platforms.
type BuildEngine struct {
	Authoring Authoring
	Collector Collector
	Registry  *descriptor.Registry
	Policies  *policy.Table
	Targets   *toolchain.Map
	Env       *envctl.Controller
	Packager  packager.Packager
	Ordering  platform.Ordering
	OutputDir string // relative to the packager's output root
	Log       *zap.Logger
}

func (e *BuildEngine) log() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

// Build runs a complete build of rootID. The report is returned whenever
// the loop started, including alongside a non-nil error, so callers can
// show partial results.
func (e *BuildEngine) Build(ctx context.Context, rootID string, opts Options) (report *Report, err error) {
	run, err := e.Start(ctx, rootID, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, run.Close(ctx))
	}()

	for !run.Done() {
		if _, stepErr := run.Step(ctx); stepErr != nil {
			break
		}
	}
	return run.Report(), run.Err()
}

// Start acquires the environment, captures its snapshot, suspends hot
// reload, persists pending changes and orders the requested platforms.
// The returned Run must be closed.
func (e *BuildEngine) Start(ctx context.Context, rootID string, opts Options) (run *Run, err error) {
	release, err := e.Env.Acquire()
	if err != nil {
		return nil, err
	}
	snap, err := e.Env.Snapshot()
	if err != nil {
		release()
		return nil, fmt.Errorf("capturing environment: %w", err)
	}

	r := &Run{
		ID:        uuid.NewString(),
		engine:    e,
		opts:      opts,
		snap:      snap,
		release:   release,
		report:    &Report{Root: rootID},
		processed: mapset.NewThreadUnsafeSet[platform.Platform](),
	}
	defer func() {
		if v := recover(); v != nil {
			e.log().Error("build start panicked",
				zap.String("run", r.ID),
				zap.Any("panic", v),
				zap.Stack("stack"),
			)
			r.fatal = &BuildError{Kind: KindHostFault, Err: fmt.Errorf("panic: %v", v)}
			r.done = true
			run, err = nil, errors.Join(r.fatal, r.Close(ctx))
		}
	}()

	e.Env.SuspendHotReload()
	if err := r.begin(ctx, rootID); err != nil {
		r.fatal = err
		r.done = true
		return nil, errors.Join(err, r.Close(ctx))
	}

	e.log().Debug("build started",
		zap.String("run", r.ID),
		zap.String("root", rootID),
		zap.Stringers("order", r.report.Order),
	)
	return r, nil
}

type phase int

const (
	phasePrepare phase = iota
	phasePackage
)

// EventKind identifies what a Step did.
type EventKind int

const (
	// EventPrepared means the asset closure was collected and descriptors
	// were updated; the next step switches the environment and packages.
	EventPrepared EventKind = iota + 1

	// EventBuilt means a platform finished, successfully or not.
	EventBuilt

	// EventFinished means the run has nothing left to do.
	EventFinished
)

// Event reports the outcome of one Step.
type Event struct {
	Kind      EventKind
	Platform  platform.Platform
	Bundle    string
	Assets    int
	Result    *BuildResult
	Completed int
	Total     int
}

type inFlight struct {
	platform platform.Platform
	def      toolchain.Definition
	policy   policy.Policy
	bundle   string
	assets   []descriptor.AssetPath
}

// Run is one build in progress. The caller advances it with Step and must
// call Close exactly once when done.
type Run struct {
	ID string

	engine    *BuildEngine
	opts      Options
	snap      envctl.Snapshot
	release   func()
	root      project.ContentRoot
	extra     []descriptor.AssetPath
	report    *Report
	processed mapset.Set[platform.Platform]
	next      int
	phase     phase
	current   *inFlight
	fatal     error
	done      bool
	closed    bool
}

func (r *Run) begin(ctx context.Context, rootID string) error {
	a := r.engine.Authoring
	root, err := a.Resolve(ctx, rootID)
	if err != nil {
		return fmt.Errorf("resolving content root %q: %w", rootID, err)
	}
	r.root = root

	if a.HasPendingChanges(root) {
		if r.opts.ConfirmPersist != nil && !r.opts.ConfirmPersist(root) {
			if root.RequiresPersistence() {
				return buildErrorf(KindPersistenceRequired, platform.None, nil, "%s has unsaved changes", root.DisplayName())
			}
			r.engine.log().Warn("building without persisting pending changes", zap.String("root", root.ID))
		} else if err := a.PersistPending(ctx, root); err != nil {
			return buildErrorf(KindPersistenceRequired, platform.None, err, "persisting %s", root.DisplayName())
		}
	}

	extras, err := a.ExtraRoots(ctx, root)
	if err != nil {
		return fmt.Errorf("resolving extra roots of %q: %w", rootID, err)
	}
	for _, x := range extras {
		r.extra = append(r.extra, x.Document)
	}

	requested := r.opts.Platforms
	if len(requested) == 0 {
		requested = []platform.Platform{root.Platforms}
	}
	r.report.Order = r.engine.Ordering.Order(requested)
	if len(r.report.Order) == 0 {
		return ErrNoPlatforms
	}
	return nil
}

// Done reports whether the run has finished.
func (r *Run) Done() bool {
	return r.done
}

// Report returns the results accumulated so far.
func (r *Run) Report() *Report {
	return r.report
}

// Err returns the call-level outcome once the run is done: the fatal error
// that aborted it, ErrStoppedOnFailure, ErrNoSuccessfulBuilds, or nil.
func (r *Run) Err() error {
	switch {
	case r.fatal != nil:
		return r.fatal
	case r.report.Stopped:
		last := r.report.Failed[len(r.report.Failed)-1]
		return fmt.Errorf("%w: %s: %s", ErrStoppedOnFailure, last.Platform, last.ErrorDetail)
	case r.done && len(r.report.Succeeded) == 0:
		return ErrNoSuccessfulBuilds
	}
	return nil
}

// Step advances the run by one phase. A non-nil error means the run was
// aborted; it is also returned by Err.
func (r *Run) Step(ctx context.Context) (ev Event, err error) {
	if r.done {
		return r.finished(), nil
	}
	defer func() {
		if v := recover(); v != nil {
			r.engine.log().Error("build step panicked",
				zap.String("run", r.ID),
				zap.Any("panic", v),
				zap.Stack("stack"),
			)
			r.abort(KindHostFault, fmt.Errorf("panic: %v", v))
			ev, err = r.finished(), r.fatal
		}
	}()

	if err := ctx.Err(); err != nil {
		r.abort(KindOperationCancelled, err)
		return r.finished(), r.fatal
	}

	switch r.phase {
	case phasePackage:
		return r.packageCurrent(ctx)
	default:
		return r.prepareNext(ctx)
	}
}

func (r *Run) prepareNext(ctx context.Context) (Event, error) {
	e := r.engine
	p := r.report.Order[r.next]
	r.next++
	if !r.processed.Add(p) {
		r.advance()
		if r.done {
			return r.finished(), nil
		}
		return r.prepareNext(ctx)
	}
	bundle := descriptor.BundleName(r.root.ID, p)

	def, err := e.Targets.Resolve(p)
	switch {
	case err != nil:
		return r.skip(p, bundle, err.Error()), nil
	case !r.root.Platforms.Has(p):
		return r.skip(p, bundle, r.root.DisplayName()+" does not declare "+p.String()), nil
	case !e.Env.Supports(def.Target):
		return r.skip(p, bundle, string(def.Target)+" is not installed"), nil
	}

	e.Registry.BeginBundle(bundle)
	r.current = &inFlight{platform: p, def: def, bundle: bundle}

	assets, err := e.Collector.Collect(ctx, r.root.Document, r.extra)
	if err != nil {
		if packager.IsCancellation(err) {
			r.abort(KindOperationCancelled, err)
			return r.finished(), r.fatal
		}
		return r.fail(KindNoValidAssets, err, "collecting dependencies"), nil
	}
	if len(assets) == 0 {
		return r.fail(KindNoValidAssets, nil, "%s has no packageable assets", r.root.DisplayName()), nil
	}

	pol := e.Policies.Lookup(p)
	r.assign(assets, bundle, pol)
	if err := e.Registry.Save(); err != nil {
		r.abort(KindHostFault, fmt.Errorf("saving descriptors: %w", err))
		return r.finished(), r.fatal
	}

	r.current.policy = pol
	r.current.assets = assets
	r.phase = phasePackage
	return Event{
		Kind:      EventPrepared,
		Platform:  p,
		Bundle:    bundle,
		Assets:    len(assets),
		Completed: r.next - 1,
		Total:     len(r.report.Order),
	}, nil
}

// assign affiliates every asset with bundle and applies the platform's
// encoding override to overridable kinds. Assets already in bundle keep
// their affiliation; assets held by another bundle under construction are
// left alone.
func (r *Run) assign(assets []descriptor.AssetPath, bundle string, pol policy.Policy) {
	reg := r.engine.Registry
	for _, a := range assets {
		if reg.Affiliation(a) != bundle {
			if err := reg.SetAffiliation(a, bundle); err != nil {
				r.engine.log().Warn("skipping asset", zap.String("asset", string(a)), zap.Error(err))
				continue
			}
		}
		if pol.OverrideDefaults && policy.Overridable(descriptor.KindOf(a)) {
			reg.SetOverride(a, pol.Platform, pol.Override())
		}
	}
}

func (r *Run) packageCurrent(ctx context.Context) (Event, error) {
	e := r.engine
	cur := r.current

	if err := e.Env.Switch(ctx, cur.def, cur.policy.GraphicsBackends, cur.policy.Settings); err != nil {
		if ctx.Err() != nil {
			r.abort(KindOperationCancelled, err)
			return r.finished(), r.fatal
		}
		return r.fail(KindEnvironment, err, "switching to %s", cur.def.Target), nil
	}

	res, err := e.Packager.Package(ctx, packager.Request{
		Bundle:      cur.bundle,
		Assets:      cur.assets,
		Platform:    cur.platform,
		Target:      cur.def.Target,
		OutputDir:   e.OutputDir,
		Compression: cur.policy.Compression,
	})
	var failure *packager.Failure
	switch {
	case err == nil:
		return r.succeed(res), nil
	case packager.IsCancellation(err) || ctx.Err() != nil:
		r.abort(KindOperationCancelled, err)
		return r.finished(), r.fatal
	case errors.As(err, &failure):
		return r.fail(KindPackagerFailure, err, ""), nil
	default:
		e.log().Error("packager fault",
			zap.String("run", r.ID),
			zap.String("bundle", cur.bundle),
			zap.Error(err),
		)
		r.abort(KindHostFault, err)
		return r.finished(), r.fatal
	}
}

func (r *Run) succeed(res *packager.Result) Event {
	cur := r.current
	result := BuildResult{
		Platform:           cur.platform,
		Bundle:             cur.bundle,
		OutputArtifactPath: res.Path,
		Digest:             res.Digest,
		Succeeded:          true,
	}
	r.report.Succeeded = append(r.report.Succeeded, result)
	r.engine.log().Info("bundle built",
		zap.String("bundle", cur.bundle),
		zap.String("path", res.Path),
		zap.Int("assets", res.Assets),
	)
	r.endCurrent()
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(cur.platform, r.next, len(r.report.Order))
	}
	r.advance()
	return r.built(&r.report.Succeeded[len(r.report.Succeeded)-1])
}

// skip records a platform that cannot be built on this host. It never
// triggers stop-on-failure.
func (r *Run) skip(p platform.Platform, bundle, msg string) Event {
	result := failedResult(p, bundle, KindPlatformUnsupported, nil, "%s", msg)
	r.report.Failed = append(r.report.Failed, result)
	r.engine.log().Warn("platform skipped", zap.Stringer("platform", p), zap.String("reason", result.ErrorDetail))
	r.advance()
	return r.built(&r.report.Failed[len(r.report.Failed)-1])
}

// fail records a non-fatal failure of the platform in flight.
func (r *Run) fail(kind ErrorKind, cause error, format string, args ...any) Event {
	cur := r.current
	result := failedResult(cur.platform, cur.bundle, kind, cause, format, args...)
	r.report.Failed = append(r.report.Failed, result)
	r.engine.log().Warn("platform failed", zap.Stringer("platform", cur.platform), zap.String("reason", result.ErrorDetail))
	r.endCurrent()
	if r.opts.StopOnFailure {
		r.report.Stopped = true
		r.done = true
	} else {
		r.advance()
	}
	return r.built(&r.report.Failed[len(r.report.Failed)-1])
}

// abort ends the run with a fatal error. A platform in flight is recorded
// as failed with the same kind; results recorded earlier are kept.
func (r *Run) abort(kind ErrorKind, cause error) {
	var p platform.Platform
	if cur := r.current; cur != nil {
		p = cur.platform
		r.report.Failed = append(r.report.Failed, failedResult(cur.platform, cur.bundle, kind, cause, ""))
		r.endCurrent()
	}
	r.fatal = &BuildError{Kind: kind, Platform: p, Err: cause}
	r.report.Aborted = true
	r.done = true
}

func (r *Run) endCurrent() {
	r.engine.Registry.EndBundle(r.current.bundle)
	r.current = nil
	r.phase = phasePrepare
}

func (r *Run) advance() {
	if r.next >= len(r.report.Order) {
		r.done = true
	}
}

func (r *Run) built(res *BuildResult) Event {
	return Event{
		Kind:      EventBuilt,
		Platform:  res.Platform,
		Bundle:    res.Bundle,
		Result:    res,
		Completed: r.next,
		Total:     len(r.report.Order),
	}
}

func (r *Run) finished() Event {
	return Event{Kind: EventFinished, Completed: r.next, Total: len(r.report.Order)}
}

func failedResult(p platform.Platform, bundle string, kind ErrorKind, cause error, format string, args ...any) BuildResult {
	err := buildErrorf(kind, platform.None, cause, format, args...)
	return BuildResult{
		Platform:    p,
		Bundle:      bundle,
		ErrorKind:   kind,
		ErrorDetail: err.Error(),
		Err:         err,
	}
}

// Close ends any bundle still under construction, saves descriptors,
// restores the environment snapshot, releases the controller and runs the
// post-process hook. It is safe to call more than once.
func (r *Run) Close(ctx context.Context) error {
	if r.closed {
		return nil
	}
	r.closed = true
	e := r.engine

	var errs []error
	if r.current != nil {
		e.Registry.EndBundle(r.current.bundle)
		r.current = nil
	}
	if err := e.Registry.Save(); err != nil {
		errs = append(errs, fmt.Errorf("saving descriptors: %w", err))
	}
	if err := e.Env.Restore(r.snap); err != nil {
		errs = append(errs, fmt.Errorf("restoring environment: %w", err))
	}
	r.release()

	if r.opts.PostProcess != nil {
		if err := r.opts.PostProcess(context.WithoutCancel(ctx), r.report); err != nil {
			errs = append(errs, fmt.Errorf("post-process: %w", err))
		}
	}

	e.log().Debug("build finished",
		zap.String("run", r.ID),
		zap.String("summary", r.report.Summary()),
		zap.Bool("aborted", r.report.Aborted),
	)
	return errors.Join(errs...)
}
