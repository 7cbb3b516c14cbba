// Package envctl owns the host-wide target environment: the one active
// toolchain target, its graphics backends and its feature toggles.
package envctl

import (
	"context"
	"errors"
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/bianoble/contentpack/internal/toolchain"
)

var (
	// ErrBusy is returned by Acquire while another build holds the controller.
	ErrBusy = errors.New("target environment is in use by another build")

	// ErrUnsupported is returned when the host cannot build a target.
	ErrUnsupported = errors.New("platform not supported by host toolchain")

	// ErrIncompatible is returned for a graphics backend the target does
	// not offer.
	ErrIncompatible = errors.New("graphics backend not offered by target")
)

// HotReloader suspends the host's own code reload while a build runs.
type HotReloader interface {
	Suspend()
	Resume()
}

// Snapshot is the environment captured before a build.
type Snapshot struct {
	State       State
	reloadDepth int
}

// Controller serializes access to the target environment.
type Controller struct {
	host      Host
	installed mapset.Set[toolchain.Target]
	reloader  HotReloader
	log       *zap.Logger

	mu        sync.Mutex
	held      bool
	suspended int
}

// NewController creates a controller over host. An empty installed list
// means every target can be built. reloader and log may be nil.
func NewController(host Host, installed []toolchain.Target, reloader HotReloader, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		host:      host,
		installed: mapset.NewSet(installed...),
		reloader:  reloader,
		log:       log,
	}
}

// Acquire takes exclusive use of the environment for one build. The
// returned func releases it and is safe to call more than once.
func (c *Controller) Acquire() (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held {
		return nil, ErrBusy
	}
	c.held = true

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.held = false
			c.mu.Unlock()
		})
	}, nil
}

// Current returns the environment as stored on the host.
func (c *Controller) Current() (State, error) {
	return c.host.Load()
}

// Active returns the active target.
func (c *Controller) Active() (toolchain.Target, error) {
	s, err := c.host.Load()
	if err != nil {
		return "", err
	}
	return s.Active, nil
}

// Snapshot captures the environment and hot-reload depth.
func (c *Controller) Snapshot() (Snapshot, error) {
	s, err := c.host.Load()
	if err != nil {
		return Snapshot{}, fmt.Errorf("capturing environment: %w", err)
	}
	c.mu.Lock()
	depth := c.suspended
	c.mu.Unlock()
	return Snapshot{State: s, reloadDepth: depth}, nil
}

// Supports reports whether the host installation can build target.
func (c *Controller) Supports(target toolchain.Target) bool {
	return c.installed.Cardinality() == 0 || c.installed.Contains(target)
}

// Switch activates def with the given graphics backends and feature toggles.
// Toggles from the previous target are cleared first. Switching to the state
// that is already active does not touch the host.
func (c *Controller) Switch(ctx context.Context, def toolchain.Definition, backends []string, features map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.Supports(def.Target) {
		return fmt.Errorf("%s: %w", def.Target, ErrUnsupported)
	}

	if len(backends) == 0 && len(def.Backends) > 0 {
		backends = def.Backends[:1]
	}
	for _, b := range backends {
		if !def.Supports(b) {
			return fmt.Errorf("%s on %s: %w", b, def.Target, ErrIncompatible)
		}
	}

	next := State{Active: def.Target, GraphicsBackends: append([]string(nil), backends...)}
	if len(features) > 0 {
		next.Features = make(map[string]string, len(features))
		for k, v := range features {
			next.Features[k] = v
		}
	}

	cur, err := c.host.Load()
	if err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	if cur.Equal(next) {
		return nil
	}

	if err := c.host.Store(next); err != nil {
		return fmt.Errorf("switching to %s: %w", def.Target, err)
	}
	c.log.Info("switched target environment",
		zap.String("from", string(cur.Active)),
		zap.String("to", string(def.Target)),
		zap.Strings("backends", backends),
		zap.Strings("features", next.FeatureNames()))
	return nil
}

// Restore puts the environment back to snap and resumes every hot-reload
// suspension taken since it was captured.
func (c *Controller) Restore(snap Snapshot) error {
	c.mu.Lock()
	resumes := c.suspended - snap.reloadDepth
	if resumes > 0 {
		c.suspended = snap.reloadDepth
	}
	c.mu.Unlock()

	// The final Resume may run reload handlers that call back in.
	for ; resumes > 0; resumes-- {
		if c.reloader != nil {
			c.reloader.Resume()
		}
	}

	cur, err := c.host.Load()
	if err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	if cur.Equal(snap.State) {
		return nil
	}
	if err := c.host.Store(snap.State.clone()); err != nil {
		return fmt.Errorf("restoring environment: %w", err)
	}
	c.log.Info("restored target environment", zap.String("target", string(snap.State.Active)))
	return nil
}

// SuspendHotReload suspends hot reload. Calls nest.
func (c *Controller) SuspendHotReload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suspended++
	if c.reloader != nil {
		c.reloader.Suspend()
	}
}

// ResumeHotReload undoes one SuspendHotReload.
func (c *Controller) ResumeHotReload() {
	c.mu.Lock()
	if c.suspended == 0 {
		c.mu.Unlock()
		return
	}
	c.suspended--
	c.mu.Unlock()

	if c.reloader != nil {
		c.reloader.Resume()
	}
}

// HotReloadSuspended reports whether hot reload is currently suspended.
func (c *Controller) HotReloadSuspended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspended > 0
}
