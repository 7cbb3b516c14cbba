// Package contentpack provides the public Go library API for contentpack.
//
// contentpack packages a content root and its transitive asset dependencies
// into one bundle per target platform, switching the host's active toolchain
// target for each platform and restoring it afterwards.
//
// # Basic Usage
//
//	client, err := contentpack.New(contentpack.Options{
//	    ConfigPath: "/path/to/project/contentpack.yaml",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	report, err := client.Build(ctx, "Lobby", contentpack.BuildOptions{
//	    Platforms: []contentpack.Platform{contentpack.Windows, contentpack.WebGL},
//	})
//	fmt.Println(report.Summary())
package contentpack

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/opencontainers/go-digest"
	"go.uber.org/zap"

	"github.com/bianoble/contentpack/internal/batch"
	"github.com/bianoble/contentpack/internal/collect"
	"github.com/bianoble/contentpack/internal/config"
	"github.com/bianoble/contentpack/internal/descriptor"
	"github.com/bianoble/contentpack/internal/engine"
	"github.com/bianoble/contentpack/internal/envctl"
	"github.com/bianoble/contentpack/internal/packager"
	"github.com/bianoble/contentpack/internal/platform"
	"github.com/bianoble/contentpack/internal/policy"
	"github.com/bianoble/contentpack/internal/project"
	"github.com/bianoble/contentpack/internal/reload"
	"github.com/bianoble/contentpack/internal/store"
	"github.com/bianoble/contentpack/internal/toolchain"
)

// Options configures a contentpack client.
type Options struct {
	// ProjectRoot is the directory containing contentpack.yaml.
	// If empty, defaults to the directory containing ConfigPath.
	ProjectRoot string

	// ConfigPath is the path to the project config file. Default: "contentpack.yaml".
	ConfigPath string

	// NoInherit skips the system and user config layers.
	NoInherit bool

	// SystemConfigPath and UserConfigPath override the XDG locations.
	SystemConfigPath string
	UserConfigPath   string

	// BatchPath is the batch database. Default: <state>/batches.db.
	BatchPath string

	// CacheDir is the artifact store. If empty, uses the default (~/.cache/contentpack).
	CacheDir string

	// Host persists the target environment. Default: <state>/environment.yaml.
	Host envctl.Host

	// Packager replaces the built-in archive packager.
	Packager packager.Packager

	Log *zap.Logger
}

// Client is the main entry point for the contentpack library.
type Client struct {
	cfg      *config.Config
	layers   []config.ConfigLayerInfo
	project  *project.Project
	registry *descriptor.Registry
	targets  *toolchain.Map
	policies *policy.Table
	env      *envctl.Controller
	watcher  *reload.Watcher
	store    *store.Store
	batches  *batch.Store
	builder  *engine.BuildEngine
	releaser *engine.ReleaseEngine
	log      *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// New loads the layered configuration and opens the project, its state
// and the artifact store.
func New(opts Options) (*Client, error) {
	if opts.ConfigPath == "" {
		opts.ConfigPath = config.FileName
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	root := opts.ProjectRoot
	if root == "" {
		abs, err := filepath.Abs(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("resolving config path: %w", err)
		}
		root = filepath.Dir(abs)
	}

	cfg, layers, err := config.LoadLayered(config.DiscoverOptions{
		ProjectPath:      opts.ConfigPath,
		SystemConfigPath: opts.SystemConfigPath,
		UserConfigPath:   opts.UserConfigPath,
		NoInherit:        opts.NoInherit || config.EnvNoInherit(),
	})
	if err != nil {
		return nil, err
	}

	c := &Client{cfg: cfg, layers: layers, log: log}
	if err := c.open(root, opts); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) open(root string, opts Options) error {
	var err error
	if c.project, err = project.New(root, c.cfg); err != nil {
		return fmt.Errorf("opening project: %w", err)
	}
	stateDir := c.cfg.Project.StateDir()
	if err := c.project.Files.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	statePath := func(name string) (string, error) {
		return c.project.Files.Resolve(path.Join(stateDir, name))
	}

	descPath, err := statePath(descriptor.FileName)
	if err != nil {
		return err
	}
	if c.registry, err = descriptor.Open(descPath); err != nil {
		return err
	}

	if c.targets, err = toolchain.NewMap(c.cfg.Toolchain.Targets); err != nil {
		return err
	}
	if c.policies, err = policy.NewTable(c.cfg.Policies); err != nil {
		return err
	}
	installed, err := c.installedTargets()
	if err != nil {
		return err
	}

	host := opts.Host
	if host == nil {
		envPath, err := statePath(envctl.StateFileName)
		if err != nil {
			return err
		}
		host = &envctl.FileHost{Path: envPath}
	}

	var reloader envctl.HotReloader
	if len(c.cfg.Toolchain.HotReload) > 0 {
		dirs := make([]string, 0, len(c.cfg.Toolchain.HotReload))
		for _, d := range c.cfg.Toolchain.HotReload {
			abs, err := c.project.Files.Resolve(d)
			if err != nil {
				return fmt.Errorf("hot reload directory %s: %w", d, err)
			}
			dirs = append(dirs, abs)
		}
		if c.watcher, err = reload.New(dirs, c.reloaded, c.log); err != nil {
			return err
		}
		reloader = c.watcher
	}
	c.env = envctl.NewController(host, installed, reloader, c.log)

	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = store.DefaultDir()
	}
	if c.store, err = store.New(cacheDir); err != nil {
		return fmt.Errorf("initializing artifact store: %w", err)
	}

	batchPath := opts.BatchPath
	if batchPath == "" {
		if batchPath, err = statePath(batch.FileName); err != nil {
			return err
		}
	}
	if c.batches, err = batch.Open(batchPath); err != nil {
		return err
	}

	pkg := opts.Packager
	if pkg == nil {
		pkg = &packager.ArchivePackager{
			Env:         c.env,
			Assets:      c.project,
			Descriptors: c.registry,
			Store:       c.store,
			Output:      c.project.Files,
			Log:         c.log,
		}
	}

	c.builder = &engine.BuildEngine{
		Authoring: c.project,
		Collector: &collect.Collector{Graph: c.project, Exclusions: c.registry, Log: c.log},
		Registry:  c.registry,
		Policies:  c.policies,
		Targets:   c.targets,
		Env:       c.env,
		Packager:  pkg,
		Ordering:  c.cfg.PlatformOrdering(),
		OutputDir: c.cfg.Project.OutputDir(),
		Log:       c.log,
	}
	c.releaser = &engine.ReleaseEngine{Registry: c.registry, Log: c.log}
	return nil
}

// installedTargets maps the configured installed platforms to targets.
func (c *Client) installedTargets() ([]toolchain.Target, error) {
	ps, err := platform.ParseList(c.cfg.Toolchain.Installed)
	if err != nil {
		return nil, fmt.Errorf("toolchain.installed: %w", err)
	}
	out := make([]toolchain.Target, 0, len(ps))
	for _, p := range ps {
		def, err := c.targets.Resolve(p)
		if err != nil {
			return nil, fmt.Errorf("toolchain.installed: %s: %w", p, err)
		}
		out = append(out, def.Target)
	}
	return out, nil
}

func (c *Client) reloaded(paths []string) {
	c.log.Info("compiled code changed", zap.Strings("paths", paths))
}

// Config returns the merged configuration.
func (c *Client) Config() *config.Config {
	return c.cfg
}

// Layers returns the config files that were considered, lowest precedence first.
func (c *Client) Layers() []config.ConfigLayerInfo {
	return c.layers
}

// Roots returns the declared content roots sorted by id.
func (c *Client) Roots() []ContentRoot {
	return c.project.Roots()
}

// Platforms describes how every mapped platform would be built on this host.
func (c *Client) Platforms() []PlatformInfo {
	ordering := c.cfg.PlatformOrdering()
	var out []PlatformInfo
	for _, p := range c.targets.Platforms() {
		def, err := c.targets.Resolve(p)
		if err != nil {
			continue
		}
		out = append(out, PlatformInfo{
			Platform:   p,
			Definition: def,
			Installed:  c.env.Supports(def.Target),
			Custom:     c.targets.IsCustom(p),
			Slot:       ordering.Slot(p),
			Policy:     c.policies.Lookup(p),
		})
	}
	return out
}

// Environment returns the persisted target environment.
func (c *Client) Environment() (EnvironmentState, error) {
	return c.env.Current()
}

// Build packages one content root. The configured stop_on_failure applies
// when opts does not set it.
func (c *Client) Build(ctx context.Context, rootID string, opts BuildOptions) (*Report, error) {
	if c.cfg.Build.StopOnFailure {
		opts.StopOnFailure = true
	}
	return c.builder.Build(ctx, rootID, opts)
}

// BatchReport is the outcome of building every root in a batch.
type BatchReport struct {
	Batch   string
	Results []RootReport
}

// RootReport is the outcome of one root within a batch build.
type RootReport struct {
	Root   string
	Report *Report
	Err    error
}

// BuildBatch builds the roots selected by a batch in id order. When the
// batch stops on failure, the first root that fails ends the batch.
func (c *Client) BuildBatch(ctx context.Context, name string, opts BuildOptions) (*BatchReport, error) {
	b, err := c.batches.Get(name)
	if err != nil {
		return nil, err
	}
	ids := b.Selection.IDs()
	if len(ids) == 0 {
		return nil, fmt.Errorf("batch %q selects no content roots", b.Name)
	}
	opts.StopOnFailure = opts.StopOnFailure || b.StopOnFailure

	out := &BatchReport{Batch: b.Name}
	var errs []error
	for _, id := range ids {
		report, err := c.Build(ctx, id, opts)
		out.Results = append(out.Results, RootReport{Root: id, Report: report, Err: err})
		if err == nil {
			continue
		}
		errs = append(errs, fmt.Errorf("%s: %w", id, err))
		if opts.StopOnFailure || ctx.Err() != nil {
			break
		}
	}
	return out, errors.Join(errs...)
}

// Batches returns the batch store.
func (c *Client) Batches() *batch.Store {
	return c.batches
}

// Release clears the bundle affiliations of a content root.
func (c *Client) Release(rootID string) (int, error) {
	if _, ok := c.cfg.Root(rootID); !ok {
		return 0, fmt.Errorf("%w: %s", project.ErrUnknownRoot, rootID)
	}
	return c.releaser.Release(rootID)
}

// Inspect opens a bundle by file path or by artifact digest.
func (c *Client) Inspect(ref string) (*Bundle, error) {
	var data []byte
	if d, err := digest.Parse(ref); err == nil {
		content, ok, err := c.store.Get(d)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("artifact %s not found in store", d)
		}
		data = content
	} else {
		content, err := os.ReadFile(ref)
		if err != nil {
			return nil, fmt.Errorf("reading bundle: %w", err)
		}
		data = content
	}
	return packager.Open(data)
}

// Close stops the hot reload watcher and closes the batch store. It is
// safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		var errs []error
		if c.watcher != nil {
			errs = append(errs, c.watcher.Close())
		}
		if c.batches != nil {
			errs = append(errs, c.batches.Close())
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}
