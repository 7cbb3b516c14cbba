// Package project is the on-disk authoring layer: the content roots declared
// in contentpack.yaml, their authored documents, pending drafts and the asset
// dependency graph those documents declare.
package project

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/bianoble/contentpack/internal/config"
	"github.com/bianoble/contentpack/internal/descriptor"
	"github.com/bianoble/contentpack/internal/platform"
	"github.com/bianoble/contentpack/internal/sandbox"
)

// DraftSuffix marks a document holding unsaved authoring changes.
const DraftSuffix = ".draft"

// ErrUnknownRoot is returned for a content root id that is not declared.
var ErrUnknownRoot = errors.New("unknown content root")

// ContentRoot is one publishable unit.
type ContentRoot struct {
	ID         string
	Name       string
	Kind       string
	Document   descriptor.AssetPath
	Platforms  platform.Platform
	ExtraRoots []string
}

// RequiresPersistence reports whether the root can only be built from its
// saved document. Scenes can; prefabs are built from whatever is on disk.
func (r ContentRoot) RequiresPersistence() bool {
	return r.Kind == "scene"
}

// DisplayName returns Name, or ID when no name is set.
func (r ContentRoot) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

// RootError is a content root that could not be resolved.
type RootError struct {
	Root string
	Err  error
	Hint string
}

func (e *RootError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Root, e.Err)
	if e.Hint != "" {
		msg += " — " + e.Hint
	}
	return msg
}

func (e *RootError) Unwrap() error {
	return e.Err
}

// Project is a project directory and its declared content roots.
type Project struct {
	Files *sandbox.Root
	roots map[string]ContentRoot
}

// New opens the project rooted at dir.
func New(dir string, cfg *config.Config) (*Project, error) {
	files, err := sandbox.New(dir)
	if err != nil {
		return nil, err
	}

	p := &Project{Files: files, roots: make(map[string]ContentRoot, len(cfg.Roots))}
	for _, r := range cfg.Roots {
		ps, err := platform.ParseList(r.Platforms)
		if err != nil {
			return nil, &RootError{Root: r.ID, Err: err}
		}
		declared := platform.Union(ps...)
		if declared == platform.None {
			declared = platform.All
		}
		p.roots[r.ID] = ContentRoot{
			ID:         r.ID,
			Name:       r.Name,
			Kind:       r.Kind,
			Document:   descriptor.AssetPath(r.Document),
			Platforms:  declared,
			ExtraRoots: r.ExtraRoots,
		}
	}
	return p, nil
}

// Roots returns every declared root sorted by id.
func (p *Project) Roots() []ContentRoot {
	out := make([]ContentRoot, 0, len(p.roots))
	for _, r := range p.roots {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resolve returns the root with the given id after checking that its
// document or a draft of it exists.
func (p *Project) Resolve(ctx context.Context, id string) (ContentRoot, error) {
	if err := ctx.Err(); err != nil {
		return ContentRoot{}, err
	}
	r, ok := p.roots[id]
	if !ok {
		return ContentRoot{}, &RootError{Root: id, Err: ErrUnknownRoot, Hint: "declare it under 'roots' in contentpack.yaml"}
	}
	if !p.Files.Exists(string(r.Document)) && !p.HasPendingChanges(r) {
		return ContentRoot{}, &RootError{
			Root: id,
			Err:  fmt.Errorf("document '%s': %w", r.Document, fs.ErrNotExist),
			Hint: "check the root's 'document' path",
		}
	}
	return r, nil
}

// ExtraRoots resolves the shared roots a root declares.
func (p *Project) ExtraRoots(ctx context.Context, r ContentRoot) ([]ContentRoot, error) {
	out := make([]ContentRoot, 0, len(r.ExtraRoots))
	for _, id := range r.ExtraRoots {
		extra, err := p.Resolve(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("extra root of %s: %w", r.ID, err)
		}
		out = append(out, extra)
	}
	return out, nil
}

// HasPendingChanges reports whether a draft of the root's document exists.
func (p *Project) HasPendingChanges(r ContentRoot) bool {
	return p.Files.Exists(string(r.Document) + DraftSuffix)
}

// PersistPending replaces the root's document with its draft. It is a no-op
// when there is no draft.
func (p *Project) PersistPending(ctx context.Context, r ContentRoot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.HasPendingChanges(r) {
		return nil
	}
	if err := p.Files.Rename(string(r.Document)+DraftSuffix, string(r.Document)); err != nil {
		return fmt.Errorf("persisting %s: %w", r.Document, err)
	}
	return nil
}

// document is the part of an authored YAML document the graph reads.
type document struct {
	Dependencies []string `yaml:"dependencies"`
}

// Dependencies returns the assets path directly references. Scenes, prefabs
// and materials are YAML documents with a dependencies list; every other kind
// is a leaf. A missing asset returns an error wrapping fs.ErrNotExist.
func (p *Project) Dependencies(ctx context.Context, path descriptor.AssetPath) ([]descriptor.AssetPath, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch descriptor.KindOf(path) {
	case descriptor.KindScene, descriptor.KindPrefab, descriptor.KindMaterial:
	default:
		if !p.Files.Exists(string(path)) {
			return nil, fmt.Errorf("asset '%s': %w", path, fs.ErrNotExist)
		}
		return nil, nil
	}

	data, err := p.Files.ReadFile(string(path))
	if err != nil {
		return nil, fmt.Errorf("reading '%s': %w", path, err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing '%s': %w", path, err)
	}

	deps := make([]descriptor.AssetPath, 0, len(doc.Dependencies))
	for _, d := range doc.Dependencies {
		if d != "" {
			deps = append(deps, descriptor.AssetPath(d))
		}
	}
	return deps, nil
}

// ReadAsset returns an asset's content.
func (p *Project) ReadAsset(path descriptor.AssetPath) ([]byte, error) {
	return p.Files.ReadFile(string(path))
}
