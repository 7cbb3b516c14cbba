package packager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"go.uber.org/zap"

	"github.com/bianoble/contentpack/internal/descriptor"
	"github.com/bianoble/contentpack/internal/platform"
	"github.com/bianoble/contentpack/internal/sandbox"
	"github.com/bianoble/contentpack/internal/store"
	"github.com/bianoble/contentpack/internal/toolchain"
)

// Environment exposes the ambient active target.
type Environment interface {
	Active() (toolchain.Target, error)
}

// AssetReader reads asset content.
type AssetReader interface {
	ReadAsset(path descriptor.AssetPath) ([]byte, error)
}

// Descriptors exposes the import settings recorded for assets.
type Descriptors interface {
	Affiliation(path descriptor.AssetPath) string
	Override(path descriptor.AssetPath, p platform.Platform) (descriptor.EncodingOverride, bool)
}

// ArchivePackager writes bundles as manifest plus compressed payload. Like
// any toolchain packager it reads the active target from the environment
// rather than from the request, and refuses to build when the two differ.
type ArchivePackager struct {
	Env         Environment
	Assets      AssetReader
	Descriptors Descriptors
	Store       *store.Store
	Output      *sandbox.Root
	Log         *zap.Logger
}

// Extension is the bundle file extension.
const Extension = ".bundle"

// Package builds req into <OutputDir>/<platform>/<bundle>.bundle.
func (a *ArchivePackager) Package(ctx context.Context, req Request) (*Result, error) {
	log := a.Log
	if log == nil {
		log = zap.NewNop()
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	active, err := a.Env.Active()
	if err != nil {
		return nil, fmt.Errorf("reading active target: %w", err)
	}
	if active != req.Target {
		return nil, &Failure{Bundle: req.Bundle, Reason: fmt.Sprintf("active target is '%s', expected '%s'", active, req.Target)}
	}
	if len(req.Assets) == 0 {
		return nil, &Failure{Bundle: req.Bundle, Reason: "no assets to package"}
	}
	compression, err := ParseCompression(req.Compression)
	if err != nil {
		return nil, &Failure{Bundle: req.Bundle, Reason: "invalid bundle compression", Err: err}
	}

	m := &Manifest{
		Bundle:   req.Bundle,
		Platform: req.Platform.String(),
		Target:   string(req.Target),
		Entries:  make([]Entry, 0, len(req.Assets)),
	}
	var payload []byte
	for _, p := range req.Assets {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		data, err := a.Assets.ReadAsset(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, &Failure{Bundle: req.Bundle, Reason: fmt.Sprintf("asset '%s' is missing", p), Err: err}
			}
			return nil, fmt.Errorf("reading asset %s: %w", p, err)
		}

		e := Entry{
			Path:     p,
			Kind:     descriptor.KindOf(p),
			Offset:   len(payload),
			Size:     len(data),
			Hash:     HashAsset(data),
			External: a.Descriptors.Affiliation(p) != req.Bundle,
		}
		if o, ok := a.Descriptors.Override(p, req.Platform); ok {
			e.Override = &o
		}
		m.Entries = append(m.Entries, e)
		payload = append(payload, data...)
	}

	data, err := encode(m, payload, compression)
	if err != nil {
		return nil, &Failure{Bundle: req.Bundle, Reason: "encoding bundle", Err: err}
	}

	d, err := a.Store.Put(data)
	if err != nil {
		return nil, fmt.Errorf("storing artifact: %w", err)
	}

	rel := path.Join(req.OutputDir, req.Platform.String(), req.Bundle+Extension)
	if err := a.Output.WriteFile(rel, data, 0644); err != nil {
		return nil, fmt.Errorf("writing bundle: %w", err)
	}
	abs, err := a.Output.Resolve(rel)
	if err != nil {
		return nil, err
	}

	log.Debug("bundle written",
		zap.String("bundle", req.Bundle),
		zap.String("path", abs),
		zap.Stringer("digest", d),
		zap.Int("assets", len(m.Entries)))

	return &Result{Path: abs, Digest: d, Size: int64(len(data)), Assets: len(m.Entries)}, nil
}
