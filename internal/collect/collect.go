// Package collect computes the asset closure of a content root.
package collect

import (
	"context"
	"errors"
	"io/fs"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/bianoble/contentpack/internal/descriptor"
)

// Graph returns the direct dependencies of an asset. A missing asset is an
// error wrapping fs.ErrNotExist.
type Graph interface {
	Dependencies(ctx context.Context, path descriptor.AssetPath) ([]descriptor.AssetPath, error)
}

// Exclusions reports tooling-only assets.
type Exclusions interface {
	IsExcluded(path descriptor.AssetPath) bool
}

// Collector walks a Graph from root documents.
type Collector struct {
	Graph      Graph
	Exclusions Exclusions
	Log        *zap.Logger
}

// Collect returns the sorted, de-duplicated closure of root and extraRoots.
// Excluded assets are neither returned nor traversed. Missing references are
// skipped with a warning.
func (c *Collector) Collect(ctx context.Context, root descriptor.AssetPath, extraRoots []descriptor.AssetPath) ([]descriptor.AssetPath, error) {
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}

	seen := mapset.NewThreadUnsafeSet[descriptor.AssetPath]()
	var out []descriptor.AssetPath

	queue := append([]descriptor.AssetPath{root}, extraRoots...)
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := queue[0]
		queue = queue[1:]

		if !seen.Add(path) {
			continue
		}
		if c.excluded(path) {
			log.Debug("excluded from closure", zap.String("asset", string(path)))
			continue
		}

		deps, err := c.Graph.Dependencies(ctx, path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Warn("skipping missing asset reference", zap.String("asset", string(path)))
				continue
			}
			return nil, err
		}
		out = append(out, path)
		queue = append(queue, deps...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (c *Collector) excluded(path descriptor.AssetPath) bool {
	if descriptor.KindOf(path) == descriptor.KindScript {
		return true
	}
	if inEditorFolder(path) {
		return true
	}
	return c.Exclusions != nil && c.Exclusions.IsExcluded(path)
}

// inEditorFolder reports whether any directory in path is named Editor.
func inEditorFolder(path descriptor.AssetPath) bool {
	parts := strings.Split(string(path), "/")
	for _, p := range parts[:len(parts)-1] {
		if p == "Editor" {
			return true
		}
	}
	return false
}
