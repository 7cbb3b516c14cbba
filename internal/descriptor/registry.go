package descriptor

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/bianoble/contentpack/internal/platform"
)

// ErrAffiliated is returned when an asset belongs to a bundle that is being
// built and a different bundle tries to claim it.
var ErrAffiliated = errors.New("asset is affiliated with a bundle under construction")

// Registry is the process-wide set of import descriptors. Unknown assets
// have an implicit empty descriptor.
type Registry struct {
	mu       sync.RWMutex
	path     string
	entries  map[AssetPath]*Descriptor
	building mapset.Set[string]
}

// New returns an empty in-memory registry. Save on it is a no-op.
func New() *Registry {
	return &Registry{
		entries:  make(map[AssetPath]*Descriptor),
		building: mapset.NewSet[string](),
	}
}

// Open loads the registry persisted at path. A missing file yields an empty
// registry that Save will create.
func Open(path string) (*Registry, error) {
	r := New()
	r.path = path

	f, err := Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return r, nil
		}
		return nil, err
	}
	for i := range f.Assets {
		d := f.Assets[i].clone()
		r.entries[d.Path] = &d
	}
	return r, nil
}

// Save persists every non-transient descriptor, sorted by path.
func (r *Registry) Save() error {
	if r.path == "" {
		return nil
	}

	r.mu.RLock()
	f := &File{Version: 1, Assets: make([]Descriptor, 0, len(r.entries))}
	for _, p := range r.sortedPaths() {
		d := r.entries[p]
		if d.Transient {
			continue
		}
		f.Assets = append(f.Assets, d.clone())
	}
	r.mu.RUnlock()

	return Save(r.path, f)
}

// Get returns a copy of the descriptor for path.
func (r *Registry) Get(path AssetPath) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entries[path]
	if !ok {
		return Descriptor{Path: path}, false
	}
	return d.clone(), true
}

// Ensure registers path if it is not known yet.
func (r *Registry) Ensure(path AssetPath) Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensure(path).clone()
}

func (r *Registry) ensure(path AssetPath) *Descriptor {
	d, ok := r.entries[path]
	if !ok {
		d = &Descriptor{Path: path}
		r.entries[path] = d
	}
	return d
}

// SetFlags marks an asset as editor-only and/or transient.
func (r *Registry) SetFlags(path AssetPath, editorOnly, transient bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.ensure(path)
	d.EditorOnly = editorOnly
	d.Transient = transient
}

// Affiliation returns the bundle path is affiliated with, or "".
func (r *Registry) Affiliation(path AssetPath) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.entries[path]; ok {
		return d.Bundle
	}
	return ""
}

// SetAffiliation assigns path to bundle. It refuses to move an asset away
// from another bundle that is currently under construction.
func (r *Registry) SetAffiliation(path AssetPath, bundle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.ensure(path)
	if d.Bundle != "" && d.Bundle != bundle && r.building.Contains(d.Bundle) {
		return fmt.Errorf("%s: %w '%s'", path, ErrAffiliated, d.Bundle)
	}
	d.Bundle = bundle
	return nil
}

// SetOverride records the encoding override for one platform.
func (r *Registry) SetOverride(path AssetPath, p platform.Platform, o EncodingOverride) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.ensure(path)
	if d.Overrides == nil {
		d.Overrides = make(map[string]EncodingOverride)
	}
	d.Overrides[p.String()] = o
}

// Override returns the encoding override recorded for a platform.
func (r *Registry) Override(path AssetPath, p platform.Platform) (EncodingOverride, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entries[path]
	if !ok {
		return EncodingOverride{}, false
	}
	o, ok := d.Overrides[p.String()]
	return o, ok
}

// IsExcluded reports whether an asset is tooling-only: editor-only or
// transient.
func (r *Registry) IsExcluded(path AssetPath) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entries[path]
	return ok && (d.EditorOnly || d.Transient)
}

// AssetsInBundle returns the sorted paths affiliated with bundle.
func (r *Registry) AssetsInBundle(bundle string) []AssetPath {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []AssetPath
	for _, p := range r.sortedPaths() {
		if r.entries[p].Bundle == bundle {
			out = append(out, p)
		}
	}
	return out
}

// ReleaseMatching clears every affiliation whose bundle name satisfies
// match. Bundles under construction are left alone. It returns the number
// of assets released.
func (r *Registry) ReleaseMatching(match func(bundle string) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.entries {
		if d.Bundle == "" || r.building.Contains(d.Bundle) || !match(d.Bundle) {
			continue
		}
		d.Bundle = ""
		n++
	}
	return n
}

// Paths returns every known asset path in sorted order.
func (r *Registry) Paths() []AssetPath {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedPaths()
}

func (r *Registry) sortedPaths() []AssetPath {
	out := make([]AssetPath, 0, len(r.entries))
	for p := range r.entries {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BeginBundle marks bundle as under construction.
func (r *Registry) BeginBundle(bundle string) {
	r.building.Add(bundle)
}

// EndBundle clears the under-construction mark.
func (r *Registry) EndBundle(bundle string) {
	r.building.Remove(bundle)
}

// Building reports whether bundle is under construction.
func (r *Registry) Building(bundle string) bool {
	return r.building.Contains(bundle)
}

// BundleName returns the affiliation name used for a root on a platform.
func BundleName(rootID string, p platform.Platform) string {
	return rootID + "_" + strings.ToLower(p.String())
}
