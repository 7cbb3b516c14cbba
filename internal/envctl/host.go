package envctl

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/bianoble/contentpack/internal/sandbox"
	"github.com/bianoble/contentpack/internal/toolchain"
)

// State is the host-wide target environment.
type State struct {
	Active           toolchain.Target  `yaml:"active"`
	GraphicsBackends []string          `yaml:"graphics_backends,omitempty"`
	Features         map[string]string `yaml:"features,omitempty"`
}

// Equal reports whether two states are identical.
func (s State) Equal(o State) bool {
	if s.Active != o.Active || len(s.GraphicsBackends) != len(o.GraphicsBackends) || len(s.Features) != len(o.Features) {
		return false
	}
	for i := range s.GraphicsBackends {
		if s.GraphicsBackends[i] != o.GraphicsBackends[i] {
			return false
		}
	}
	for k, v := range s.Features {
		if ov, ok := o.Features[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// FeatureNames returns the applied feature toggles in sorted order.
func (s State) FeatureNames() []string {
	names := make([]string, 0, len(s.Features))
	for k := range s.Features {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (s State) clone() State {
	out := State{Active: s.Active}
	if s.GraphicsBackends != nil {
		out.GraphicsBackends = append([]string(nil), s.GraphicsBackends...)
	}
	if s.Features != nil {
		out.Features = make(map[string]string, len(s.Features))
		for k, v := range s.Features {
			out.Features[k] = v
		}
	}
	return out
}

// Host stores the target environment.
type Host interface {
	Load() (State, error)
	Store(State) error
}

// FileHost keeps the environment in a YAML file. A missing file is the
// empty environment.
type FileHost struct {
	Path string
}

// StateFileName is the host state file inside the project state directory.
const StateFileName = "environment.yaml"

// Load reads the persisted environment.
func (h *FileHost) Load() (State, error) {
	data, err := os.ReadFile(h.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("reading environment %s: %w", h.Path, err)
	}
	var s State
	if err := yaml.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("parsing environment %s: %w", h.Path, err)
	}
	return s, nil
}

// Store writes the environment atomically, creating its directory.
func (h *FileHost) Store(s State) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling environment: %w", err)
	}
	dir, err := sandbox.New(filepath.Dir(h.Path))
	if err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	if err := dir.WriteFile(filepath.Base(h.Path), data, 0644); err != nil {
		return fmt.Errorf("storing environment %s: %w", h.Path, err)
	}
	return nil
}

// MemoryHost keeps the environment in memory and counts writes.
type MemoryHost struct {
	mu     sync.Mutex
	state  State
	Writes int
}

// NewMemoryHost returns a host starting in state s.
func NewMemoryHost(s State) *MemoryHost {
	return &MemoryHost{state: s.clone()}
}

func (h *MemoryHost) Load() (State, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.clone(), nil
}

func (h *MemoryHost) Store(s State) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = s.clone()
	h.Writes++
	return nil
}
