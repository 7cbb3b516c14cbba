package descriptor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bianoble/contentpack/internal/platform"
	"github.com/bianoble/contentpack/internal/sandbox"
	"gopkg.in/yaml.v3"
)

// FileName is the registry file name inside the project state directory.
const FileName = "descriptors.yaml"

// Load reads and validates a descriptor registry file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading descriptors %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing descriptors %s: %w", path, err)
	}

	if errs := Validate(&f); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return &f, nil
}

// Save writes a descriptor file atomically, creating its directory.
func Save(path string, f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling descriptors: %w", err)
	}

	dir, err := sandbox.New(filepath.Dir(path))
	if err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	if err := dir.WriteFile(filepath.Base(path), data, 0644); err != nil {
		return fmt.Errorf("saving descriptors %s: %w", path, err)
	}
	return nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("descriptor validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

var meshCompressions = map[string]bool{"": true, "off": true, "low": true, "medium": true, "high": true}

// Validate checks a descriptor File for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(f *File) []string {
	var errs []string

	if f.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d — only version 1 is supported", f.Version))
	}

	seen := make(map[AssetPath]bool)
	for i, d := range f.Assets {
		prefix := fmt.Sprintf("asset[%d]", i)
		if d.Path != "" {
			prefix = fmt.Sprintf("asset '%s'", d.Path)
		}

		switch {
		case d.Path == "":
			errs = append(errs, fmt.Sprintf("%s: 'path' is required", prefix))
		case seen[d.Path]:
			errs = append(errs, fmt.Sprintf("%s: duplicate asset path", prefix))
		default:
			seen[d.Path] = true
		}

		for name, o := range d.Overrides {
			if _, err := platform.Parse(name); err != nil {
				errs = append(errs, fmt.Sprintf("%s: override %v", prefix, err))
			}
			if o.CompressionQuality < 0 || o.CompressionQuality > 100 {
				errs = append(errs, fmt.Sprintf("%s: override '%s' quality %d out of range 0-100", prefix, name, o.CompressionQuality))
			}
			if !meshCompressions[o.MeshCompression] {
				errs = append(errs, fmt.Sprintf("%s: override '%s' has invalid mesh_compression '%s'", prefix, name, o.MeshCompression))
			}
		}
	}

	return errs
}
