package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/bianoble/contentpack/internal/descriptor"
	"github.com/bianoble/contentpack/internal/platform"
)

// ReleaseEngine clears bundle affiliations left behind by earlier builds.
type ReleaseEngine struct {
	Registry *descriptor.Registry
	Log      *zap.Logger
}

// Release clears every affiliation pointing at one of rootID's per-platform
// bundles and saves the registry. Bundles under construction are kept.
func (e *ReleaseEngine) Release(rootID string) (int, error) {
	bundles := make(map[string]bool)
	for _, p := range platform.All.Expand() {
		bundles[descriptor.BundleName(rootID, p)] = true
	}

	n := e.Registry.ReleaseMatching(func(bundle string) bool {
		return bundles[bundle]
	})
	if err := e.Registry.Save(); err != nil {
		return n, fmt.Errorf("saving descriptors: %w", err)
	}
	if e.Log != nil {
		e.Log.Info("released affiliations", zap.String("root", rootID), zap.Int("assets", n))
	}
	return n, nil
}
