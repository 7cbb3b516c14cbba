package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initForce bool

// initTemplate is the default contentpack.yaml scaffold.
// It declares one scene root and documents the optional sections.
const initTemplate = `# contentpack configuration
version: 1

# project:
#   output: build/bundles      # bundle output directory
#   state: .contentpack        # descriptor registry and host state

roots:
  - id: main
    name: Main
    kind: scene                # scene or prefab
    document: scenes/main.scene.yaml
    platforms: [windows, osx, linux, ios, android, webgl]
    # extra_roots: [globals]  # shared roots bundled alongside

  # - id: globals
  #   kind: prefab
  #   document: prefabs/globals.prefab.yaml

# Built-in platforms: windows, osx, linux, ios, android, webgl, tvos

# policies:
#   android:
#     override_defaults: true
#     texture:
#       max_dimension: 2048
#       compression: true
#       quality: 50
#     mesh_compression: medium
#     graphics_backends: [vulkan, gles3]
#     settings:
#       architecture: arm64
#     bundle_compression: lz4

# ordering:
#   priority: [ios]            # built first
#   terminal: [webgl]          # built last

# toolchain:
#   installed: [windows, android, webgl]
#   targets:
#     - platform: windows
#       target: StandaloneWindows
#       backends: [d3d11]
#   hot_reload: [scripts/]

# build:
#   stop_on_failure: false
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter contentpack.yaml configuration",
	Long: `Creates a contentpack.yaml file in the current directory with a single scene
root and commented examples for policies, ordering and toolchain settings.

Use --force to overwrite an existing configuration file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := configPath
		if !filepath.IsAbs(outPath) {
			abs, err := filepath.Abs(outPath)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			outPath = abs
		}

		if !initForce {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
			}
		}

		if err := os.WriteFile(outPath, []byte(initTemplate), 0644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		info("Created %s", outPath)
		info("")
		info("Next steps:")
		info("  1. Point 'document' at your authored scene")
		info("  2. Run 'contentpack platforms' to check the host toolchain")
		info("  3. Run 'contentpack build main' to package bundles")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")
	rootCmd.AddCommand(initCmd)
}
