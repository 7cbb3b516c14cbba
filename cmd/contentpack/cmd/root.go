package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	configPath string
	batchPath  string
	cacheDir   string
	verbose    bool
	quiet      bool
	noInherit  bool
)

var rootCmd = &cobra.Command{
	Use:   "contentpack",
	Short: "Package content roots into per-platform bundles",
	Long: `contentpack packages a content root (a scene or prefab) and every asset it
transitively depends on into one bundle per target platform. For each platform
it switches the host's active toolchain target, applies the platform's encoding
policy to the affected assets, invokes the packager, and restores the previous
environment when the build ends.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("contentpack %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
		fmt.Printf("  bundle:  v1\n")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "contentpack.yaml", "path to project config file")
	rootCmd.PersistentFlags().StringVar(&batchPath, "batches", "", "path to batch database (default <state>/batches.db)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "artifact store directory (default ~/.cache/contentpack)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "detailed output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "minimal output (errors only)")
	rootCmd.PersistentFlags().BoolVar(&noInherit, "no-inherit", false, "load only the project config, skipping system and user layers")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
