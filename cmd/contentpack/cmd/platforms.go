package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "Show how each platform is built on this host",
	Long: `Lists every platform with its toolchain target, graphics backends, whether
the host installation can build it, its ordering slot and its bundle
compression.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		fmt.Printf("%-9s %-22s %-10s %-6s %-6s %s\n", "PLATFORM", "TARGET", "INSTALLED", "SLOT", "COMP", "BACKENDS")
		for _, p := range client.Platforms() {
			target := string(p.Definition.Target)
			if p.Custom {
				target += " (custom)"
			}
			installed := "no"
			if p.Installed {
				installed = "yes"
			}
			slot := p.Slot
			if slot == "" {
				slot = "-"
			}
			fmt.Printf("%-9s %-22s %-10s %-6s %-6s %s\n",
				p.Platform, target, installed, slot, p.Policy.Compression, strings.Join(p.Definition.Backends, ", "))
			if p.Policy.OverrideDefaults {
				detail("overrides: max %dpx, quality %d, mesh %s", p.Policy.MaxDimension, p.Policy.Quality, p.Policy.MeshCompression)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(platformsCmd)
}
