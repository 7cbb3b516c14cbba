package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <bundle-file|digest>",
	Short: "Print the manifest of a bundle",
	Long: `Opens a bundle file, or an artifact in the store when given a digest such as
sha256:..., verifies every entry's content hash, and prints the manifest.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		b, err := client.Inspect(args[0])
		if err != nil {
			return err
		}
		m := b.Manifest
		fmt.Printf("bundle:       %s\n", m.Bundle)
		fmt.Printf("platform:     %s\n", m.Platform)
		fmt.Printf("target:       %s\n", m.Target)
		fmt.Printf("compression:  %s\n", b.Compression)
		fmt.Printf("payload:      %s\n", humanSize(int64(m.PayloadSize)))
		fmt.Printf("\n%-40s %-9s %10s  %s\n", "ASSET", "KIND", "SIZE", "BLAKE3")
		for _, e := range m.Entries {
			path := string(e.Path)
			if e.External {
				path += " *"
			}
			hash := e.Hash
			if len(hash) > 16 && !verbose {
				hash = hash[:16]
			}
			fmt.Printf("%-40s %-9s %10s  %s\n", path, e.Kind, humanSize(int64(e.Size)), hash)
			if e.Override != nil {
				detail("override: max %dpx, quality %d, mesh %s",
					e.Override.MaxDimension, e.Override.CompressionQuality, e.Override.MeshCompression)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
