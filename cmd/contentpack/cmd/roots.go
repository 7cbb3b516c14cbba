package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var rootsCmd = &cobra.Command{
	Use:   "roots",
	Short: "List the declared content roots",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		roots := client.Roots()
		if len(roots) == 0 {
			info("No content roots configured.")
			return nil
		}

		fmt.Printf("%-16s %-7s %-36s %s\n", "ID", "KIND", "DOCUMENT", "PLATFORMS")
		for _, r := range roots {
			fmt.Printf("%-16s %-7s %-36s %s\n", r.ID, r.Kind, r.Document, r.Platforms)
			if len(r.ExtraRoots) > 0 {
				detail("extra roots: %s", strings.Join(r.ExtraRoots, ", "))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rootsCmd)
}
