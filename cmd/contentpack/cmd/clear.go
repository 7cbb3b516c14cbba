package cmd

import (
	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear <root-id>",
	Short: "Release every asset from a content root's bundles",
	Long: `Clears the bundle affiliation of every asset assigned to one of the content
root's per-platform bundles, so the next build of any root may claim them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		n, err := client.Release(args[0])
		if err != nil {
			return err
		}
		info("Released %d asset(s) from %s bundles.", n, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
}
