package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Show the active target environment",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		state, err := client.Environment()
		if err != nil {
			return err
		}
		active := string(state.Active)
		if active == "" {
			active = "(none)"
		}
		fmt.Printf("active target:  %s\n", active)
		fmt.Printf("backends:       %s\n", strings.Join(state.GraphicsBackends, ", "))
		for _, name := range state.FeatureNames() {
			fmt.Printf("  %s = %s\n", name, state.Features[name])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(envCmd)
}
