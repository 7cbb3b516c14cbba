package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Manage saved selections of content roots",
	Long: `A batch is a named, persisted selection of content roots that can be built
together. At least one batch always exists; a 'Default' batch is created when
the store is empty.`,
}

var batchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List batches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		batches, err := client.Batches().List()
		if err != nil {
			return err
		}
		fmt.Printf("%-20s %-6s %s\n", "NAME", "STOP", "ROOTS")
		for _, b := range batches {
			stop := "no"
			if b.StopOnFailure {
				stop = "yes"
			}
			fmt.Printf("%-20s %-6s %s\n", b.Name, stop, strings.Join(b.Selection.IDs(), ", "))
		}
		return nil
	},
}

var batchCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an empty batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		b, err := client.Batches().Create(args[0])
		if err != nil {
			return err
		}
		info("Created batch %s", b.Name)
		return nil
	},
}

var batchRenameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a batch",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Batches().Rename(args[0], args[1]); err != nil {
			return err
		}
		info("Renamed batch %s to %s", args[0], args[1])
		return nil
	},
}

var batchDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a batch (the last batch cannot be deleted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Batches().Delete(args[0]); err != nil {
			return err
		}
		info("Deleted batch %s", args[0])
		return nil
	},
}

var batchSelectCmd = &cobra.Command{
	Use:   "select <name> [root-id...]",
	Short: "Replace the content roots a batch selects",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ids := args[1:]
		for _, id := range ids {
			if _, ok := client.Config().Root(id); !ok {
				return fmt.Errorf("unknown content root '%s'", id)
			}
		}
		if err := client.Batches().SetSelection(args[0], ids); err != nil {
			return err
		}
		info("Batch %s selects %d root(s)", args[0], len(ids))
		return nil
	},
}

var batchStopCmd = &cobra.Command{
	Use:   "stop-on-failure <name> <true|false>",
	Short: "Set whether a batch build stops at the first failure",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stop, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("invalid value '%s': %w", args[1], err)
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Batches().SetStopOnFailure(args[0], stop); err != nil {
			return err
		}
		info("Batch %s stop-on-failure: %t", args[0], stop)
		return nil
	},
}

var batchBuildCmd = &cobra.Command{
	Use:   "build <name>",
	Short: "Build every content root a batch selects",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		opts, err := buildOptions()
		if err != nil {
			return err
		}

		ctx, stop := interruptible(cmd.Context())
		defer stop()

		out, batchErr := client.BuildBatch(ctx, args[0], opts)
		if out == nil {
			return batchErr
		}
		failed := 0
		for _, r := range out.Results {
			if err := printReport(r.Root, r.Report, r.Err); err != nil {
				errorf("%s: %v", r.Root, err)
				failed++
			}
		}
		info("")
		info("Batch %s: %d of %d roots built.", out.Batch, len(out.Results)-failed, len(out.Results))
		if failed > 0 {
			return fmt.Errorf("%d root(s) failed", failed)
		}
		return nil
	},
}

func init() {
	batchBuildCmd.Flags().StringSliceVarP(&buildPlatforms, "platform", "p", nil, "platform to build (repeatable, comma separated)")
	batchBuildCmd.Flags().BoolVar(&buildYes, "yes", false, "save pending changes without asking")

	batchCmd.AddCommand(batchListCmd, batchCreateCmd, batchRenameCmd, batchDeleteCmd, batchSelectCmd, batchStopCmd, batchBuildCmd)
	rootCmd.AddCommand(batchCmd)
}
