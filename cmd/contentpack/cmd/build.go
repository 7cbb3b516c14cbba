package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/bianoble/contentpack/internal/platform"
	"github.com/bianoble/contentpack/pkg/contentpack"
)

var (
	buildPlatforms     []string
	buildStopOnFailure bool
	buildYes           bool
)

var buildCmd = &cobra.Command{
	Use:   "build <root-id>",
	Short: "Build bundles for one content root",
	Long: `Collects the asset closure of the content root, assigns every asset to the
root's bundle for each requested platform, switches the active toolchain target,
and invokes the packager. Platforms are built in canonical order rather than
the order given. The previous target environment is restored when the build
ends, including after a failure or Ctrl-C.

Without --platform, every platform the root declares is built.`,
	Args: cobra.ExactArgs(1),
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

		report, err := client.Build(ctx, args[0], opts)
		return printReport(args[0], report, err)
	},
}

// buildOptions turns the build flags into library options.
func buildOptions() (contentpack.BuildOptions, error) {
	ps, err := parsePlatforms(buildPlatforms)
	if err != nil {
		return contentpack.BuildOptions{}, err
	}
	return contentpack.BuildOptions{
		Platforms:     ps,
		StopOnFailure: buildStopOnFailure,
		OnProgress: func(p platform.Platform, completed, total int) {
			detail("built %s (%d/%d)", p, completed, total)
		},
		ConfirmPersist: func(root contentpack.ContentRoot) bool {
			if buildYes {
				return true
			}
			return confirm(os.Stdin, fmt.Sprintf("%s has unsaved changes. Save before building?", root.DisplayName()))
		},
	}, nil
}

// printReport prints one line per platform and the summary. It returns an
// error when anything failed.
func printReport(rootID string, report *contentpack.Report, buildErr error) error {
	if report == nil {
		return buildErr
	}

	info("%s:", rootID)
	for _, r := range report.Succeeded {
		info("  ok    %-8s %s", r.Platform, r.OutputArtifactPath)
		detail("      digest %s", r.Digest)
	}
	for _, r := range report.Failed {
		errorf("%s: %s", r.Platform, r.ErrorDetail)
	}
	info("%s", report.Summary())

	if buildErr != nil {
		return buildErr
	}
	if n := len(report.Failed); n > 0 {
		return fmt.Errorf("%d platform(s) failed", n)
	}
	return nil
}

func init() {
	buildCmd.Flags().StringSliceVarP(&buildPlatforms, "platform", "p", nil, "platform to build (repeatable, comma separated)")
	buildCmd.Flags().BoolVar(&buildStopOnFailure, "stop-on-failure", false, "stop at the first failed platform")
	buildCmd.Flags().BoolVar(&buildYes, "yes", false, "save pending changes without asking")
	rootCmd.AddCommand(buildCmd)
}

// interruptible returns a context cancelled by Ctrl-C.
func interruptible(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt)
}
