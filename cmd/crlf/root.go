package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/PaddyThePaddy/crlf/internal/cli"
	"github.com/PaddyThePaddy/crlf/internal/cli/config"
	"github.com/PaddyThePaddy/crlf/pkg/converter"
)

var (
	// These are set during build time using -ldflags
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

// validateArgs requires an action and allows one optional pattern.
func validateArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.RangeArgs(1, 2)(cmd, args); err != nil {
		return err
	}
	_, err := converter.ParseAction(args[0])
	return err
}

// newRootCmd builds the crlf command with its flags.
func newRootCmd() *cobra.Command {
	var cfgFile, profileName string

	validActions := make([]string, 0, len(converter.Actions))
	for _, a := range converter.Actions {
		validActions = append(validActions, string(a))
	}

	cmd := &cobra.Command{
		Use:   "crlf <measure|set-crlf|set-lf> [pattern]",
		Short: "Measures and converts CRLF/LF line endings.",
		Long: `crlf reports the line endings of the files matching a glob pattern and can
rewrite them to use only CRLF or only LF.

  measure   print "<C|L|X>, crlf: N, lf: M, <path>" for every file
  set-crlf  rewrite every line ending to CRLF
  set-lf    rewrite every line ending to LF

The pattern defaults to "**/*" and is resolved against the directory given
with -C. With -g the candidate files come from git instead of a directory walk,
so ignored and binary files are left out.`,
		Example: `  crlf measure
  crlf measure "**/*.go"
  crlf set-lf -g "*.sh"
  crlf set-crlf -C ./win --dry-run "**/*.bat"`,
		Version:   versionString(),
		ValidArgs: validActions,
		Args:      validateArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Arguments are valid past this point; run errors don't need usage.
			cmd.SilenceUsage = true

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			opts, logger, err := config.LoadAndValidate(cfgFile, profileName, version, args, cmd.Flags())
			if err != nil {
				return err
			}
			return cli.Run(ctx, opts, logger, cli.Streams{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()})
		},
	}
	cmd.SetVersionTemplate(`{{.Name}} version {{.Version}}` + "\n")

	// Configuration
	cmd.Flags().StringVar(&cfgFile, "config", "", "Configuration file path (default is search ., $HOME/.config/crlf/, $HOME/.crlf/)")
	cmd.Flags().StringVar(&profileName, "profile", "", "Name of configuration profile to use")
	cmd.Flags().BoolP("verbose", "v", converter.DefaultVerbose, "Enable verbose (debug) logging output (disables TUI)")

	// Selection
	cmd.Flags().BoolP("git-file", "g", false, "List candidate files with git (tracked and untracked, not ignored, text only)")
	cmd.Flags().StringP("dir", "C", "", "Directory the pattern is resolved against (default is the working directory)")
	cmd.Flags().StringArray("ignore", []string{}, "Glob patterns for files/directories to ignore (can be specified multiple times)")
	cmd.Flags().Bool("skip-vendor", converter.DefaultSkipVendor, "Skip vendored and generated files")
	cmd.Flags().String("binary-mode", string(converter.DefaultBinaryMode), `Mode for binary files ("skip", "process", "error")`)

	// Behavior
	cmd.Flags().Bool("dry-run", converter.DefaultDryRun, "Report what would be converted without writing files")
	cmd.Flags().String("on-error", string(converter.DefaultOnErrorMode), `Behavior on file errors ("continue" or "stop")`)
	cmd.Flags().String("output-format", string(converter.DefaultOutputFormat), `Result format on stdout ("text", "json", "yaml")`)
	cmd.Flags().Bool("tui", converter.DefaultTuiEnabled, "Show the interactive Terminal UI when stderr is a terminal")
	cmd.Flags().Bool("no-tui", false, "Disable the Terminal UI even if enabled in configuration")

	// Performance & Caching
	cmd.Flags().Int("concurrency", converter.DefaultConcurrency, "Number of parallel workers (0 for auto-detect CPU cores)")
	cmd.Flags().Bool("cache", converter.DefaultCacheEnabled, "Reuse measurements of unchanged files between measure runs")
	cmd.Flags().String("cache-file", "", "Cache file path (default is .crlf.cache in the input directory)")
	cmd.Flags().String("cache-format", converter.DefaultCacheFormat, `Cache file format ("gob" or "json")`)

	return cmd
}

// Execute runs the crlf command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
