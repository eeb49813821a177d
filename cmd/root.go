package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"gistfinder/internal/config"
	"gistfinder/internal/store"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	flagUser  string
	flagToken string
	flagSync  bool
	flagReset bool

	flagConfigDir string
	flagAPIURL    string
	flagLogLevel  string
	flagLogFile   string
)

// Resolved by PersistentPreRunE for every command.
var (
	paths    config.Paths
	creds    *config.CredentialStore
	logger   *slog.Logger
	closeLog = func() {}
)

var (
	errorText   = color.New(color.FgRed, color.Bold).SprintFunc()
	hintText    = color.New(color.FgYellow).SprintFunc()
	successText = color.New(color.FgGreen).SprintFunc()
	dimText     = color.New(color.Faint).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "gistfinder",
	Short: "Fuzzy search for your GitHub gists",
	Long: `gistfinder keeps a local copy of your GitHub gists and lets you search them.

Set your account once with --user and --token, run --sync to fetch your gists,
then run gistfinder with no arguments to browse them. Pressing Enter on a file
prints its code to stdout.`,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLog()
	},
	RunE: runRoot,
}

// Execute runs the CLI and exits non-zero on any error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(os.Stderr, err)
		closeLog()
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&flagUser, "user", "u", "", "set the GitHub user whose gists are synced")
	rootCmd.Flags().StringVarP(&flagToken, "token", "t", "", "set the GitHub token used for the gist API")
	rootCmd.Flags().BoolVarP(&flagSync, "sync", "s", false, "sync new and removed gists")
	rootCmd.Flags().BoolVarP(&flagReset, "reset", "r", false, "delete the local cache and sync everything again")

	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "config and cache directory (default ~/.gistfinder)")
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "GitHub API base URL (default https://api.github.com)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "log file, '-' for stderr (default <config-dir>/gistfinder.log)")
}

func setup(cmd *cobra.Command, args []string) error {
	if flagConfigDir != "" {
		paths = config.PathsFor(flagConfigDir)
	} else {
		p, err := config.DefaultPaths()
		if err != nil {
			return err
		}
		paths = p
	}
	if err := paths.EnsureDir(); err != nil {
		return err
	}

	logFile := flagLogFile
	if logFile == "" {
		logFile = paths.LogFile
	}
	logger, closeLog = setupLogger(flagLogLevel, logFile)
	creds = config.NewCredentialStore(paths.Credentials)

	logger.Debug("configuration resolved",
		"command", cmd.Name(),
		"dir", paths.Dir,
		"db", paths.DBFile,
	)
	return nil
}

func runRoot(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	saved := false
	if flagUser != "" {
		if err := creds.SetUser(flagUser); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s saved to %s\n", successText("✓"), config.KeyUser, creds.Path())
		saved = true
	}
	if flagToken != "" {
		if err := creds.SetToken(flagToken); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s saved to %s\n", successText("✓"), config.KeyToken, creds.Path())
		saved = true
	}

	switch {
	case flagReset:
		return runSync(cmd.Context(), out, true)
	case flagSync:
		return runSync(cmd.Context(), out, false)
	case saved:
		return nil
	}
	return runBrowse(out)
}

// reportError prints err in red followed by any remediation hint.
func reportError(w io.Writer, err error) {
	var cfgErr *config.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		fmt.Fprintf(w, "%s %s is not configured\n", errorText("Error:"), cfgErr.Key)
		fmt.Fprintln(w, hintText(cfgErr.Remediation))
	case errors.Is(err, store.ErrNotSynced):
		fmt.Fprintf(w, "%s gist cache has never been synced\n", errorText("Error:"))
		fmt.Fprintln(w, hintText("Run 'gistfinder --sync' first."))
	default:
		fmt.Fprintf(w, "%s %v\n", errorText("Error:"), err)
	}
}
