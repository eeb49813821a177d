package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"gistfinder/internal/syncer"
)

// syncConfig builds the syncer configuration from the stored credentials.
func syncConfig() (syncer.Config, error) {
	c, err := creds.Require()
	if err != nil {
		return syncer.Config{}, err
	}
	return syncer.Config{
		DBPath:     paths.DBFile,
		User:       c.User,
		Token:      c.Token,
		APIURL:     flagAPIURL,
		FetchDelay: syncer.DefaultFetchDelay,
		Logger:     logger,
	}, nil
}

func runSync(ctx context.Context, out io.Writer, reset bool) error {
	cfg, err := syncConfig()
	if err != nil {
		return err
	}

	lastPhase := ""
	cfg.OnProgress = func(phase string, done, total int) {
		if phase != lastPhase {
			if lastPhase != "" {
				fmt.Fprintln(out)
			}
			lastPhase = phase
		}
		if total > 0 {
			fmt.Fprintf(out, "\r%s %d/%d", phase, done, total)
		} else {
			fmt.Fprintf(out, "\r%s", phase)
		}
	}

	s, err := syncer.New(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if reset {
		fmt.Fprintf(out, "Resetting cache for %s...\n", cfg.User)
	} else {
		fmt.Fprintf(out, "Syncing gists for %s...\n", cfg.User)
	}

	var stats *syncer.Stats
	if reset {
		stats, err = s.Reset(ctx)
	} else {
		stats, err = s.Sync(ctx)
	}
	if lastPhase != "" {
		fmt.Fprintln(out)
	}
	if err != nil {
		return err
	}

	printStats(out, stats)
	return nil
}

func printStats(out io.Writer, stats *syncer.Stats) {
	fmt.Fprintf(out, "\n%s Done in %s\n", successText("✓"), stats.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  Files:    %d listed\n", stats.Files)
	fmt.Fprintf(out, "  Code:     %d fetched, %d removed\n", stats.Fetched, stats.Deleted)
	if len(stats.Failures) == 0 {
		return
	}
	fmt.Fprintf(out, "  %s %d files could not be fetched and will be retried on the next sync:\n",
		hintText("⚠"), len(stats.Failures))
	for _, f := range stats.Failures {
		fmt.Fprintf(out, "    %s %s\n", f.FileName, dimText(f.Err.Error()))
	}
}
