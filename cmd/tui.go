package cmd

import (
	"fmt"
	"io"
	"time"

	"gistfinder/internal/outline"
	"gistfinder/internal/outline/languages"
	"gistfinder/internal/search"
	"gistfinder/internal/store"
	"gistfinder/internal/tui"
)

func newOutliner() *outline.Outliner {
	return outline.NewOutliner(languages.NewRegistry())
}

// loadEngine reads the cache into a search engine. It fails with
// store.ErrNotSynced until the first sync has completed.
func loadEngine() (*search.Engine, time.Time, error) {
	st, err := store.Open(paths.DBFile)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("open cache: %w", err)
	}
	defer st.Close()

	lastSync, err := st.LastSync()
	if err != nil {
		return nil, time.Time{}, err
	}
	records, err := search.Load(st)
	if err != nil {
		return nil, time.Time{}, err
	}
	logger.Debug("records loaded", "count", len(records), "last_sync", lastSync)
	return search.NewEngine(records, search.WithOutliner(newOutliner())), lastSync, nil
}

func checkSynced() error {
	st, err := store.Open(paths.DBFile)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer st.Close()
	_, err = st.LastSync()
	return err
}

func runBrowse(out io.Writer) error {
	if err := checkSynced(); err != nil {
		return err
	}

	// A sync started from the browser needs credentials; without them the
	// browser still works on the cached gists.
	syncCfg, err := syncConfig()
	if err != nil {
		logger.Debug("browser sync unavailable", "error", err)
	}

	rec, err := tui.Run(tui.Config{
		DBPath:   paths.DBFile,
		Sync:     syncCfg,
		Outliner: newOutliner(),
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	if rec != nil {
		fmt.Fprint(out, rec.Code)
	}
	return nil
}
