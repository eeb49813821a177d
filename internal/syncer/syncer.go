// Package syncer brings the local gist cache in line with the gists GitHub
// reports for a user.
package syncer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"gistfinder/internal/config"
	"gistfinder/internal/github"
	"gistfinder/internal/store"
)

const (
	// PerPage is the page size requested from the list endpoint.
	PerPage = 100
	// MaxPages bounds pagination in case the API keeps reporting a next page.
	MaxPages = 100
	// DefaultFetchDelay spaces out raw content downloads.
	DefaultFetchDelay = 100 * time.Millisecond
)

// Remote is the part of the GitHub API the syncer depends on.
type Remote interface {
	ListPage(ctx context.Context, user string, page, perPage int) (github.Page, error)
	FetchRaw(ctx context.Context, rawURL string) (string, error)
}

// ProgressFunc receives the current phase and, where known, a done/total count.
type ProgressFunc func(phase string, done, total int)

// Config holds the syncer configuration.
type Config struct {
	DBPath string
	User   string
	Token  string
	// APIURL overrides the GitHub API base URL.
	APIURL string
	// FetchDelay is the minimum spacing between raw downloads; 0 disables it.
	FetchDelay time.Duration
	// Remote replaces the GitHub client built from APIURL and Token.
	Remote     Remote
	Logger     *slog.Logger
	OnProgress ProgressFunc
}

// Stats reports sync results.
type Stats struct {
	Files    int
	Fetched  int
	Deleted  int
	Failures []FetchFailure
	Duration time.Duration
}

// Syncer is the public API for syncing the gist cache.
type Syncer struct {
	store   *store.SQLiteStore
	remote  Remote
	limiter *rate.Limiter
	logger  *slog.Logger
	config  Config
}

// New creates a Syncer. Credentials are checked before the database is touched.
func New(cfg Config) (*Syncer, error) {
	if err := (config.Credentials{User: cfg.User, Token: cfg.Token}).Validate(); err != nil {
		return nil, err
	}

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	remote := cfg.Remote
	if remote == nil {
		remote = github.NewClient(github.Options{BaseURL: cfg.APIURL, Token: cfg.Token})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var limiter *rate.Limiter
	if cfg.FetchDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.FetchDelay), 1)
	}

	return &Syncer{
		store:   s,
		remote:  remote,
		limiter: limiter,
		logger:  logger,
		config:  cfg,
	}, nil
}

// Sync fetches the gist list, rewrites the list table and fetches the code of
// files that are new since the last sync.
func (s *Syncer) Sync(ctx context.Context) (*Stats, error) {
	start := time.Now()
	s.logger.Info("sync started", "user", s.config.User, "db", s.config.DBPath)

	entries, err := s.FetchGistList(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.ReconcileList(entries); err != nil {
		return nil, err
	}

	listed, err := s.store.ListEntries()
	if err != nil {
		return nil, fmt.Errorf("read list table: %w", err)
	}
	codeURLs, err := s.store.CodeURLs()
	if err != nil {
		return nil, fmt.Errorf("read code table: %w", err)
	}
	res, err := s.ReconcileCode(ctx, listed, codeURLs)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetMeta(store.MetaLastSync, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("set meta: %w", err)
	}

	stats := &Stats{
		Files:    len(listed),
		Fetched:  res.Fetched,
		Deleted:  res.Deleted,
		Failures: res.Failures,
		Duration: time.Since(start),
	}
	s.logger.Info("sync complete",
		"files", stats.Files,
		"fetched", stats.Fetched,
		"deleted", stats.Deleted,
		"failures", len(stats.Failures),
		"duration", stats.Duration,
	)
	return stats, nil
}

// Reset deletes the cache database and syncs from scratch.
func (s *Syncer) Reset(ctx context.Context) (*Stats, error) {
	if err := s.store.Close(); err != nil {
		return nil, fmt.Errorf("close store: %w", err)
	}
	if err := store.Remove(s.config.DBPath); err != nil {
		return nil, err
	}
	s.logger.Info("cache removed", "db", s.config.DBPath)

	st, err := store.Open(s.config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s.store = st
	return s.Sync(ctx)
}

// Close releases resources.
func (s *Syncer) Close() error {
	return s.store.Close()
}

func (s *Syncer) progress(phase string, done, total int) {
	if s.config.OnProgress != nil {
		s.config.OnProgress(phase, done, total)
	}
}
