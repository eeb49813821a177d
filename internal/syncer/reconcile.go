package syncer

import (
	"context"
	"fmt"
	"path"
	"strings"

	"gistfinder/internal/store"
)

// SyncError is a failure while retrieving the gist list. Nothing has been
// written to the cache when it is returned.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync failed: %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// FetchFailure records a file whose content could not be downloaded. The file
// stays without code until a later sync succeeds.
type FetchFailure struct {
	FileURL  string
	FileName string
	Err      error
}

func (f FetchFailure) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", f.FileName, f.FileURL, f.Err)
}

// CodeResult is the outcome of ReconcileCode.
type CodeResult struct {
	Fetched  int
	Deleted  int
	Failures []FetchFailure
}

// excludedExt lists file extensions that are never cached. Keys are lower
// case and file names are lower-cased before the lookup, so "Report.IPYNB" is
// excluded as well as "report.ipynb".
var excludedExt = map[string]bool{
	".ipynb": true,
}

// FetchGistList pages through the user's gists and returns one entry per file,
// unique by file URL.
func (s *Syncer) FetchGistList(ctx context.Context) ([]store.GistFileEntry, error) {
	var all []store.GistFileEntry
	for page := 1; ; page++ {
		if page > MaxPages {
			s.logger.Warn("page limit reached, list may be incomplete", "pages", MaxPages)
			break
		}
		s.progress("Listing gists...", page, 0)

		p, err := s.remote.ListPage(ctx, s.config.User, page, PerPage)
		if err != nil {
			return nil, &SyncError{Op: fmt.Sprintf("list page %d", page), Err: err}
		}
		s.logger.Debug("gist page", "page", page, "gists", p.Gists, "files", len(p.Entries))
		if p.Gists == 0 {
			break
		}
		all = append(all, p.Entries...)
		if !p.Next {
			break
		}
	}
	return normalizeEntries(all), nil
}

// normalizeEntries drops excluded files and collapses duplicate file URLs.
// The last duplicate wins but keeps the position of the first.
func normalizeEntries(entries []store.GistFileEntry) []store.GistFileEntry {
	out := make([]store.GistFileEntry, 0, len(entries))
	pos := make(map[string]int, len(entries))
	for _, e := range entries {
		if excludedExt[strings.ToLower(path.Ext(e.FileName))] {
			continue
		}
		if i, ok := pos[e.FileURL]; ok {
			out[i] = e
			continue
		}
		pos[e.FileURL] = len(out)
		out = append(out, e)
	}
	return out
}

// ReconcileList replaces the list table with entries.
func (s *Syncer) ReconcileList(entries []store.GistFileEntry) error {
	if err := s.store.ReplaceList(entries); err != nil {
		return fmt.Errorf("replace list table: %w", err)
	}
	s.logger.Info("list table replaced", "files", len(entries))
	return nil
}

// ReconcileCode deletes code whose file left the list and downloads code for
// listed files that have none. A failed download is recorded and skipped.
func (s *Syncer) ReconcileCode(ctx context.Context, list []store.GistFileEntry, codeURLs []string) (CodeResult, error) {
	missing, stale := diff(list, codeURLs)

	var res CodeResult
	if err := s.store.DeleteCode(stale); err != nil {
		return res, fmt.Errorf("delete stale code: %w", err)
	}
	res.Deleted = len(stale)
	if len(stale) > 0 {
		s.logger.Info("stale code removed", "count", len(stale))
	}

	for i, e := range missing {
		s.progress("Fetching code...", i, len(missing))
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return res, err
			}
		}

		code, err := s.remote.FetchRaw(ctx, e.FileURL)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			f := FetchFailure{FileURL: e.FileURL, FileName: e.FileName, Err: err}
			s.logger.Warn("code fetch failed", "file", e.FileName, "url", e.FileURL, "error", err)
			res.Failures = append(res.Failures, f)
			continue
		}
		if err := s.store.InsertCode(store.CodeBlob{FileURL: e.FileURL, Code: code}); err != nil {
			return res, fmt.Errorf("store code %s: %w", e.FileURL, err)
		}
		res.Fetched++
	}
	s.progress("Fetching code...", len(missing), len(missing))
	return res, nil
}

// diff returns the listed entries without code (in list order) and the code
// URLs no longer listed.
func diff(list []store.GistFileEntry, codeURLs []string) (missing []store.GistFileEntry, stale []string) {
	listed := make(map[string]bool, len(list))
	for _, e := range list {
		listed[e.FileURL] = true
	}
	have := make(map[string]bool, len(codeURLs))
	for _, u := range codeURLs {
		have[u] = true
		if !listed[u] {
			stale = append(stale, u)
		}
	}
	for _, e := range list {
		if !have[e.FileURL] {
			missing = append(missing, e)
		}
	}
	return missing, stale
}
