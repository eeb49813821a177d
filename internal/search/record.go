// Package search loads cached gist files into memory and filters and ranks
// them against user queries.
package search

import (
	"fmt"
	"strings"
	"time"

	"gistfinder/internal/store"
)

// Record is one cached gist file with its code.
type Record struct {
	// ID is unique per record. It is the file URL, since a gist id is shared
	// by every file in the gist.
	ID          string
	GistID      string
	FileName    string
	Description string
	Language    string
	FileURL     string
	Size        int64
	UpdatedAt   time.Time
	Code        string
	// Text is file name, description and code joined by newlines; it backs
	// the general text search.
	Text string
}

// FileSource provides the joined list/code rows.
type FileSource interface {
	JoinedFiles() ([]store.JoinedFile, error)
}

// Load returns every cached file that has code, ordered by file name
// (case-insensitive) then description. Files whose code was never fetched are
// left out.
func Load(src FileSource) ([]Record, error) {
	files, err := src.JoinedFiles()
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	records := make([]Record, 0, len(files))
	for _, f := range files {
		records = append(records, Record{
			ID:          f.FileURL,
			GistID:      f.GistID,
			FileName:    f.FileName,
			Description: f.Description,
			Language:    f.Language,
			FileURL:     f.FileURL,
			Size:        f.Size,
			UpdatedAt:   f.UpdatedAt,
			Code:        f.Code,
			Text:        strings.Join([]string{f.FileName, f.Description, f.Code}, "\n"),
		})
	}
	return records, nil
}
