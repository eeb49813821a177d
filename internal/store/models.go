package store

import "time"

// GistFileEntry is one file of one gist as listed by the GitHub API.
type GistFileEntry struct {
	GistID      string
	FileName    string
	Description string
	Language    string
	FileURL     string
	Size        int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CodeBlob is the raw content fetched from a file URL.
type CodeBlob struct {
	FileURL string
	Code    string
}

// JoinedFile is a list entry together with its fetched code.
type JoinedFile struct {
	GistFileEntry
	Code string
}
