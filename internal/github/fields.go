package github

import (
	"fmt"
	"strconv"
	"time"

	"github.com/buger/jsonparser"

	"gistfinder/internal/store"
)

// fieldMapping binds one GistFileEntry field to a path inside a gist (or a
// gist file) object. apply receives the raw string value; null and absent
// values arrive as "".
type fieldMapping struct {
	name  string
	path  []string
	apply func(e *store.GistFileEntry, v string) error
}

// gistFields are resolved against each gist object of a list page.
var gistFields = []fieldMapping{
	{name: "gist_id", path: []string{"id"}, apply: func(e *store.GistFileEntry, v string) error {
		e.GistID = v
		return nil
	}},
	{name: "description", path: []string{"description"}, apply: func(e *store.GistFileEntry, v string) error {
		e.Description = v
		return nil
	}},
	{name: "created_at", path: []string{"created_at"}, apply: func(e *store.GistFileEntry, v string) (err error) {
		e.CreatedAt, err = parseTime(v)
		return err
	}},
	{name: "updated_at", path: []string{"updated_at"}, apply: func(e *store.GistFileEntry, v string) (err error) {
		e.UpdatedAt, err = parseTime(v)
		return err
	}},
}

// fileFields are resolved against each entry of a gist's "files" object.
var fileFields = []fieldMapping{
	{name: "file_name", path: []string{"filename"}, apply: func(e *store.GistFileEntry, v string) error {
		e.FileName = v
		return nil
	}},
	{name: "language", path: []string{"language"}, apply: func(e *store.GistFileEntry, v string) error {
		e.Language = v
		return nil
	}},
	{name: "file_url", path: []string{"raw_url"}, apply: func(e *store.GistFileEntry, v string) error {
		e.FileURL = v
		return nil
	}},
	{name: "size", path: []string{"size"}, apply: func(e *store.GistFileEntry, v string) (err error) {
		if v == "" {
			return nil
		}
		e.Size, err = strconv.ParseInt(v, 10, 64)
		return err
	}},
}

// extract resolves every mapping against data and applies it to e.
func extract(data []byte, mappings []fieldMapping, e *store.GistFileEntry) error {
	for _, m := range mappings {
		v, err := lookup(data, m.path...)
		if err != nil {
			return fmt.Errorf("field %s: %w", m.name, err)
		}
		if err := m.apply(e, v); err != nil {
			return fmt.Errorf("field %s: %w", m.name, err)
		}
	}
	return nil
}

// lookup returns the value at path as a string. Missing keys and JSON null
// yield "".
func lookup(data []byte, path ...string) (string, error) {
	value, typ, _, err := jsonparser.Get(data, path...)
	if err == jsonparser.KeyPathNotFoundError {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	switch typ {
	case jsonparser.Null, jsonparser.NotExist:
		return "", nil
	case jsonparser.String:
		return jsonparser.ParseString(value)
	default:
		return string(value), nil
	}
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}
