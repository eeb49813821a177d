// Package github talks to the GitHub REST API: it lists a user's gists page by
// page and downloads raw file contents.
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/xeipuuv/gojsonschema"

	"gistfinder/internal/store"
)

// DefaultBaseURL is the public GitHub API endpoint.
const DefaultBaseURL = "https://api.github.com"

const defaultTimeout = 30 * time.Second

// maxRawBytes caps a single raw file download.
const maxRawBytes = 10 << 20

// ErrTooLarge is returned by FetchRaw when a file exceeds the download cap.
// Nothing is cached for such a file.
var ErrTooLarge = errors.New("raw file too large")

var nextLinkRe = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// pageSchema is the minimum shape a "list gists" page must have before fields
// are extracted from it.
const pageSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "files"],
    "properties": {
      "id": {"type": "string"},
      "description": {"type": ["string", "null"]},
      "created_at": {"type": "string"},
      "updated_at": {"type": "string"},
      "files": {
        "type": "object",
        "additionalProperties": {
          "type": "object",
          "required": ["filename", "raw_url"],
          "properties": {
            "filename": {"type": "string"},
            "raw_url": {"type": "string"},
            "language": {"type": ["string", "null"]},
            "size": {"type": "integer"}
          }
        }
      }
    }
  }
}`

var compiledPageSchema = mustSchema(pageSchema)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("compile page schema: %v", err))
	}
	return schema
}

// StatusError is returned for any non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s returned %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

// Page is one page of the "list gists for user" endpoint, flattened to one
// entry per file.
type Page struct {
	Entries []store.GistFileEntry
	// Gists is the number of gists on the page (before flattening).
	Gists int
	// Next reports whether the Link header points at another page.
	Next bool
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// Client is a minimal GitHub API client.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client. Empty options fall back to the public API and a
// client with a 30s timeout.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: base, token: opts.Token, http: hc}
}

// ListPage fetches page number page (1-based) of user's gists.
func (c *Client) ListPage(ctx context.Context, user string, page, perPage int) (Page, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))
	u := fmt.Sprintf("%s/users/%s/gists?%s", c.baseURL, url.PathEscape(user), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("list gists: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("read gist page: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Page{}, &StatusError{URL: u, StatusCode: resp.StatusCode, Body: snippet(body)}
	}

	p, err := ParsePage(body)
	if err != nil {
		return Page{}, err
	}
	p.Next = nextLinkRe.MatchString(resp.Header.Get("Link"))
	return p, nil
}

// ParsePage validates a raw list page and flattens it into entries.
func ParsePage(body []byte) (Page, error) {
	result, err := compiledPageSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return Page{}, fmt.Errorf("decode gist page: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return Page{}, fmt.Errorf("unexpected gist page shape: %s", strings.Join(msgs, "; "))
	}

	var (
		p       Page
		itemErr error
	)
	_, err = jsonparser.ArrayEach(body, func(gist []byte, _ jsonparser.ValueType, _ int, err error) {
		if itemErr != nil {
			return
		}
		if err != nil {
			itemErr = err
			return
		}
		p.Gists++

		var parent store.GistFileEntry
		if err := extract(gist, gistFields, &parent); err != nil {
			itemErr = err
			return
		}
		itemErr = jsonparser.ObjectEach(gist, func(_ []byte, file []byte, _ jsonparser.ValueType, _ int) error {
			e := parent
			if err := extract(file, fileFields, &e); err != nil {
				return err
			}
			p.Entries = append(p.Entries, e)
			return nil
		}, "files")
	})
	if err != nil {
		return Page{}, fmt.Errorf("decode gist page: %w", err)
	}
	if itemErr != nil {
		return Page{}, fmt.Errorf("decode gist %d: %w", p.Gists, itemErr)
	}
	return p, nil
}

// FetchRaw downloads the content behind a raw file URL. Raw URLs are
// content-addressed and need no credentials, so none are sent.
func (c *Client) FetchRaw(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Body: snippet(body)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRawBytes+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rawURL, err)
	}
	if len(body) > maxRawBytes {
		return "", fmt.Errorf("fetch %s: %w (limit %d bytes)", rawURL, ErrTooLarge, maxRawBytes)
	}
	return string(body), nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
