package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gistfinder/internal/search"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	flagOutput string
	flagLimit  int
)

var listCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "Print cached gist files ranked against a query",
	Long: `Print cached gist files, ranked against an optional query.

The query uses the same syntax as the browser search bar: plain text searches
file names, descriptions and code; \g<glob> \d<desc> \f<file> \c<code> and
\s<symbol> narrow the search.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, err := loadEngine()
		if err != nil {
			return err
		}
		var query string
		if len(args) == 1 {
			query = args[0]
		}
		recs, err := engine.Ranked(search.ParseQuery(query))
		if err != nil {
			return err
		}
		if flagLimit > 0 && len(recs) > flagLimit {
			recs = recs[:flagLimit]
		}
		return writeRecords(cmd.OutOrStdout(), flagOutput, recs)
	},
}

func init() {
	listCmd.Flags().StringVarP(&flagOutput, "output", "o", "table", "output format: table, json, yaml")
	listCmd.Flags().IntVarP(&flagLimit, "limit", "n", 0, "maximum number of files to print (0 for all)")
	rootCmd.AddCommand(listCmd)
}

// listItem is the serialized form of a record. Code is left out; use pick or
// the browser to get it.
type listItem struct {
	File        string    `json:"file" yaml:"file"`
	Description string    `json:"description" yaml:"description"`
	Language    string    `json:"language,omitempty" yaml:"language,omitempty"`
	Size        int64     `json:"size" yaml:"size"`
	GistID      string    `json:"gist_id" yaml:"gist_id"`
	URL         string    `json:"url" yaml:"url"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

func toItems(recs []search.Record) []listItem {
	items := make([]listItem, len(recs))
	for i, r := range recs {
		items[i] = listItem{
			File:        r.FileName,
			Description: r.Description,
			Language:    r.Language,
			Size:        r.Size,
			GistID:      r.GistID,
			URL:         r.FileURL,
			UpdatedAt:   r.UpdatedAt,
		}
	}
	return items
}

func writeRecords(w io.Writer, format string, recs []search.Record) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(toItems(recs))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(toItems(recs)); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FILE\tLANGUAGE\tSIZE\tDESCRIPTION")
		for _, r := range recs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.FileName, r.Language, r.Size, oneLine(r.Description, 60))
		}
		return tw.Flush()
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
}

func oneLine(s string, limit int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > limit {
		return string(r[:limit]) + "..."
	}
	return s
}
