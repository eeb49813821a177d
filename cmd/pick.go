package cmd

import (
	"errors"
	"fmt"

	"gistfinder/internal/search"

	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"
)

var pickCmd = &cobra.Command{
	Use:   "pick [query]",
	Short: "Pick a gist file with a fuzzy finder and print its code",
	Long: `Open a one-shot fuzzy finder over the cached gist files and print the
chosen file's code to stdout. An optional query pre-ranks the candidates using
the browser search syntax.`,
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
		if len(recs) == 0 {
			return fmt.Errorf("no gist files match %q", query)
		}

		idx, err := fuzzyfinder.Find(
			recs,
			func(i int) string {
				if recs[i].Description == "" {
					return recs[i].FileName
				}
				return recs[i].FileName + "  " + oneLine(recs[i].Description, 80)
			},
			fuzzyfinder.WithPromptString("gist> "),
			fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
				if i < 0 {
					return ""
				}
				return fmt.Sprintf("%s\n%s\n\n%s", recs[i].FileName, recs[i].Description, recs[i].Code)
			}),
		)
		if err != nil {
			if errors.Is(err, fuzzyfinder.ErrAbort) {
				return nil
			}
			return fmt.Errorf("pick gist file: %w", err)
		}

		fmt.Fprint(cmd.OutOrStdout(), recs[idx].Code)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pickCmd)
}
