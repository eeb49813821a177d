package cmd

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"gistfinder/internal/search"
	"gistfinder/internal/syncer"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing gist search tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	engine, _, err := loadEngine()
	if err != nil {
		return err
	}

	tools := &gistTools{engine: engine, reload: func() (*search.Engine, error) {
		e, _, err := loadEngine()
		return e, err
	}}

	s := mcpserver.NewMCPServer("gistfinder", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(searchGistsTool(), tools.search)
	s.AddTool(getGistFileTool(), tools.getFile)
	s.AddTool(listGistsTool(), tools.list)
	s.AddTool(syncGistsTool(), tools.sync)

	logger.Info("mcp server started", "files", engine.Len())
	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func searchGistsTool() mcp.Tool {
	return mcp.NewTool("search_gists",
		mcp.WithDescription(`Fuzzy search the user's cached GitHub gist files. Plain text matches file names, descriptions and code. Directives narrow the search: \g<glob> file name glob, \d<text> description, \f<text> file name, \c<text> code, \s<text> symbol names. Returns the best matching files with their code.`),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search text, optionally with directives"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of files to return (default 5)"),
		),
	)
}

func getGistFileTool() mcp.Tool {
	return mcp.NewTool("get_gist_file",
		mcp.WithDescription("Get the code, metadata and symbol outline of one cached gist file."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Raw file URL as returned by list_gists, or an exact file name"),
		),
	)
}

func listGistsTool() mcp.Tool {
	return mcp.NewTool("list_gists",
		mcp.WithDescription("List all cached gist files with their language, size and description."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("language",
			mcp.Description("Optional language filter (e.g. 'go', 'python'). Case-insensitive."),
		),
	)
}

func syncGistsTool() mcp.Tool {
	return mcp.NewTool("sync_gists",
		mcp.WithDescription("Sync the local cache with GitHub: fetch new gist files and drop removed ones."),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{
			ReadOnlyHint:    mcp.ToBoolPtr(false),
			DestructiveHint: mcp.ToBoolPtr(false),
			IdempotentHint:  mcp.ToBoolPtr(true),
			OpenWorldHint:   mcp.ToBoolPtr(true),
		}),
	)
}

// --- Handlers ---

type gistTools struct {
	mu     sync.RWMutex
	engine *search.Engine
	reload func() (*search.Engine, error)

	// syncing allows one sync_gists call at a time; the cache has a single
	// writer.
	syncing sync.Mutex
}

func (t *gistTools) current() *search.Engine {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.engine
}

func (t *gistTools) search(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	k := req.GetInt("k", 5)
	if k <= 0 {
		k = 5
	}

	recs, err := t.current().Ranked(search.ParseQuery(query))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(recs) > k {
		recs = recs[:k]
	}
	return mcp.NewToolResultText(formatSearchResults(query, recs)), nil
}

func (t *gistTools) getFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file := req.GetString("file", "")
	if file == "" {
		return mcp.NewToolResultError("file is required"), nil
	}

	engine := t.current()
	rec, ok := engine.Lookup(file)
	if !ok {
		for _, r := range engine.Records() {
			if r.FileName == file {
				rec, ok = r, true
				break
			}
		}
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("gist file %q not found, call list_gists to see available files", file)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", rec.FileName)
	if rec.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", rec.Description)
	}
	fmt.Fprintf(&sb, "**Language:** %s  \n**Size:** %d bytes  \n**Gist:** %s  \n**URL:** %s\n\n",
		rec.Language, rec.Size, rec.GistID, rec.FileURL)
	if syms := engine.Symbols(rec); len(syms) > 0 {
		sb.WriteString("**Symbols:**\n\n")
		for _, s := range syms {
			fmt.Fprintf(&sb, "- %s `%s` (line %d)\n", s.Kind, s.Name, s.Line)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "```%s\n%s\n```\n", strings.ToLower(rec.Language), strings.TrimRight(rec.Code, "\n"))
	return mcp.NewToolResultText(sb.String()), nil
}

func (t *gistTools) list(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	langFilter := strings.ToLower(req.GetString("language", ""))

	var filtered []search.Record
	for _, r := range t.current().Records() {
		if langFilter == "" || strings.ToLower(r.Language) == langFilter {
			filtered = append(filtered, r)
		}
	}

	var sb strings.Builder
	if langFilter != "" {
		fmt.Fprintf(&sb, "## Gist files (%d, language: %s)\n\n", len(filtered), langFilter)
	} else {
		fmt.Fprintf(&sb, "## Gist files (%d)\n\n", len(filtered))
	}
	for _, r := range filtered {
		desc := oneLine(r.Description, 120)
		if desc == "" {
			desc = "(no description)"
		}
		fmt.Fprintf(&sb, "- **%s** (%s, %d bytes): %s\n  %s\n", r.FileName, r.Language, r.Size, desc, r.FileURL)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (t *gistTools) sync(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !t.syncing.TryLock() {
		return mcp.NewToolResultError("a sync is already running, try again when it has finished"), nil
	}
	defer t.syncing.Unlock()

	cfg, err := syncConfig()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s, err := syncer.New(cfg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stats, err := s.Sync(ctx)
	s.Close()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	engine, err := t.reload()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reload cache: %v", err)), nil
	}
	t.mu.Lock()
	t.engine = engine
	t.mu.Unlock()

	text := fmt.Sprintf("Sync complete: %d files listed, %d fetched, %d removed.", stats.Files, stats.Fetched, stats.Deleted)
	if n := len(stats.Failures); n > 0 {
		text += fmt.Sprintf(" %d files could not be fetched.", n)
	}
	return mcp.NewToolResultText(text), nil
}

// --- Formatting helpers ---

func formatSearchResults(query string, recs []search.Record) string {
	if len(recs) == 0 {
		return fmt.Sprintf("No gist files found for query: %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search results for %q (%d files)\n\n", query, len(recs))

	for i, r := range recs {
		fmt.Fprintf(&sb, "### Result %d: `%s`\n\n", i+1, r.FileName)
		fmt.Fprintf(&sb, "**Description:** %s  \n**Language:** %s  \n**URL:** %s\n\n",
			r.Description, r.Language, r.FileURL)
		fmt.Fprintf(&sb, "```%s\n%s\n```\n\n", strings.ToLower(r.Language), strings.TrimRight(r.Code, "\n"))
	}

	return sb.String()
}
