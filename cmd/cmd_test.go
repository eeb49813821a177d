package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gistfinder/internal/config"
	"gistfinder/internal/search"
	"gistfinder/internal/store"

	"github.com/mark3labs/mcp-go/mcp"
)

// execute runs the root command with args. Package-level flag variables keep
// their values between runs, so they are reset first.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	flagUser, flagToken = "", ""
	flagSync, flagReset = false, false
	flagConfigDir, flagAPIURL, flagLogLevel, flagLogFile = "", "", "info", ""
	flagOutput, flagLimit = "table", 0

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func newGitHub(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/users/alice/gists", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			w.Write([]byte("[]"))
			return
		}
		fmt.Fprintf(w, `[
  {"id": "g1", "description": "helper", "created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-01-02T00:00:00Z",
   "files": {"foo.py": {"filename": "foo.py", "language": "Python", "raw_url": "%[1]s/raw/foo.py", "size": 27}}},
  {"id": "g2", "description": "testing utility", "created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-01-03T00:00:00Z",
   "files": {"bar_test.py": {"filename": "bar_test.py", "language": "Python", "raw_url": "%[1]s/raw/bar_test.py", "size": 30}}}
]`, srv.URL)
	})
	mux.HandleFunc("/raw/foo.py", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("def helper():\n    return 1\n"))
	})
	mux.HandleFunc("/raw/bar_test.py", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("def test_bar():\n    assert True\n"))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func clearEnv(t *testing.T) {
	t.Setenv(config.KeyUser, "")
	t.Setenv(config.KeyToken, "")
}

func Test_Root_ListBeforeSyncFails(t *testing.T) {
	clearEnv(t)
	_, err := execute(t, "list", "--config-dir", t.TempDir())
	if !errors.Is(err, store.ErrNotSynced) {
		t.Fatalf("expected ErrNotSynced, got %v", err)
	}
}

func Test_Root_SyncWithoutCredentialsFails(t *testing.T) {
	clearEnv(t)
	_, err := execute(t, "--config-dir", t.TempDir(), "--sync")
	var cfgErr *config.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Key != config.KeyUser {
		t.Errorf("expected missing %s, got %s", config.KeyUser, cfgErr.Key)
	}
}

func Test_Root_SetCredentialsThenSyncAndList(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	srv := newGitHub(t)

	out, err := execute(t, "--config-dir", dir, "--user", "alice", "--token", "tok")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, config.KeyUser) || !strings.Contains(out, config.KeyToken) {
		t.Errorf("expected both keys reported, got %q", out)
	}

	out, err = execute(t, "--config-dir", dir, "--api-url", srv.URL, "--sync")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "2 listed") || !strings.Contains(out, "2 fetched") {
		t.Errorf("unexpected sync output %q", out)
	}

	out, err = execute(t, "--config-dir", dir, "list", "-o", "json", "test")
	if err != nil {
		t.Fatal(err)
	}
	var items []listItem
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(items) != 2 || items[0].File != "bar_test.py" {
		t.Errorf("expected bar_test.py ranked first, got %+v", items)
	}

	out, err = execute(t, "--config-dir", dir, "list", `\gbar*`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "bar_test.py") || strings.Contains(out, "foo.py") {
		t.Errorf("glob should only keep bar_test.py, got %q", out)
	}

	out, err = execute(t, "--config-dir", dir, "--api-url", srv.URL, "--reset")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "2 fetched") {
		t.Errorf("reset should refetch everything, got %q", out)
	}
}

func sampleRecords() []search.Record {
	return []search.Record{
		{ID: "u1", FileName: "foo.py", Description: "helper", Language: "Python", FileURL: "u1", Size: 27,
			Code: "def helper():\n    return 1\n", Text: "foo.py\nhelper\ndef helper():\n    return 1\n"},
		{ID: "u2", FileName: "bar_test.py", Description: "testing utility", Language: "Python", FileURL: "u2", Size: 30,
			Code: "def test_bar():\n    assert True\n", Text: "bar_test.py\ntesting utility\ndef test_bar():\n    assert True\n"},
	}
}

func Test_WriteRecords_Formats(t *testing.T) {
	recs := sampleRecords()

	var buf bytes.Buffer
	if err := writeRecords(&buf, "yaml", recs); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "file: foo.py") {
		t.Errorf("unexpected yaml:\n%s", buf.String())
	}

	buf.Reset()
	if err := writeRecords(&buf, "table", recs); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "FILE") {
		t.Errorf("unexpected table:\n%s", buf.String())
	}

	if err := writeRecords(&buf, "xml", recs); err == nil {
		t.Error("expected error for unknown format")
	}
}

func Test_ReportError_ShowsRemediation(t *testing.T) {
	var buf bytes.Buffer
	reportError(&buf, &config.ConfigError{Key: config.KeyToken, Remediation: "Run 'gistfinder --token <token>' to set it."})
	if !strings.Contains(buf.String(), "GIST_TOKEN is not configured") || !strings.Contains(buf.String(), "--token") {
		t.Errorf("unexpected output %q", buf.String())
	}

	buf.Reset()
	reportError(&buf, fmt.Errorf("load: %w", store.ErrNotSynced))
	if !strings.Contains(buf.String(), "gistfinder --sync") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func toolRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content %T", res.Content[0])
	}
	return text.Text
}

func Test_GistTools_SearchAndGet(t *testing.T) {
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	tools := &gistTools{engine: search.NewEngine(sampleRecords(), search.WithOutliner(newOutliner()))}
	ctx := context.Background()

	res, err := tools.search(ctx, toolRequest(map[string]any{"query": "test", "k": 1}))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "bar_test.py") || strings.Contains(text, "foo.py") {
		t.Errorf("expected only bar_test.py, got:\n%s", text)
	}

	res, err = tools.getFile(ctx, toolRequest(map[string]any{"file": "foo.py"}))
	if err != nil {
		t.Fatal(err)
	}
	text = resultText(t, res)
	if !strings.Contains(text, "func `helper`") || !strings.Contains(text, "return 1") {
		t.Errorf("expected outline and code, got:\n%s", text)
	}

	res, err = tools.getFile(ctx, toolRequest(map[string]any{"file": "missing.go"}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected error result for unknown file")
	}
}

func Test_GistTools_ListFiltersLanguage(t *testing.T) {
	recs := append(sampleRecords(), search.Record{ID: "u3", FileName: "main.go", Language: "Go", FileURL: "u3"})
	tools := &gistTools{engine: search.NewEngine(recs)}

	res, err := tools.list(context.Background(), toolRequest(map[string]any{"language": "go"}))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "Gist files (1, language: go)") || !strings.Contains(text, "main.go") {
		t.Errorf("unexpected listing:\n%s", text)
	}
}

func Test_GistTools_RejectsConcurrentSync(t *testing.T) {
	tools := &gistTools{engine: search.NewEngine(sampleRecords())}
	tools.syncing.Lock()
	defer tools.syncing.Unlock()

	res, err := tools.sync(context.Background(), toolRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "already running") {
		t.Errorf("expected a rejection while another sync holds the cache, got %+v", res)
	}
}
