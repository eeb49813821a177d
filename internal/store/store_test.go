package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func entry(name, desc, url string) GistFileEntry {
	return GistFileEntry{
		GistID:      "g-" + name,
		FileName:    name,
		Description: desc,
		Language:    "Python",
		FileURL:     url,
		Size:        42,
		CreatedAt:   time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt:   time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func Test_SQLiteStore_ReplaceListRewritesTable(t *testing.T) {
	st := openTestStore(t)

	if err := st.ReplaceList([]GistFileEntry{entry("a.py", "", "u/a"), entry("b.py", "", "u/b")}); err != nil {
		t.Fatal(err)
	}
	if err := st.ReplaceList([]GistFileEntry{entry("c.py", "", "u/c")}); err != nil {
		t.Fatal(err)
	}

	got, err := st.ListEntries()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].FileURL != "u/c" {
		t.Fatalf("expected only u/c, got %+v", got)
	}
	if !got[0].UpdatedAt.Equal(time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("updated_at not round-tripped: %v", got[0].UpdatedAt)
	}
}

func Test_SQLiteStore_ReplaceListRejectsDuplicateURLs(t *testing.T) {
	st := openTestStore(t)
	if err := st.ReplaceList([]GistFileEntry{entry("keep.py", "", "u/keep")}); err != nil {
		t.Fatal(err)
	}

	err := st.ReplaceList([]GistFileEntry{entry("a.py", "", "u/dup"), entry("b.py", "", "u/dup")})
	if err == nil {
		t.Fatal("expected unique index violation")
	}

	// The failed replace rolls back to the previous table.
	got, err := st.ListEntries()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].FileURL != "u/keep" {
		t.Errorf("expected previous list to survive, got %+v", got)
	}
}

func Test_SQLiteStore_CodeInsertAndDelete(t *testing.T) {
	st := openTestStore(t)

	for _, u := range []string{"u/b", "u/a", "u/c"} {
		if err := st.InsertCode(CodeBlob{FileURL: u, Code: "x"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.DeleteCode([]string{"u/b"}); err != nil {
		t.Fatal(err)
	}

	urls, err := st.CodeURLs()
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 2 || urls[0] != "u/a" || urls[1] != "u/c" {
		t.Errorf("unexpected code urls %v", urls)
	}
}

func Test_SQLiteStore_JoinedFilesSkipsMissingCodeAndSorts(t *testing.T) {
	st := openTestStore(t)

	err := st.ReplaceList([]GistFileEntry{
		entry("beta.py", "z", "u/1"),
		entry("Alpha.py", "b", "u/2"),
		entry("alpha.py", "a", "u/3"),
		entry("nocode.py", "", "u/4"),
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range []string{"u/1", "u/2", "u/3"} {
		if err := st.InsertCode(CodeBlob{FileURL: u, Code: "code " + u}); err != nil {
			t.Fatal(err)
		}
	}

	files, err := st.JoinedFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 joined files, got %d", len(files))
	}
	want := []string{"u/3", "u/2", "u/1"}
	for i, f := range files {
		if f.FileURL != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], f.FileURL)
		}
	}
	if files[0].Code != "code u/3" {
		t.Errorf("unexpected code %q", files[0].Code)
	}
}

func Test_SQLiteStore_LastSync(t *testing.T) {
	st := openTestStore(t)

	if _, err := st.LastSync(); !errors.Is(err, ErrNotSynced) {
		t.Fatalf("expected ErrNotSynced, got %v", err)
	}

	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	if err := st.SetMeta(MetaLastSync, now.Format(time.RFC3339)); err != nil {
		t.Fatal(err)
	}
	got, err := st.LastSync()
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(now) {
		t.Errorf("expected %v, got %v", now, got)
	}
}

func Test_Remove_MissingFileIsNotAnError(t *testing.T) {
	if err := Remove(filepath.Join(t.TempDir(), "nothing.sqlite")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
