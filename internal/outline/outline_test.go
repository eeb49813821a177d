package outline_test

import (
	"testing"

	"gistfinder/internal/outline"
	"gistfinder/internal/outline/languages"
)

func newOutliner() *outline.Outliner {
	return outline.NewOutliner(languages.NewRegistry())
}

func Test_Outliner_GoTopLevelSymbols(t *testing.T) {
	src := `package main

type Server struct{}

func (s *Server) Start() {}

func main() {}
`
	syms, err := newOutliner().Outline("main.go", "Go", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	want := []outline.Symbol{
		{Name: "Server", Kind: "type", Line: 3},
		{Name: "Start", Kind: "method", Line: 5},
		{Name: "main", Kind: "func", Line: 7},
	}
	if len(syms) != len(want) {
		t.Fatalf("expected %d symbols, got %+v", len(want), syms)
	}
	for i := range want {
		if syms[i] != want[i] {
			t.Errorf("symbol %d: expected %+v, got %+v", i, want[i], syms[i])
		}
	}
}

func Test_Outliner_PythonKeepsOuterClass(t *testing.T) {
	src := `import os

class Loader:
    def load(self):
        pass

def helper():
    return 1
`
	syms, err := newOutliner().Outline("loader.py", "Python", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if got := outline.Names(syms); got != "Loader helper" {
		t.Errorf("expected 'Loader helper', got %q", got)
	}
}

func Test_Outliner_FallsBackToLanguageName(t *testing.T) {
	o := newOutliner()
	if !o.Supports("snippet", "Python") {
		t.Error("expected Python alias to resolve")
	}
	syms, err := o.Outline("snippet", "Python", []byte("def run():\n    pass\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(syms) != 1 || syms[0].Name != "run" {
		t.Errorf("unexpected symbols %+v", syms)
	}
}

func Test_Outliner_UnknownLanguageReturnsNothing(t *testing.T) {
	syms, err := newOutliner().Outline("notes.md", "Markdown", []byte("# title\n"))
	if err != nil {
		t.Fatal(err)
	}
	if syms != nil {
		t.Errorf("expected no symbols, got %+v", syms)
	}
}
