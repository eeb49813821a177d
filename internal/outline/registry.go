package outline

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// LanguageSpec defines the tree-sitter grammar and query for a language.
type LanguageSpec struct {
	Name     string
	Language *sitter.Language
	// Query is a tree-sitter S-expression query that captures top-level
	// definitions. It must use @symbol for the outer node and @name for the
	// identifier.
	Query      string
	Extensions []string
	// Aliases are GitHub linguist language names ("Python", "Go") that map
	// to this spec when the file name has no known extension.
	Aliases []string
}

// Registry maps file extensions and language names to language specs.
type Registry struct {
	mu    sync.RWMutex
	exts  map[string]*LanguageSpec // extension (without dot) → spec
	names map[string]*LanguageSpec // lower-case language name → spec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		exts:  make(map[string]*LanguageSpec),
		names: make(map[string]*LanguageSpec),
	}
}

// Register adds a language spec.
func (r *Registry) Register(spec *LanguageSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[strings.ToLower(spec.Name)] = spec
	for _, a := range spec.Aliases {
		r.names[strings.ToLower(a)] = spec
	}
	for _, ext := range spec.Extensions {
		r.exts[ext] = spec
	}
}

// Lookup returns the spec for a file, trying the extension first and the
// language name second. It returns nil when neither is registered.
func (r *Registry) Lookup(fileName, language string) *LanguageSpec {
	ext := strings.TrimPrefix(filepath.Ext(fileName), ".")
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.exts[strings.ToLower(ext)]; ok {
		return s
	}
	return r.names[strings.ToLower(language)]
}
