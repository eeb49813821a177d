// Package languages registers the tree-sitter grammars gistfinder can outline.
package languages

import "gistfinder/internal/outline"

// NewRegistry returns a registry with every bundled grammar registered.
func NewRegistry() *outline.Registry {
	r := outline.NewRegistry()
	RegisterGo(r)
	RegisterJavaScript(r)
	RegisterTypeScript(r)
	RegisterPython(r)
	return r
}
