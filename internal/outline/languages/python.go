package languages

import (
	"gistfinder/internal/outline"

	"github.com/smacker/go-tree-sitter/python"
)

func RegisterPython(r *outline.Registry) {
	r.Register(&outline.LanguageSpec{
		Name:     "python",
		Language: python.GetLanguage(),
		Query: `
			(function_definition name: (identifier) @name) @symbol
			(class_definition name: (identifier) @name) @symbol
		`,
		Extensions: []string{"py", "pyi"},
		Aliases:    []string{"Python"},
	})
}
