package languages

import (
	"gistfinder/internal/outline"

	"github.com/smacker/go-tree-sitter/golang"
)

func RegisterGo(r *outline.Registry) {
	r.Register(&outline.LanguageSpec{
		Name:     "go",
		Language: golang.GetLanguage(),
		Query: `
			(function_declaration name: (identifier) @name) @symbol
			(method_declaration name: (field_identifier) @name) @symbol
			(type_declaration (type_spec name: (type_identifier) @name)) @symbol
		`,
		Extensions: []string{"go"},
		Aliases:    []string{"Go", "golang"},
	})
}
