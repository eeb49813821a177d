package languages

import (
	"gistfinder/internal/outline"

	"github.com/smacker/go-tree-sitter/javascript"
)

func RegisterJavaScript(r *outline.Registry) {
	r.Register(&outline.LanguageSpec{
		Name:     "javascript",
		Language: javascript.GetLanguage(),
		Query: `
			(function_declaration name: (identifier) @name) @symbol
			(class_declaration name: (identifier) @name) @symbol
			(method_definition name: (property_identifier) @name) @symbol
			(lexical_declaration (variable_declarator name: (identifier) @name value: (arrow_function))) @symbol
		`,
		Extensions: []string{"js", "jsx", "mjs", "cjs"},
		Aliases:    []string{"JavaScript", "JSX"},
	})
}
