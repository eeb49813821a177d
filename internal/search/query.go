package search

import (
	"regexp"
	"strings"
)

// Filters selects and orders records. Empty fields are skipped. Stages run in
// field order: Glob, Text, Desc, File, Code, Symbol.
type Filters struct {
	// Glob is a case-sensitive shell pattern matched against the file name.
	Glob   string
	Text   string
	Desc   string
	File   string
	Code   string
	Symbol string
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return f == Filters{}
}

var (
	directiveRe     = regexp.MustCompile(`\\([gtdfcs])([^\\]+)`)
	trailingSlashRe = regexp.MustCompile(`\\$`)
)

// ParseQuery turns the search bar text into filters.
//
//	\g<glob>   file name glob
//	\t<expr>   file name, description and code
//	\d<expr>   description
//	\f<expr>   file name
//	\c<expr>   code
//	\s<expr>   symbol names
//
// Several directives may be combined. Text without any directive is a \t
// query. Text ending in a lone backslash yields no filters, since the user is
// still typing a directive.
func ParseQuery(q string) Filters {
	var f Filters
	if strings.TrimSpace(q) == "" || trailingSlashRe.MatchString(q) {
		return f
	}

	matches := directiveRe.FindAllStringSubmatch(q, -1)
	if len(matches) == 0 {
		f.Text = strings.TrimSpace(q)
		return f
	}
	for _, m := range matches {
		expr := strings.TrimSpace(m[2])
		switch m[1] {
		case "g":
			f.Glob = expr
		case "t":
			f.Text = expr
		case "d":
			f.Desc = expr
		case "f":
			f.File = expr
		case "c":
			f.Code = expr
		case "s":
			f.Symbol = expr
		}
	}
	return f
}
