// Package outline lists the top-level definitions in a source file using
// tree-sitter grammars.
package outline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// maxSourceBytes skips parsing of very large files.
const maxSourceBytes = 1 << 20

// Symbol is one definition found in a file.
type Symbol struct {
	Name string
	Kind string
	Line int
}

// Outliner parses source files and extracts their symbols.
type Outliner struct {
	registry *Registry

	mu      sync.Mutex
	queries map[*LanguageSpec]*sitter.Query
}

// NewOutliner creates an outliner backed by the given registry.
func NewOutliner(r *Registry) *Outliner {
	return &Outliner{registry: r, queries: make(map[*LanguageSpec]*sitter.Query)}
}

// Supports reports whether a grammar is registered for the file.
func (o *Outliner) Supports(fileName, language string) bool {
	return o.registry.Lookup(fileName, language) != nil
}

// Outline parses src and returns its symbols in source order. Files without a
// registered grammar return nil.
func (o *Outliner) Outline(fileName, language string, src []byte) ([]Symbol, error) {
	spec := o.registry.Lookup(fileName, language)
	if spec == nil || len(src) == 0 || len(src) > maxSourceBytes {
		return nil, nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(spec.Language)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", fileName, err)
	}
	defer tree.Close()

	q, err := o.query(spec)
	if err != nil {
		return nil, err
	}

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	var captures []capture
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		var symNode *sitter.Node
		var name string
		for _, c := range m.Captures {
			switch q.CaptureNameForId(c.Index) {
			case "symbol":
				symNode = c.Node
			case "name":
				name = c.Node.Content(src)
			}
		}
		if symNode == nil || name == "" {
			continue
		}
		captures = append(captures, capture{
			name:      name,
			kind:      kindOf(symNode.Type()),
			line:      int(symNode.StartPoint().Row) + 1,
			startByte: symNode.StartByte(),
			endByte:   symNode.EndByte(),
		})
	}

	captures = dedup(captures)
	symbols := make([]Symbol, len(captures))
	for i, c := range captures {
		symbols[i] = Symbol{Name: c.name, Kind: c.kind, Line: c.line}
	}
	return symbols, nil
}

// Names joins the symbol names with spaces.
func Names(symbols []Symbol) string {
	names := make([]string, len(symbols))
	for i, s := range symbols {
		names[i] = s.Name
	}
	return strings.Join(names, " ")
}

func (o *Outliner) query(spec *LanguageSpec) (*sitter.Query, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if q, ok := o.queries[spec]; ok {
		return q, nil
	}
	q, err := sitter.NewQuery([]byte(spec.Query), spec.Language)
	if err != nil {
		return nil, fmt.Errorf("compile query for %s: %w", spec.Name, err)
	}
	o.queries[spec] = q
	return q, nil
}

// kindOf maps grammar node types to a short kind label.
func kindOf(nodeType string) string {
	switch {
	case strings.Contains(nodeType, "method"):
		return "method"
	case strings.Contains(nodeType, "class"):
		return "class"
	case strings.Contains(nodeType, "interface"), strings.Contains(nodeType, "type"):
		return "type"
	case strings.Contains(nodeType, "function"), strings.Contains(nodeType, "lexical"):
		return "func"
	default:
		return nodeType
	}
}

// dedup removes captures that are fully contained within a larger capture.
func dedup(caps []capture) []capture {
	if len(caps) <= 1 {
		return caps
	}
	// Sort by start byte ascending, then by size descending (larger first).
	sort.Slice(caps, func(i, j int) bool {
		if caps[i].startByte != caps[j].startByte {
			return caps[i].startByte < caps[j].startByte
		}
		return (caps[i].endByte - caps[i].startByte) > (caps[j].endByte - caps[j].startByte)
	})

	var result []capture
	var lastEnd uint32
	for _, c := range caps {
		if c.startByte >= lastEnd || lastEnd == 0 {
			result = append(result, c)
			if c.endByte > lastEnd {
				lastEnd = c.endByte
			}
		}
	}
	return result
}

type capture struct {
	name      string
	kind      string
	line      int
	startByte uint32
	endByte   uint32
}
