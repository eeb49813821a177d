package search

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"gistfinder/internal/outline"
)

// Engine filters and ranks a fixed set of records. It is safe for concurrent
// use; the records are never modified.
type Engine struct {
	records  []Record
	scorer   Scorer
	outliner *outline.Outliner

	mu      sync.Mutex
	symbols map[string][]outline.Symbol

	prepMu   sync.Mutex
	prepared map[preparedKey]string
}

type preparedKey struct {
	id    string
	field string
}

// Option configures an Engine.
type Option func(*Engine)

// WithScorer replaces the default WRatio scorer.
func WithScorer(s Scorer) Option {
	return func(e *Engine) { e.scorer = s }
}

// WithOutliner enables the symbol stage and Symbols.
func WithOutliner(o *outline.Outliner) Option {
	return func(e *Engine) { e.outliner = o }
}

// NewEngine creates an engine over records, which must already be in display
// order.
func NewEngine(records []Record, opts ...Option) *Engine {
	e := &Engine{
		records:  records,
		scorer:   WRatio{},
		symbols:  make(map[string][]outline.Symbol),
		prepared: make(map[preparedKey]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Records returns all records in load order.
func (e *Engine) Records() []Record {
	return slices.Clone(e.records)
}

// Len returns the number of records.
func (e *Engine) Len() int {
	return len(e.records)
}

// Lookup returns the record with the given ID.
func (e *Engine) Lookup(id string) (Record, bool) {
	for _, r := range e.records {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

type stage struct {
	name  string
	expr  string
	field func(Record) string
}

// Ranked applies f and returns the surviving records. The glob stage keeps
// input order; every other stage reorders all of its input by descending
// score, keeping input order among equal scores. An empty input
// short-circuits the remaining stages.
func (e *Engine) Ranked(f Filters) ([]Record, error) {
	recs := slices.Clone(e.records)

	if f.Glob != "" && len(recs) > 0 {
		var err error
		if recs, err = filterGlob(recs, f.Glob); err != nil {
			return nil, err
		}
	}

	stages := []stage{
		{"text", f.Text, func(r Record) string { return r.Text }},
		{"desc", f.Desc, func(r Record) string { return r.Description }},
		{"file", f.File, func(r Record) string { return r.FileName }},
		{"code", f.Code, func(r Record) string { return r.Code }},
		{"symbol", f.Symbol, func(r Record) string { return outline.Names(e.Symbols(r)) }},
	}
	for _, s := range stages {
		if s.expr == "" || len(recs) == 0 {
			continue
		}
		recs = e.rank(recs, s)
	}
	return recs, nil
}

func (e *Engine) rank(recs []Record, st stage) []Record {
	type scored struct {
		rec   Record
		score int
	}
	score := func(r Record) int { return e.scorer.Score(st.expr, st.field(r)) }
	if ps, ok := e.scorer.(PreparedScorer); ok {
		q := ps.Prepare(st.expr)
		score = func(r Record) int { return ps.ScorePrepared(q, e.preparedField(ps, r, st)) }
	}

	s := make([]scored, len(recs))
	for i, r := range recs {
		s[i] = scored{rec: r, score: score(r)}
	}
	sort.SliceStable(s, func(i, j int) bool { return s[i].score > s[j].score })

	out := make([]Record, len(s))
	for i := range s {
		out[i] = s[i].rec
	}
	return out
}

// preparedField returns the prepared form of one record field, computing it on
// first use.
func (e *Engine) preparedField(ps PreparedScorer, r Record, st stage) string {
	k := preparedKey{id: r.ID, field: st.name}
	e.prepMu.Lock()
	v, ok := e.prepared[k]
	e.prepMu.Unlock()
	if ok {
		return v
	}
	v = ps.Prepare(st.field(r))
	e.prepMu.Lock()
	e.prepared[k] = v
	e.prepMu.Unlock()
	return v
}

func filterGlob(recs []Record, pattern string) ([]Record, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}
	var out []Record
	for _, r := range recs {
		matched, err := doublestar.Match(pattern, r.FileName)
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		if matched {
			out = append(out, r)
		}
	}
	return out, nil
}

// Symbols returns the outline of a record, parsing it on first use. Without
// an outliner it returns nil.
func (e *Engine) Symbols(r Record) []outline.Symbol {
	if e.outliner == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if syms, ok := e.symbols[r.ID]; ok {
		return syms
	}
	syms, err := e.outliner.Outline(r.FileName, r.Language, []byte(r.Code))
	if err != nil {
		syms = nil
	}
	e.symbols[r.ID] = syms
	return syms
}
