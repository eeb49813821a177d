package search

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Scorer rates how well target matches query, from 0 (unrelated) to 100
// (identical after normalization).
type Scorer interface {
	Score(query, target string) int
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(query, target string) int

func (f ScorerFunc) Score(query, target string) int { return f(query, target) }

// PreparedScorer is a Scorer whose inputs can be normalized ahead of time.
// The engine prepares each record field once and reuses it for every query.
type PreparedScorer interface {
	Scorer
	Prepare(s string) string
	ScorePrepared(query, target string) int
}

// WRatio picks the best of several Levenshtein-based similarities depending on
// how different the two lengths are. Partial matches against a much longer
// target are scaled down so that a close full match still wins.
type WRatio struct{}

func (w WRatio) Score(query, target string) int {
	return w.ScorePrepared(normalize(query), normalize(target))
}

// Prepare normalizes s for ScorePrepared.
func (WRatio) Prepare(s string) string {
	return normalize(s)
}

// ScorePrepared scores two strings that have already been through Prepare.
func (WRatio) ScorePrepared(q, t string) int {
	if q == "" || t == "" {
		return 0
	}

	lq, lt := utf8.RuneCountInString(q), utf8.RuneCountInString(t)
	lenRatio := float64(max(lq, lt)) / float64(min(lq, lt))

	if lenRatio < 1.5 {
		return percent(max(ratio(q, t), 0.95*tokenSortRatio(q, t)))
	}

	scale := 0.9
	if lenRatio > 8 {
		scale = 0.6
	}
	shorter, longer := q, t
	if lq > lt {
		shorter, longer = t, q
	}

	var best float64
	if lenRatio <= 8 {
		best = ratio(q, t)
	}
	partial := partialRatio(shorter, longer)
	if partial == 1 {
		// tokenPartialRatio is weighted below 1 and cannot beat a substring hit.
		return percent(max(best, scale))
	}
	best = max(best,
		partial*scale,
		tokenPartialRatio(shorter, longer)*0.95*scale,
	)
	return percent(best)
}

func percent(r float64) int {
	return int(math.Round(100 * r))
}

// normalize lower-cases s, turns every non letter/digit into a space and
// collapses runs of spaces.
func normalize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// ratio is 1 - edit distance / longer length.
func ratio(a, b string) float64 {
	n := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if n == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(n)
}

func tokenSortRatio(a, b string) float64 {
	return ratio(sortedTokens(a), sortedTokens(b))
}

func sortedTokens(s string) string {
	toks := strings.Fields(s)
	sort.Strings(toks)
	return strings.Join(toks, " ")
}

// partialRatio is the best ratio of shorter against equally long windows of
// longer that start on a word boundary. A substring match scores 1.
func partialRatio(shorter, longer string) float64 {
	if strings.Contains(longer, shorter) {
		return 1
	}
	s := []rune(shorter)
	l := []rune(longer)
	var best float64
	for i := 0; i < len(l); i++ {
		if i > 0 && l[i-1] != ' ' {
			continue
		}
		end := min(i+len(s), len(l))
		if r := ratio(shorter, string(l[i:end])); r > best {
			best = r
			if best == 1 {
				break
			}
		}
	}
	return best
}

// tokenPartialRatio averages, over the words of shorter, the best match each
// word has among the distinct words of longer.
func tokenPartialRatio(shorter, longer string) float64 {
	qs := strings.Fields(shorter)
	if len(qs) == 0 {
		return 0
	}
	seen := make(map[string]bool)
	var ts []string
	for _, w := range strings.Fields(longer) {
		if !seen[w] {
			seen[w] = true
			ts = append(ts, w)
		}
	}

	var total float64
	for _, q := range qs {
		var best float64
		for _, w := range ts {
			var r float64
			if strings.Contains(w, q) {
				r = 1
			} else {
				r = ratio(q, w)
			}
			if r > best {
				best = r
				if best == 1 {
					break
				}
			}
		}
		total += best
	}
	return total / float64(len(qs))
}
