// Package matcher binds edit requests to the Blocks they describe.
//
// Matching is greedy and order sensitive. Each request, in input order, is
// scored against every still unmatched, unprotected Block by token Jaccard
// similarity. List Blocks are tried first with a looser threshold; any Block
// is then tried with a strict one. A request that clears neither is dropped.
package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/FocuswithJustin/resumetailor/core/docx"
	"github.com/FocuswithJustin/resumetailor/core/edits"
)

// Default thresholds.
const (
	DefaultListThreshold     = 0.72
	DefaultFallbackThreshold = 0.92
)

var wordRE = regexp.MustCompile(`[A-Za-z][A-Za-z0-9+.-]{1,}`)

// Phase identifies which pass accepted a match.
type Phase int

const (
	// PhaseList considers list Blocks only.
	PhaseList Phase = iota + 1
	// PhaseFallback considers every Block.
	PhaseFallback
)

func (p Phase) String() string {
	switch p {
	case PhaseList:
		return "list"
	case PhaseFallback:
		return "fallback"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Options holds the similarity thresholds. Both are inclusive.
type Options struct {
	ListThreshold     float64
	FallbackThreshold float64
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{
		ListThreshold:     DefaultListThreshold,
		FallbackThreshold: DefaultFallbackThreshold,
	}
}

// Match binds one request to one Block.
type Match struct {
	Request edits.Request
	// Index is the request's position in the input.
	Index int
	// Block is the index of the target in Document.Blocks.
	Block int
	Score float64
	Phase Phase
}

// Drop records a request that matched nothing.
type Drop struct {
	Request edits.Request
	Index   int
	// Best is the highest score seen across both phases.
	Best float64
}

// Result is the outcome of one matching pass. Matches are in request order.
type Result struct {
	Matches []Match
	Dropped []Drop
}

// Matcher is safe for concurrent use; all pass state lives in Match.
type Matcher struct {
	opts Options
}

// New returns a matcher. Non-positive thresholds fall back to the defaults.
func New(opts Options) *Matcher {
	def := DefaultOptions()
	if opts.ListThreshold <= 0 {
		opts.ListThreshold = def.ListThreshold
	}
	if opts.FallbackThreshold <= 0 {
		opts.FallbackThreshold = def.FallbackThreshold
	}
	return &Matcher{opts: opts}
}

// Options returns the thresholds in effect.
func (m *Matcher) Options() Options {
	return m.opts
}

// Match runs one greedy pass of reqs over doc. doc must already be labeled;
// protected Blocks are never candidates. The document is not modified.
func (m *Matcher) Match(doc *docx.Document, reqs []edits.Request) Result {
	blockTokens := make([]map[string]struct{}, len(doc.Blocks))
	for i, b := range doc.Blocks {
		blockTokens[i] = Tokens(b.Text())
	}
	consumed := make([]bool, len(doc.Blocks))

	var res Result
	for i, req := range reqs {
		want := Tokens(req.Before)

		idx, score := m.best(doc, blockTokens, consumed, want, true)
		best := score
		phase := PhaseList
		if idx < 0 || score < m.opts.ListThreshold {
			idx, score = m.best(doc, blockTokens, consumed, want, false)
			if score > best {
				best = score
			}
			phase = PhaseFallback
			if idx >= 0 && score < m.opts.FallbackThreshold {
				idx = -1
			}
		}

		if idx < 0 {
			res.Dropped = append(res.Dropped, Drop{Request: req, Index: i, Best: best})
			continue
		}
		consumed[idx] = true
		res.Matches = append(res.Matches, Match{
			Request: req,
			Index:   i,
			Block:   idx,
			Score:   score,
			Phase:   phase,
		})
	}
	return res
}

// best returns the first highest-scoring candidate, or -1 when there is no
// candidate at all.
func (m *Matcher) best(doc *docx.Document, blockTokens []map[string]struct{}, consumed []bool, want map[string]struct{}, listOnly bool) (int, float64) {
	idx, score := -1, -1.0
	for i, b := range doc.Blocks {
		if consumed[i] || b.Protected || (listOnly && !b.IsList) {
			continue
		}
		if s := Jaccard(want, blockTokens[i]); s > score {
			idx, score = i, s
		}
	}
	if idx < 0 {
		return -1, 0
	}
	return idx, score
}

// Tokens returns the set of lower-cased words in the normalized text.
func Tokens(text string) map[string]struct{} {
	words := wordRE.FindAllString(strings.ToLower(edits.Normalize(text)), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Jaccard returns |a ∩ b| / |a ∪ b|. Two empty sets score 0.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for w := range small {
		if _, ok := large[w]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

// Similarity scores two texts the way Match does.
func Similarity(a, b string) float64 {
	return Jaccard(Tokens(a), Tokens(b))
}
