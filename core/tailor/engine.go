// Package tailor runs complete patch passes: load a container, label its
// sections, match edit requests to Blocks, rewrite them and serialize the
// result.
//
// An Engine holds only read-only configuration and may be shared by any
// number of goroutines. Every pass works on its own Document.
package tailor

import (
	"context"
	"time"

	"github.com/FocuswithJustin/resumetailor/core/docx"
	"github.com/FocuswithJustin/resumetailor/core/edits"
	"github.com/FocuswithJustin/resumetailor/core/liveedit"
	"github.com/FocuswithJustin/resumetailor/core/matcher"
	"github.com/FocuswithJustin/resumetailor/core/projection"
	"github.com/FocuswithJustin/resumetailor/core/rewrite"
	"github.com/FocuswithJustin/resumetailor/core/sections"
	"github.com/FocuswithJustin/resumetailor/internal/logging"
)

// Options configures an Engine. The zero value uses the built-in
// dictionary and thresholds.
type Options struct {
	Dictionary *sections.Dictionary
	Matching   matcher.Options
}

// Engine is the immutable configuration shared by patch passes.
type Engine struct {
	dict    *sections.Dictionary
	matcher *matcher.Matcher
	writer  *rewrite.Writer
}

// NewEngine returns an Engine for opts.
func NewEngine(opts Options) *Engine {
	dict := opts.Dictionary
	if dict == nil {
		dict = sections.DefaultDictionary()
	}
	return &Engine{
		dict:    dict,
		matcher: matcher.New(opts.Matching),
		writer:  rewrite.NewWriter(),
	}
}

// Dictionary returns the header dictionary in use.
func (e *Engine) Dictionary() *sections.Dictionary {
	return e.dict
}

// Load decodes data and labels every Block.
func (e *Engine) Load(data []byte) (*docx.Document, error) {
	doc, err := docx.Load(data)
	if err != nil {
		return nil, err
	}
	sections.Label(doc, e.dict)
	return doc, nil
}

// Change records one applied rewrite. Its JSON form uses the synonym field
// names accepted by edits.Decode, so a change log can be replayed as edit
// requests.
type Change struct {
	Block   int          `json:"block"`
	Section docx.Section `json:"anchor_section,omitempty"`
	// Before and After are the full Block text around the rewrite.
	Before string `json:"original_paragraph_text"`
	After  string `json:"modified_paragraph_text"`
	// Request is the edit that produced the change.
	Request     edits.Request `json:"-"`
	Original    string        `json:"original"`
	Rewritten   string        `json:"rewritten"`
	Score       float64       `json:"score"`
	Phase       string        `json:"phase,omitempty"`
	Synthesized bool          `json:"synthesized,omitempty"`
	Diff        string        `json:"diff,omitempty"`
}

func newChange(b *docx.Block, req edits.Request, out rewrite.Outcome) Change {
	return Change{
		Block:       b.Index,
		Section:     b.Section,
		Before:      out.Before,
		After:       out.After,
		Request:     req,
		Original:    req.Before,
		Rewritten:   req.After,
		Synthesized: out.Synthesized,
		Diff:        liveedit.Delta(out.Before, out.After).Inline(),
	}
}

// Result is the outcome of one pass.
type Result struct {
	// Fingerprint identifies the input container.
	Fingerprint string
	// Output is the serialized container. It equals the input when nothing
	// was rewritten.
	Output  []byte
	Changes []Change
	Matched int
	Dropped int
}

// Requests returns the applied edits in the order they were applied.
func (r *Result) Requests() []edits.Request {
	out := make([]edits.Request, len(r.Changes))
	for i, c := range r.Changes {
		out[i] = c.Request
	}
	return out
}

// Patch runs one pass of reqs over the container in data. Unmatched
// requests are dropped and counted. Parse, serialize and invariant failures
// abort the pass with no output.
func (e *Engine) Patch(ctx context.Context, data []byte, reqs []edits.Request) (*Result, error) {
	start := time.Now()
	ctx = passContext(ctx)

	doc, err := e.Load(data)
	if err != nil {
		logging.ErrorContext(ctx, "pass_failed", "stage", "load", "error", err.Error())
		return nil, err
	}
	logging.PassStarted(ctx, doc.Fingerprint(), len(doc.Blocks), len(reqs))

	res, err := e.Apply(ctx, doc, reqs)
	if err != nil {
		logging.ErrorContext(ctx, "pass_failed", "stage", "rewrite", "error", err.Error())
		return nil, err
	}
	if res.Output, err = doc.Bytes(); err != nil {
		logging.ErrorContext(ctx, "pass_failed", "stage", "serialize", "error", err.Error())
		return nil, err
	}

	logging.PassFinished(ctx, res.Matched, res.Dropped, len(res.Changes), time.Since(start))
	return res, nil
}

// Apply matches reqs against a labeled doc and rewrites the matched Blocks
// in place. It does not serialize.
func (e *Engine) Apply(ctx context.Context, doc *docx.Document, reqs []edits.Request) (*Result, error) {
	m := e.matcher.Match(doc, reqs)
	res := &Result{
		Fingerprint: doc.Fingerprint(),
		Matched:     len(m.Matches),
		Dropped:     len(m.Dropped),
	}
	for _, d := range m.Dropped {
		logging.EditDropped(ctx, d.Index, d.Best)
	}
	for _, match := range m.Matches {
		b := doc.Blocks[match.Block]
		out, err := e.writer.Apply(b, match.Request.After)
		if err != nil {
			return nil, err
		}
		c := newChange(b, match.Request, out)
		c.Score = match.Score
		c.Phase = match.Phase.String()
		res.Changes = append(res.Changes, c)
	}
	return res, nil
}

// Projection holds both plain-text views of a document.
type Projection struct {
	Fingerprint string   `json:"fingerprint"`
	Bullets     []string `json:"bullets"`
	Lines       []string `json:"lines"`
}

// Project loads data and returns its bullet and full linearizations.
func (e *Engine) Project(data []byte) (*Projection, error) {
	doc, err := e.Load(data)
	if err != nil {
		return nil, err
	}
	return &Projection{
		Fingerprint: doc.Fingerprint(),
		Bullets:     projection.Bullets(doc),
		Lines:       projection.Linearize(doc),
	}, nil
}

// OutlineEntry is one section of a document outline.
type OutlineEntry struct {
	Section   docx.Section `json:"section"`
	Header    string       `json:"header,omitempty"`
	Start     int          `json:"start"`
	End       int          `json:"end"`
	Protected bool         `json:"protected,omitempty"`
}

// Outline lists the sections of data with their Block ranges. Blocks before
// the first header form an entry with an empty section.
func (e *Engine) Outline(data []byte) ([]OutlineEntry, error) {
	doc, err := e.Load(data)
	if err != nil {
		return nil, err
	}
	ranges := sections.Ranges(doc)
	out := make([]OutlineEntry, 0, len(ranges))
	for _, r := range ranges {
		entry := OutlineEntry{
			Section:   r.Section,
			Start:     r.Start,
			End:       r.End,
			Protected: e.dict.Protected(r.Section),
		}
		if first := doc.Blocks[r.Start]; first.Header {
			entry.Header = first.Text()
		}
		out = append(out, entry)
	}
	return out, nil
}

// passContext attaches a fresh pass ID unless ctx already carries one.
func passContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logging.GetPassID(ctx) != "" {
		return ctx
	}
	return logging.WithPassID(ctx, logging.NewPassID())
}
