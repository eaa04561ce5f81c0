package tailor

import (
	"context"
	"strings"
	"time"

	"github.com/FocuswithJustin/resumetailor/core/edits"
	"github.com/FocuswithJustin/resumetailor/core/errors"
	"github.com/FocuswithJustin/resumetailor/core/liveedit"
	"github.com/FocuswithJustin/resumetailor/core/rewrite"
	"github.com/FocuswithJustin/resumetailor/internal/logging"
)

// Live is a rendered, editable view of a document together with the
// container it was rendered from.
type Live struct {
	// Base is the container the session was rendered from: the input after
	// any automatic patching.
	Base    []byte
	Session *liveedit.Session
	// Auto is the automatic pass, nil when no requests were given.
	Auto *Result
}

// LiveSession applies auto to data first, then renders the result. The
// snapshot is taken after the automatic pass, so the session's export
// contains only edits made afterwards.
func (e *Engine) LiveSession(ctx context.Context, data []byte, auto []edits.Request) (*Live, error) {
	live := &Live{Base: data}
	if len(auto) > 0 {
		res, err := e.Patch(ctx, data, auto)
		if err != nil {
			return nil, err
		}
		live.Base = res.Output
		live.Auto = res
	}

	doc, err := e.Load(live.Base)
	if err != nil {
		return nil, err
	}
	live.Session = liveedit.Render(doc)
	return live, nil
}

// ExportSession writes the edits recorded in s into base, the container s
// was rendered from. Each edit goes to the Block it was made on; the
// matcher is not consulted. Edits to protected Blocks, and edits that
// change the text of a hyperlink or of the runs after it, are dropped.
func (e *Engine) ExportSession(ctx context.Context, base []byte, s *liveedit.Session) (*Result, error) {
	start := time.Now()
	ctx = passContext(ctx)

	doc, err := e.Load(base)
	if err != nil {
		return nil, err
	}
	if doc.Fingerprint() != s.Fingerprint() {
		return nil, errors.NewValidation("session", "rendered from a different container")
	}

	changes := s.Changes()
	logging.PassStarted(ctx, doc.Fingerprint(), len(doc.Blocks), len(changes), "mode", "live")

	res := &Result{Fingerprint: doc.Fingerprint()}
	for _, c := range changes {
		if c.Block < 0 || c.Block >= len(doc.Blocks) {
			return nil, errors.NewInvariant("block-index", "session block %d out of range", c.Block)
		}
		b := doc.Blocks[c.Block]
		if b.Protected {
			res.Dropped++
			logging.EditDropped(ctx, c.Block, 0, "reason", "protected")
			continue
		}
		// The rendered text includes the Block's leading marker and the
		// text of its hyperlink and trailing runs. The writer keeps both.
		after, ok := rewrite.SplitTail(c.Request.After, rewrite.Tail(b))
		if !ok {
			res.Dropped++
			logging.EditDropped(ctx, c.Block, 0, "reason", "link-text-changed")
			continue
		}
		if rewrite.Lead(b) != "" {
			after = strings.TrimPrefix(after, rewrite.MarkerPrefix(after))
		}
		out, err := e.writer.Apply(b, after)
		if err != nil {
			return nil, err
		}
		ch := newChange(b, c.Request, out)
		ch.Score = 1
		res.Changes = append(res.Changes, ch)
		res.Matched++
	}

	if res.Output, err = doc.Bytes(); err != nil {
		return nil, err
	}
	logging.PassFinished(ctx, res.Matched, res.Dropped, len(res.Changes), time.Since(start), "mode", "live")
	return res, nil
}
