// Package liveedit tracks direct edits made on a rendered, editable view of
// a document and turns them back into edit requests.
//
// A Session is a snapshot: every Block gets a stable id and its normalized
// text is recorded as both original and current. Any automatic patching must
// happen before Render, so that Export reports only what a person changed.
package liveedit

import (
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/resumetailor/core/docx"
	"github.com/FocuswithJustin/resumetailor/core/edits"
	"github.com/FocuswithJustin/resumetailor/core/errors"
	"github.com/FocuswithJustin/resumetailor/core/rewrite"
)

// Namespace seeds the name-based Block ids.
var Namespace = uuid.MustParse("8a3f5d2e-61c4-5b0e-9f7a-2d4c8e1b6a93")

// BlockID returns the stable id of the Block at index in a container with
// the given fingerprint.
func BlockID(fingerprint string, index int) string {
	return uuid.NewSHA1(Namespace, []byte(fingerprint+"/"+strconv.Itoa(index))).String()
}

// Entry is the tracked state of one rendered Block.
type Entry struct {
	ID        string       `json:"id"`
	Block     int          `json:"block"`
	Original  string       `json:"original"`
	Current   string       `json:"current"`
	List      bool         `json:"list,omitempty"`
	Header    bool         `json:"header,omitempty"`
	Protected bool         `json:"protected,omitempty"`
	Section   docx.Section `json:"section,omitempty"`

	runs []span
	// tailAt is the first run the writer never touches.
	tailAt int
}

// span is the render-time view of one run.
type span struct {
	text string
	link string
	live bool
}

// Changed reports whether the Block was edited to a different non-empty
// text.
func (e Entry) Changed() bool {
	return e.Original != "" && e.Current != "" && e.Original != e.Current
}

// Change is one exported edit with the Block it came from.
type Change struct {
	ID      string
	Block   int
	Request edits.Request
}

// Session holds the snapshot of one rendered document. Updates may arrive
// from several goroutines; they are serialized internally.
type Session struct {
	mu          sync.RWMutex
	fingerprint string
	entries     []*Entry
	byID        map[string]*Entry
}

// Render snapshots doc. Call it after any automatic patching and before the
// first user edit.
func Render(doc *docx.Document) *Session {
	s := &Session{
		fingerprint: doc.Fingerprint(),
		entries:     make([]*Entry, 0, len(doc.Blocks)),
		byID:        make(map[string]*Entry, len(doc.Blocks)),
	}
	for _, b := range doc.Blocks {
		text := edits.Normalize(b.Text())
		e := &Entry{
			ID:        BlockID(s.fingerprint, b.Index),
			Block:     b.Index,
			Original:  text,
			Current:   text,
			List:      b.IsList,
			Header:    b.Header,
			Protected: b.Protected,
			Section:   b.Section,
		}
		start, n := rewrite.EditableSlice(b)
		e.tailAt = start + n
		for _, r := range b.Runs {
			sp := span{text: r.Text(), live: !r.Embedded}
			if r.Hyperlink {
				sp.link = r.Link
				if sp.link == "" {
					sp.link = "#"
				}
			}
			e.runs = append(e.runs, sp)
		}
		s.entries = append(s.entries, e)
		s.byID[e.ID] = e
	}
	return s
}

// Fingerprint returns the fingerprint of the rendered container.
func (s *Session) Fingerprint() string {
	return s.fingerprint
}

// Len returns the number of tracked Blocks.
func (s *Session) Len() int {
	return len(s.entries)
}

// Snapshot returns a copy of every entry in Block order.
func (s *Session) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = *e
		out[i].runs = nil
	}
	return out
}

// Entry returns a copy of the entry with the given id.
func (s *Session) Entry(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return Entry{}, false
	}
	c := *e
	c.runs = nil
	return c, true
}

// Update records a user edit of one Block. The text is normalized before it
// is stored.
func (s *Session) Update(id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return errors.NewNotFound("block", id)
	}
	e.Current = edits.Normalize(text)
	return nil
}

// Changes returns every edited Block in Block order. Blocks whose original
// or current text is empty are skipped.
func (s *Session) Changes() []Change {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Change
	for _, e := range s.entries {
		if !e.Changed() {
			continue
		}
		out = append(out, Change{
			ID:      e.ID,
			Block:   e.Block,
			Request: edits.Request{Before: e.Original, After: e.Current},
		})
	}
	return out
}

// Export returns the user's edits as requests in Block order.
func (s *Session) Export() []edits.Request {
	changes := s.Changes()
	out := make([]edits.Request, len(changes))
	for i, c := range changes {
		out[i] = c.Request
	}
	return out
}
