package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/FocuswithJustin/resumetailor/core/encoding"
	"github.com/FocuswithJustin/resumetailor/core/errors"
	"github.com/FocuswithJustin/resumetailor/core/xml"
)

// splice replaces part[start:end] with data. Insertions have start == end.
type splice struct {
	start int
	end   int
	data  []byte
	order int
}

// Bytes re-emits the container. With no modified run the loaded bytes are
// returned unchanged. Otherwise every part except the primary one is copied
// raw, compressed bytes included, and inside the primary part only the
// content of modified runs and the insertion points of new runs change.
func (d *Document) Bytes() ([]byte, error) {
	if !d.Modified() {
		return d.source, nil
	}

	part, err := d.patchedPart()
	if err != nil {
		return nil, err
	}
	if res := xml.Validate(bytes.TrimPrefix(part, utf8BOM)); !res.Valid {
		msg := "patched part is not well-formed"
		if len(res.Errors) > 0 {
			msg = fmt.Sprintf("%s: %s", msg, res.Errors[0].Message)
		}
		return nil, errors.NewSerialize(DocumentPart, fmt.Errorf("%s", msg))
	}

	out, err := d.rewriteContainer(part)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WriteFile serializes the document to path.
func (d *Document) WriteFile(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}

func (d *Document) patchedPart() ([]byte, error) {
	var splices []splice
	for _, b := range d.Blocks {
		var inserted []*Run
		for _, r := range b.Runs {
			switch {
			case r.synthesized:
				inserted = append(inserted, r)
			case r.dirty:
				splices = append(splices, r.replacement())
			}
		}
		if len(inserted) == 0 {
			continue
		}
		if b.bodyStart < 0 {
			sp, err := b.expandSelfClosing(d.part, inserted)
			if err != nil {
				return nil, err
			}
			splices = append(splices, sp)
			continue
		}
		for i, r := range inserted {
			splices = append(splices, splice{
				start: r.insertAt,
				end:   r.insertAt,
				data:  r.element(),
				order: i,
			})
		}
	}

	sort.SliceStable(splices, func(i, j int) bool {
		if splices[i].start != splices[j].start {
			return splices[i].start < splices[j].start
		}
		return splices[i].order < splices[j].order
	})

	var buf bytes.Buffer
	buf.Grow(len(d.part) + 256*len(splices))
	pos := 0
	for _, sp := range splices {
		if sp.start < pos || sp.end < sp.start || sp.end > len(d.part) {
			return nil, errors.NewSerialize(DocumentPart,
				errors.NewInvariant("disjoint-splices", "splice [%d,%d) overlaps offset %d", sp.start, sp.end, pos))
		}
		buf.Write(d.part[pos:sp.start])
		buf.Write(sp.data)
		pos = sp.end
	}
	buf.Write(d.part[pos:])
	return buf.Bytes(), nil
}

// replacement rewrites an existing run. Only the content after its run
// properties changes; a self-closing <w:r/> is expanded in place.
func (r *Run) replacement() splice {
	if !r.selfClosing {
		return splice{start: r.contentStart, end: r.contentEnd, data: runContent(r.prefix, r.text)}
	}
	var b bytes.Buffer
	b.Write(openTag(r.open))
	b.Write(runContent(r.prefix, r.text))
	b.WriteString("</" + qualify(r.prefix, "r") + ">")
	return splice{start: r.start, end: r.end, data: b.Bytes()}
}

// element renders a synthesized run with cloned run properties.
func (r *Run) element() []byte {
	var b bytes.Buffer
	b.WriteString("<" + qualify(r.prefix, "r") + ">")
	b.Write(r.props)
	b.Write(runContent(r.prefix, r.text))
	b.WriteString("</" + qualify(r.prefix, "r") + ">")
	return b.Bytes()
}

func (b *Block) expandSelfClosing(part []byte, runs []*Run) (splice, error) {
	if b.start < 0 || b.end > len(part) || b.start >= b.end {
		return splice{}, errors.NewSerialize(DocumentPart,
			errors.NewInvariant("paragraph-span", "block %d has no usable span", b.Index))
	}
	var buf bytes.Buffer
	buf.Write(openTag(part[b.start:b.end]))
	for _, r := range runs {
		buf.Write(r.element())
	}
	buf.WriteString("</" + qualify(b.prefix, "p") + ">")
	return splice{start: b.start, end: b.end, data: buf.Bytes()}, nil
}

// openTag turns `<w:r a="1"/>` into `<w:r a="1">`.
func openTag(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	s = strings.TrimSuffix(s, ">")
	s = strings.TrimRightFunc(s, func(r rune) bool { return r == '/' || r == ' ' || r == '\t' || r == '\n' || r == '\r' })
	return []byte(s + ">")
}

func qualify(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}

// runContent renders run text as WordprocessingML, mapping '\t' and '\n'
// back to tab and break elements.
func runContent(prefix, text string) []byte {
	text = encoding.SanitizeXMLText(text)
	var b bytes.Buffer
	t := qualify(prefix, "t")
	var seg strings.Builder
	flush := func() {
		if seg.Len() == 0 {
			return
		}
		b.WriteString("<" + t + ` xml:space="preserve">`)
		b.WriteString(encoding.EscapeXMLText(seg.String()))
		b.WriteString("</" + t + ">")
		seg.Reset()
	}
	for _, c := range text {
		switch c {
		case '\t':
			flush()
			b.WriteString("<" + qualify(prefix, "tab") + "/>")
		case '\n':
			flush()
			b.WriteString("<" + qualify(prefix, "br") + "/>")
		case '\r':
		default:
			seg.WriteRune(c)
		}
	}
	flush()
	return b.Bytes()
}

func (d *Document) rewriteContainer(part []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(d.source), int64(len(d.source)))
	if err != nil {
		return nil, errors.NewSerialize("", err)
	}

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, f := range zr.File {
		if f.Name == DocumentPart {
			fh := f.FileHeader
			fh.CRC32 = 0
			fh.CompressedSize64 = 0
			fh.UncompressedSize64 = 0
			w, err := zw.CreateHeader(&fh)
			if err != nil {
				return nil, errors.NewSerialize(f.Name, err)
			}
			if _, err := w.Write(part); err != nil {
				return nil, errors.NewSerialize(f.Name, err)
			}
			continue
		}

		fh := f.FileHeader
		w, err := zw.CreateRaw(&fh)
		if err != nil {
			return nil, errors.NewSerialize(f.Name, err)
		}
		rc, err := f.OpenRaw()
		if err != nil {
			return nil, errors.NewSerialize(f.Name, err)
		}
		if _, err := io.Copy(w, rc); err != nil {
			return nil, errors.NewSerialize(f.Name, errors.Wrap(err, "copy raw entry"))
		}
	}
	if zr.Comment != "" {
		if err := zw.SetComment(zr.Comment); err != nil {
			return nil, errors.NewSerialize("", err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, errors.NewSerialize("", err)
	}
	return out.Bytes(), nil
}

// Part returns the current primary part bytes with all pending run changes
// applied, without re-encoding the container.
func (d *Document) Part() ([]byte, error) {
	if !d.Modified() {
		return d.part, nil
	}
	return d.patchedPart()
}
