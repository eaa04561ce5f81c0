package docx

import (
	"archive/zip"
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/resumetailor/core/errors"
	"github.com/FocuswithJustin/resumetailor/core/xml"
)

// DocumentPart is the primary text part of a WordprocessingML container.
const DocumentPart = "word/document.xml"

// MaxPartSize caps the decompressed size of any part the loader reads.
const MaxPartSize = 64 << 20

const formatName = "docx"

// Load decodes container bytes into a Document. Identical bytes always give
// an identical tree. Any failure is a *errors.ParseError.
func Load(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &errors.ParseError{Format: formatName, Message: "container is not a zip archive", Err: err}
	}

	part, err := readPart(zr, DocumentPart)
	if err != nil {
		return nil, &errors.ParseError{Format: formatName, Path: DocumentPart, Message: "primary part unreadable", Err: err}
	}
	if part == nil {
		return nil, errors.NewParse(formatName, DocumentPart, "primary part missing")
	}
	if len(bytes.TrimSpace(bytes.TrimPrefix(part, utf8BOM))) == 0 {
		return nil, errors.NewParse(formatName, DocumentPart, "primary part empty")
	}
	if res := xml.Validate(bytes.TrimPrefix(part, utf8BOM)); !res.Valid {
		msg := "malformed XML"
		if len(res.Errors) > 0 {
			msg = fmt.Sprintf("malformed XML at byte %d: %s", res.Errors[0].Offset, res.Errors[0].Message)
		}
		return nil, errors.NewParse(formatName, DocumentPart, msg)
	}

	doc := &Document{
		source: data,
		part:   part,
		links:  map[string]string{},
	}
	sum := blake3.Sum256(data)
	doc.fingerprint = hex.EncodeToString(sum[:])

	// Auxiliary parts only refine classification; a broken one is not fatal
	// for the pass, so it degrades to an empty table.
	if raw, err := readPart(zr, StylesPart); err == nil {
		if doc.styles, err = ParseStyles(raw); err != nil {
			doc.styles = nil
		}
	}
	if raw, err := readPart(zr, NumberingPart); err == nil {
		if doc.numbering, err = ParseNumbering(raw); err != nil {
			doc.numbering = nil
		}
	}
	if raw, err := readPart(zr, RelationshipsPart); err == nil {
		if links, err := parseRelationships(raw); err == nil {
			doc.links = links
		}
	}

	if err := doc.scan(); err != nil {
		return nil, &errors.ParseError{Format: formatName, Path: DocumentPart, Message: "cannot tokenize primary part", Err: err}
	}
	return doc, nil
}

// LoadFile reads and loads a container from disk.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	doc, err := Load(data)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) && pe.Path == "" {
			pe.Path = path
		}
		return nil, err
	}
	return doc, nil
}

// readPart returns the decompressed bytes of a named part, or nil if the
// container has no such part.
func readPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		if f.UncompressedSize64 > MaxPartSize {
			return nil, fmt.Errorf("part %s exceeds %d bytes", name, MaxPartSize)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		data, err := io.ReadAll(io.LimitReader(rc, MaxPartSize+1))
		if err != nil {
			return nil, err
		}
		if len(data) > MaxPartSize {
			return nil, fmt.Errorf("part %s exceeds %d bytes", name, MaxPartSize)
		}
		return data, nil
	}
	return nil, nil
}
