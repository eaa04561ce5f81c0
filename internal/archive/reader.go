// Package archive reads and writes batch bundles: compressed tar archives
// holding tailored containers and a manifest with their BLAKE3 digests.
// It supports tar.xz, tar.gz and plain tar.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/resumetailor/core/errors"
)

// Reader wraps a tar.Reader with automatic decompression handling.
type Reader struct {
	*tar.Reader
	file         *os.File
	decompressor io.Closer
}

// NewReader creates a new archive reader for the given path.
// It automatically detects and handles .tar.gz and .tar.xz compression.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	var reader io.Reader = f
	var decompressor io.Closer

	switch DetectFormat(path) {
	case "tar.xz":
		xzr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		reader = xzr
		decompressor = nil // xz reader doesn't need closing
	case "tar.gz":
		gzr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		reader = gzr
		decompressor = gzr
	case "tar":
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported archive format: %s", path)
	}

	return &Reader{
		Reader:       tar.NewReader(reader),
		file:         f,
		decompressor: decompressor,
	}, nil
}

// Close closes the archive reader and any underlying decompressors.
func (r *Reader) Close() error {
	var errs []error
	if r.decompressor != nil {
		if err := r.decompressor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Visitor is a callback function for iterating archive entries.
// Return true to stop iteration, false to continue.
type Visitor func(header *tar.Header, content io.Reader) (stop bool, err error)

// Iterate walks through all entries in the archive, calling the visitor for each.
func (r *Reader) Iterate(visitor Visitor) error {
	for {
		header, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}

		stop, err := visitor(header, r)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// IterateBundle opens an archive and iterates through its entries.
func IterateBundle(path string, visitor Visitor) error {
	r, err := NewReader(path)
	if err != nil {
		return err
	}
	defer r.Close()
	return r.Iterate(visitor)
}

// ContainsPath checks if the archive contains a path matching the predicate.
func ContainsPath(path string, predicate func(name string) bool) (bool, error) {
	var found bool
	err := IterateBundle(path, func(header *tar.Header, _ io.Reader) (bool, error) {
		if predicate(header.Name) {
			found = true
			return true, nil // stop iteration
		}
		return false, nil
	})
	return found, err
}

// ReadFile reads a specific file from the archive. The bundle's base
// directory may be omitted from filename.
func ReadFile(archivePath, filename string) ([]byte, error) {
	var content []byte
	err := IterateBundle(archivePath, func(header *tar.Header, r io.Reader) (bool, error) {
		// Handle archives with or without leading directory
		name := header.Name
		if idx := strings.Index(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		if name == filename || header.Name == filename {
			var err error
			content, err = io.ReadAll(r)
			return true, err
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, errors.NewNotFound("file", filename)
	}
	return content, nil
}

// ReadAll returns every file in the archive keyed by its path relative to
// the bundle's base directory.
func ReadAll(archivePath string) (map[string][]byte, error) {
	files := make(map[string][]byte)
	err := IterateBundle(archivePath, func(header *tar.Header, r io.Reader) (bool, error) {
		if header.Typeflag != tar.TypeReg {
			return false, nil
		}
		name := header.Name
		if idx := strings.Index(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return true, err
		}
		files[path.Clean(name)] = data
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ReadManifest reads and decodes the bundle manifest.
func ReadManifest(archivePath string) (*Manifest, error) {
	data, err := ReadFile(archivePath, ManifestName)
	if err != nil {
		return nil, err
	}
	return ParseManifest(data)
}

// Verify checks that every output listed in the manifest is present and
// matches its recorded digest.
func Verify(archivePath string) (*Manifest, error) {
	files, err := ReadAll(archivePath)
	if err != nil {
		return nil, err
	}
	data, ok := files[ManifestName]
	if !ok {
		return nil, errors.NewNotFound("file", ManifestName)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	for _, e := range m.Entries {
		if e.Output == "" {
			continue
		}
		out, ok := files[e.Output]
		if !ok {
			return m, errors.NewNotFound("file", e.Output)
		}
		if got := HashBytes(out); got != e.OutputHash {
			return m, errors.NewValidation(e.Output, fmt.Sprintf("blake3 mismatch: manifest %s, archive %s", e.OutputHash, got))
		}
	}
	return m, nil
}
