package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/ulikunitz/xz"
)

// File is one entry to store in a bundle.
type File struct {
	Name string
	Data []byte
}

// epoch is the modification time of every bundle entry, so identical
// inputs give identical archives.
var epoch = time.Unix(0, 0).UTC()

// WriteBundle writes m and files to dstPath under a single base directory
// named after the bundle. The compression is chosen from the extension:
// .tar.xz, .tar.gz or plain .tar. Parent directories are created as needed.
func WriteBundle(dstPath string, m *Manifest, files []File) (err error) {
	format := DetectFormat(dstPath)
	if format == "unknown" {
		return fmt.Errorf("unsupported archive format: %s", dstPath)
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	outFile, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer func() {
		if cerr := outFile.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	return writeTar(outFile, format, BundleName(filepath.Base(dstPath)), m, files)
}

// writeTar streams the bundle to w. Compressors are closed before
// returning so the stream is complete.
func writeTar(w io.Writer, format, baseDir string, m *Manifest, files []File) error {
	var compressor io.WriteCloser
	switch format {
	case "tar.xz":
		xzw, err := xz.NewWriter(w)
		if err != nil {
			return fmt.Errorf("xz writer: %w", err)
		}
		compressor = xzw
		w = xzw
	case "tar.gz":
		gw := gzip.NewWriter(w)
		compressor = gw
		w = gw
	}

	tw := tar.NewWriter(w)

	manifest, err := m.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	entries := append([]File{{Name: ManifestName, Data: manifest}}, files...)
	for _, f := range entries {
		header := &tar.Header{
			Name:    path.Join(baseDir, f.Name),
			Mode:    0644,
			Size:    int64(len(f.Data)),
			ModTime: epoch,
			Format:  tar.FormatPAX,
		}
		if err := tw.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to create archive: %w", err)
		}
		if _, err := tw.Write(f.Data); err != nil {
			return fmt.Errorf("failed to create archive: %w", err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	if compressor != nil {
		if err := compressor.Close(); err != nil {
			return fmt.Errorf("failed to create archive: %w", err)
		}
	}
	return nil
}
