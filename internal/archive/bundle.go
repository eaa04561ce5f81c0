package archive

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/resumetailor/core/errors"
)

// ManifestName is the manifest entry written at the root of every bundle.
const ManifestName = "manifest.yaml"

// ManifestVersion is the current manifest schema version.
const ManifestVersion = "1"

// Manifest describes the contents of a batch bundle.
type Manifest struct {
	Version   string          `yaml:"version"`
	CreatedAt string          `yaml:"created_at,omitempty"`
	Tool      string          `yaml:"tool,omitempty"`
	Entries   []ManifestEntry `yaml:"entries"`
}

// ManifestEntry records one tailored document.
type ManifestEntry struct {
	Name string `yaml:"name"`
	// Output is the bundle path of the tailored container; empty when the
	// job failed.
	Output     string `yaml:"output,omitempty"`
	SourceHash string `yaml:"source_blake3"`
	OutputHash string `yaml:"output_blake3,omitempty"`
	Matched    int    `yaml:"matched"`
	Dropped    int    `yaml:"dropped"`
	Changes    string `yaml:"changes,omitempty"`
	Error      string `yaml:"error,omitempty"`
}

// NewManifest returns an empty manifest stamped with the current time.
func NewManifest(tool string) *Manifest {
	return &Manifest{
		Version:   ManifestVersion,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Tool:      tool,
	}
}

// Marshal encodes the manifest as YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// ParseManifest decodes a YAML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &errors.ParseError{Format: "yaml", Path: ManifestName, Message: "invalid manifest", Err: err}
	}
	if m.Version == "" {
		return nil, errors.NewParse("yaml", ManifestName, "missing version")
	}
	return &m, nil
}

// HashBytes returns the hex BLAKE3-256 digest of data.
func HashBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// BundleName derives the bundle's base directory from its filename by
// removing known extensions.
func BundleName(filename string) string {
	// Handle compound extensions first (most specific)
	id := filename
	compoundExts := []string{
		".bundle.tar.xz",
		".bundle.tar.gz",
	}
	for _, ext := range compoundExts {
		if strings.HasSuffix(id, ext) {
			return strings.TrimSuffix(id, ext)
		}
	}

	// Then single extensions
	singleExts := []string{".tar.xz", ".tar.gz", ".tar"}
	for _, ext := range singleExts {
		if strings.HasSuffix(id, ext) {
			return strings.TrimSuffix(id, ext)
		}
	}

	return id
}

// DetectFormat detects the archive format from the file extension.
func DetectFormat(path string) string {
	switch {
	case strings.HasSuffix(path, ".tar.xz"):
		return "tar.xz"
	case strings.HasSuffix(path, ".tar.gz"):
		return "tar.gz"
	case strings.HasSuffix(path, ".tar"):
		return "tar"
	default:
		return "unknown"
	}
}

// IsSupportedFormat returns true if the file has a supported archive extension.
func IsSupportedFormat(path string) bool {
	return DetectFormat(path) != "unknown"
}
