// Package validation checks user-supplied paths and files before they reach
// the engine: path traversal, oversized inputs and containers of the wrong
// type.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	cerrors "github.com/FocuswithJustin/resumetailor/core/errors"
)

// Security limits to prevent DoS attacks (CWE-400).
const (
	// MaxFileSize is the maximum allowed input file size (64 MB).
	MaxFileSize = 64 << 20
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrPathTraversal    = errors.New("path traversal detected")
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrPathTooLong      = errors.New("path too long")
	ErrFilenameTooLong  = errors.New("filename too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrFileTooLarge     = errors.New("file too large")
)

// SanitizePath validates a user-supplied relative path and makes sure it
// does not escape baseDir. It returns the cleaned relative path.
func SanitizePath(baseDir, userPath string) (string, error) {
	if err := ValidatePath(userPath); err != nil {
		return "", err
	}

	cleanPath := filepath.Clean(userPath)
	if filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("%w: absolute path not allowed", ErrPathTraversal)
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(baseDir, cleanPath))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	// Ensure the resolved path is within the base directory
	relPath, err := filepath.Rel(absBase, absPath)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}

	return cleanPath, nil
}

// ValidateFilename checks that filename is a single safe path element.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}
	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}
	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}
	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}
	for _, r := range filename {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}
	// Reject filenames starting with hyphen (can be confused with command flags)
	if strings.HasPrefix(filename, "-") {
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}
	return nil
}

// ValidatePath checks a path for length limits and control characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// SanitizeFilename turns arbitrary text, such as a batch job name, into a
// safe filename.
func SanitizeFilename(filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")

	var cleaned strings.Builder
	for _, r := range filename {
		if !unicode.IsControl(r) {
			cleaned.WriteRune(r)
		}
	}
	filename = strings.TrimLeft(cleaned.String(), "-")

	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	return filename, nil
}

// FileType represents a validated file type.
type FileType string

const (
	// Document containers
	FileTypeDocx FileType = "docx"
	FileTypeZip  FileType = "zip"

	// Bundle formats
	FileTypeTarXZ FileType = "tar.xz"
	FileTypeTarGZ FileType = "tar.gz"
	FileTypeTar   FileType = "tar"
	FileTypeGzip  FileType = "gzip"
	FileTypeXZ    FileType = "xz"

	// Edit request and config formats
	FileTypeJSON FileType = "json"
	FileTypeYAML FileType = "yaml"
	FileTypeText FileType = "text"

	// Unknown
	FileTypeUnknown FileType = "unknown"
)

// magicBytes defines magic byte signatures for file type detection.
var magicBytes = []struct {
	fileType FileType
	magic    []byte
	offset   int
}{
	{FileTypeTar, []byte("ustar"), 257},
	{FileTypeGzip, []byte{0x1f, 0x8b}, 0},
	{FileTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}, 0},
	{FileTypeZip, []byte{0x50, 0x4b, 0x03, 0x04}, 0},
}

// ValidateFileType checks that the content read from reader matches the
// type its filename claims and returns that type.
func ValidateFileType(reader io.Reader, filename string) (FileType, error) {
	// Read first 512 bytes for magic byte detection (enough for tar ustar at offset 257)
	buf := make([]byte, 512)
	n, err := io.ReadFull(reader, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FileTypeUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	buf = buf[:n]

	detected := detectFileTypeFromMagic(buf)
	expected := detectFileTypeFromExtension(filename)

	switch {
	case expected == FileTypeDocx && detected == FileTypeZip:
		return FileTypeDocx, nil
	case expected == FileTypeTarXZ && detected == FileTypeXZ:
		return FileTypeTarXZ, nil
	case expected == FileTypeTarGZ && detected == FileTypeGzip:
		return FileTypeTarGZ, nil
	case detected == expected && detected != FileTypeUnknown:
		return detected, nil
	}

	if detected == FileTypeUnknown {
		switch expected {
		case FileTypeJSON, FileTypeYAML, FileTypeText:
			if isLikelyText(buf) {
				return expected, nil
			}
			return FileTypeUnknown, fmt.Errorf("file type mismatch: extension suggests %s but content is binary", expected)
		case FileTypeUnknown:
			return FileTypeUnknown, nil
		}
	}
	return FileTypeUnknown, fmt.Errorf("file type mismatch: extension suggests %s but content is %s", expected, detected)
}

// detectFileTypeFromMagic detects file type from magic bytes.
func detectFileTypeFromMagic(buf []byte) FileType {
	for _, sig := range magicBytes {
		if sig.offset+len(sig.magic) <= len(buf) {
			if bytes.Equal(buf[sig.offset:sig.offset+len(sig.magic)], sig.magic) {
				return sig.fileType
			}
		}
	}
	return FileTypeUnknown
}

// detectFileTypeFromExtension determines expected file type from filename extension.
func detectFileTypeFromExtension(filename string) FileType {
	lower := strings.ToLower(filename)

	// Multi-extension formats (check these first)
	if strings.HasSuffix(lower, ".tar.xz") {
		return FileTypeTarXZ
	}
	if strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz") {
		return FileTypeTarGZ
	}

	switch filepath.Ext(lower) {
	case ".docx":
		return FileTypeDocx
	case ".zip":
		return FileTypeZip
	case ".tar":
		return FileTypeTar
	case ".xz":
		return FileTypeXZ
	case ".gz":
		return FileTypeGzip
	case ".json":
		return FileTypeJSON
	case ".yaml", ".yml":
		return FileTypeYAML
	case ".txt", ".md":
		return FileTypeText
	default:
		return FileTypeUnknown
	}
}

// isLikelyText reports whether buf looks like UTF-8 or ASCII text.
func isLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return true
	}
	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	printable := 0
	control := 0
	for _, b := range buf {
		if b >= 0x20 && b <= 0x7e || b == '\t' || b == '\n' || b == '\r' {
			printable++
		} else if b < 0x20 {
			control++
		}
		// UTF-8 continuation bytes (0x80-0xBF) and start bytes (0xC0-0xFD) are neutral
	}
	if printable == 0 {
		return control == 0
	}
	return float64(printable)/float64(printable+control) > 0.95
}

// ReadInput validates path, enforces MaxFileSize and checks the content
// against want before returning the file's bytes. Word containers other
// than .docx are reported as unsupported.
func ReadInput(path string, want ...FileType) ([]byte, error) {
	if err := ValidatePath(path); err != nil {
		return nil, cerrors.NewValidation("path", err.Error())
	}

	got := detectFileTypeFromExtension(path)
	if len(want) > 0 && !contains(want, got) {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".doc", ".docm", ".dotx", ".odt", ".rtf", ".pdf":
			return nil, cerrors.NewUnsupported("container", filepath.Ext(path)+" files are not supported; convert to .docx")
		}
		return nil, cerrors.NewUnsupported("file type", fmt.Sprintf("%s (expected %s)", filepath.Base(path), joinTypes(want)))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, cerrors.NewIO("open", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, cerrors.NewIO("stat", path, err)
	}
	if info.IsDir() {
		return nil, cerrors.NewValidation("path", path+" is a directory")
	}
	if info.Size() > MaxFileSize {
		return nil, cerrors.NewValidation("path", fmt.Sprintf("%v: %s is %d bytes (limit %d)", ErrFileTooLarge, path, info.Size(), MaxFileSize))
	}

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, cerrors.NewIO("read", path, err)
	}
	if len(want) > 0 {
		if _, err := ValidateFileType(bytes.NewReader(data), path); err != nil {
			return nil, cerrors.NewValidation("path", err.Error())
		}
	}
	return data, nil
}

// ReadDocx reads a .docx input file.
func ReadDocx(path string) ([]byte, error) {
	return ReadInput(path, FileTypeDocx)
}

func contains(types []FileType, t FileType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func joinTypes(types []FileType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
