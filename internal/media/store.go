// Package media keeps uploaded video files on local disk.
package media

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// VideoExtensions are accepted even when content sniffing is inconclusive.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".m4v":  true,
	".webm": true,
	".mov":  true,
	".mkv":  true,
	".avi":  true,
	".ogv":  true,
}

// Stored describes a file written by Save.
type Stored struct {
	RelPath      string
	OriginalName string
	MimeType     string
	Size         int64
}

// Store writes uploads under a single base directory.
type Store struct {
	baseDir string
	maxSize int64
}

func NewStore(baseDir string, maxSize int64) (*Store, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve media dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Store{baseDir: abs, maxSize: maxSize}, nil
}

func (s *Store) BaseDir() string { return s.baseDir }

// Save validates fileHeader and copies it to <base>/<uuid><ext>.
func (s *Store) Save(fileHeader *multipart.FileHeader) (*Stored, error) {
	if fileHeader.Size == 0 {
		return nil, ErrEmptyFile
	}
	if s.maxSize > 0 && fileHeader.Size > s.maxSize {
		return nil, ErrFileTooLarge
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return nil, fmt.Errorf("detect content type: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	isVideo := strings.HasPrefix(mtype.String(), "video/")
	if !isVideo && !VideoExtensions[ext] {
		return nil, ErrUnsupportedMedia
	}
	if !VideoExtensions[ext] {
		ext = mtype.Extension()
		if ext == "" {
			ext = ".bin"
		}
	}
	mimeType := ContentTypeFor(ext)
	if isVideo {
		mimeType = strings.Split(mtype.String(), ";")[0]
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}

	relPath := uuid.NewString() + ext
	absPath := filepath.Join(s.baseDir, relPath)
	dst, err := os.Create(absPath)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	written, err := io.Copy(dst, file)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("write file: %w", err)
	}

	return &Stored{
		RelPath:      relPath,
		OriginalName: SanitizeName(fileHeader.Filename),
		MimeType:     mimeType,
		Size:         written,
	}, nil
}

// Path resolves a stored relative path. Paths escaping the base directory
// resolve to "" so callers treat them as missing.
func (s *Store) Path(rel string) string {
	abs := filepath.Join(s.baseDir, filepath.Clean("/"+rel))
	if !strings.HasPrefix(abs, s.baseDir+string(os.PathSeparator)) {
		return ""
	}
	return abs
}

// Remove deletes a stored file. A file that is already gone is not an error.
func (s *Store) Remove(rel string) error {
	p := s.Path(rel)
	if p == "" {
		return nil
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SanitizeName keeps the base name of an uploaded file, replacing anything
// outside a conservative character set.
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '.' {
			return r
		}
		return '_'
	}, name)
	if len(name) > 120 {
		name = name[:120]
	}
	if name == "" || name == "." || name == ".." {
		return "video"
	}
	return name
}
