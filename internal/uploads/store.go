package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/localdrop/internal/domain"
)

const (
	tmpSuffix     = ".tmp"
	maxNameLength = 80
)

// StoredFile describes a file written by Save.
type StoredFile struct {
	Name         string // storage name inside the upload dir
	OriginalName string
	Size         int64
}

// FileInfo is one entry of the upload directory.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Store keeps uploaded files in a single flat directory.
type Store struct {
	dir string
	now func() time.Time
}

// New creates the upload directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Dir returns the upload directory.
func (s *Store) Dir() string { return s.dir }

// Save streams r into a new file. The data goes to a temp file first and is
// renamed into place once fully written, so a partial upload never shows up
// under its final name.
func (s *Store) Save(r io.Reader, originalName string) (StoredFile, error) {
	name := s.storageName(originalName)
	full := filepath.Join(s.dir, name)
	tmp := full + tmpSuffix

	f, err := os.Create(tmp)
	if err != nil {
		return StoredFile{}, fmt.Errorf("create temp file: %w", err)
	}

	size, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return StoredFile{}, fmt.Errorf("write upload: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return StoredFile{}, fmt.Errorf("fsync upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return StoredFile{}, fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return StoredFile{}, fmt.Errorf("rename upload: %w", err)
	}

	return StoredFile{Name: name, OriginalName: originalName, Size: size}, nil
}

// Path resolves a storage name to its location on disk. Names that would
// escape the upload directory are rejected.
func (s *Store) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) {
		return "", domain.InvalidInput("invalid file name")
	}
	return filepath.Join(s.dir, name), nil
}

// Open opens a stored file. The caller closes it.
func (s *Store) Open(name string) (*os.File, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NotFound("file", name)
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// Remove deletes a stored file. A missing file is not an error.
func (s *Store) Remove(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// List returns the completed files in the upload directory, newest first.
func (s *Store) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), tmpSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		files = append(files, FileInfo{
			Name:    e.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.After(files[j].ModTime)
		}
		return files[i].Name > files[j].Name
	})
	return files, nil
}

// storageName builds "<unix ms>-<short uuid>-<sanitized original name>".
func (s *Store) storageName(originalName string) string {
	uid := uuid.New().String()[:8]
	return fmt.Sprintf("%d-%s-%s", s.now().UnixMilli(), uid, sanitize(originalName))
}

// sanitize keeps letters, digits, dots, dashes and underscores of the base
// name, and caps its length while preserving the extension.
func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}

	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "file"
	}

	if len(out) > maxNameLength {
		ext := filepath.Ext(out)
		if len(ext) >= maxNameLength {
			ext = ""
		}
		out = truncate(out[:len(out)-len(ext)], maxNameLength-len(ext)) + ext
	}
	return out
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
