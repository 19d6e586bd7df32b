package receiver

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// SanitizeFilename reduces a sender-supplied name to a safe base name.
// Names that reduce to nothing become received_<unix seconds>.bin.
func SanitizeFilename(name string, now time.Time) string {
	name = norm.NFC.String(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)

	// Senders on any OS may use either separator.
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimSpace(path.Base(name))

	switch name {
	case "", ".", "..", "/":
		return fmt.Sprintf("received_%d.bin", now.Unix())
	}
	return name
}

// Store writes received files into one directory.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore creates dir if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Dir returns the download directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes payload under a sanitized, unused name and returns the
// final path. The file appears atomically via rename.
func (s *Store) Save(filename string, payload []byte) (string, error) {
	tmp, err := os.CreateTemp(s.dir, ".filedrop-*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	final := s.uniquePath(SanitizeFilename(filename, s.now()))
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename into place: %w", err)
	}
	return final, nil
}

// uniquePath appends " (n)" before the extension until the name is free.
func (s *Store) uniquePath(name string) string {
	candidate := filepath.Join(s.dir, name)
	if !exists(candidate) {
		return candidate
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate = filepath.Join(s.dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
		if !exists(candidate) {
			return candidate
		}
	}
}

func exists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}
