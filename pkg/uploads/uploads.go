package uploads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var photoExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
}

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".webm": {},
	".ogg":  {},
	".mov":  {},
}

// IsAllowedPhoto reports whether the filename carries an allow-listed image
// extension. The check is case-insensitive.
func IsAllowedPhoto(name string) bool {
	_, ok := photoExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// IsAllowedVideo reports whether the filename carries an allow-listed video
// extension. The check is case-insensitive.
func IsAllowedVideo(name string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// SanitizeFilename strips directory components and any rune outside the safe
// set. An input that sanitizes to nothing (or to bare dots) becomes "upload"
// with the original extension preserved when it survives sanitization.
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	clean := strings.Trim(b.String(), ".")
	if clean == "" {
		return "upload"
	}
	return clean
}

// NextAvailableName resolves filename collisions without touching the
// filesystem: given a predicate over taken names, it returns desired unchanged
// when free, otherwise name_1.ext, name_2.ext, ... until a free name is found.
// Deterministic under sequential calls; concurrent writers may still race.
func NextAvailableName(exists func(string) bool, desired string) string {
	if !exists(desired) {
		return desired
	}

	ext := filepath.Ext(desired)
	stem := strings.TrimSuffix(desired, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !exists(candidate) {
			return candidate
		}
	}
}

// Store persists uploaded content to a flat directory and hands back the
// relative path used for display.
type Store struct {
	dir string
}

// NewStore ensures the content directory exists and returns a store over it.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("content directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating content directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the content directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Save sanitizes the filename, resolves collisions against files already in
// the content directory, writes the content, and returns the relative name.
func (s *Store) Save(name string, r io.Reader) (string, error) {
	target := NextAvailableName(func(candidate string) bool {
		_, err := os.Stat(filepath.Join(s.dir, candidate))
		return err == nil
	}, SanitizeFilename(name))

	f, err := os.Create(filepath.Join(s.dir, target))
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", target, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(filepath.Join(s.dir, target))
		return "", fmt.Errorf("writing %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", target, err)
	}
	return target, nil
}

// Remove deletes stored content by its relative name. Missing files are not
// an error; cascade cleanup is best-effort.
func (s *Store) Remove(name string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
