package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

var allowedUploadExts = []string{".png", ".jpg", ".jpeg", ".gif", ".mp4", ".mov", ".webm"}

// Uploads stores user media files on disk under a single directory. Stored
// names are uuid-prefixed so uploads never collide or overwrite each other.
type Uploads struct {
	dir string
}

// NewUploads creates the upload directory if needed.
func NewUploads(dir string) (*Uploads, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Uploads{dir: dir}, nil
}

func (u *Uploads) Dir() string { return u.dir }

// Save writes an uploaded file and returns the stored name. The original
// filename contributes only its base name; its extension must be on the
// media allow-list.
func (u *Uploads) Save(filename string, r io.Reader) (string, error) {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	ext := strings.ToLower(filepath.Ext(base))
	if !lo.Contains(allowedUploadExts, ext) {
		return "", fmt.Errorf("file type %q not allowed", ext)
	}

	name := uuid.NewString() + "_" + base
	f, err := os.Create(filepath.Join(u.dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	return name, nil
}

// Path resolves a stored name to its on-disk path, rejecting anything that
// would escape the upload directory.
func (u *Uploads) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid upload name %q", name)
	}
	path := filepath.Join(u.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}
