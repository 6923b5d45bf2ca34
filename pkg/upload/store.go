package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotImage indicates the uploaded bytes are not a supported image type
	ErrNotImage = errors.New("uploaded file is not a supported image")

	// ErrTooLarge indicates the upload exceeded the configured size limit
	ErrTooLarge = errors.New("uploaded file is too large")

	// ErrEmpty indicates the upload had no content
	ErrEmpty = errors.New("uploaded file is empty")
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// StoredImage describes a saved upload
type StoredImage struct {
	URL         string // public path, e.g. /uploads/1700000000-<uuid>.jpg
	Path        string // location on disk
	ContentType string
	Size        int64
}

// LocalStore keeps uploaded images on local disk under a directory served statically
type LocalStore struct {
	dir          string
	publicPrefix string
	maxBytes     int64
}

// NewLocalStore creates the upload directory if needed
func NewLocalStore(dir, publicPrefix string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{
		dir:          dir,
		publicPrefix: "/" + strings.Trim(publicPrefix, "/"),
		maxBytes:     maxBytes,
	}, nil
}

// Dir returns the directory images are written to
func (s *LocalStore) Dir() string {
	return s.dir
}

// SaveImage sniffs the content type, enforces the size limit and writes the file
// under a collision-free name. The client-supplied name is never used on disk.
func (s *LocalStore) SaveImage(ctx context.Context, r io.Reader) (*StoredImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrTooLarge
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, ErrNotImage
	}

	name := fmt.Sprintf("%d-%s%s", time.Now().Unix(), uuid.NewString(), ext)
	fullPath := filepath.Join(s.dir, name)

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create image file: %w", err)
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		os.Remove(fullPath)
		return nil, fmt.Errorf("failed to write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("failed to close image file: %w", err)
	}

	return &StoredImage{
		URL:         path.Join(s.publicPrefix, name),
		Path:        fullPath,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// Remove deletes a stored image; used to roll back when the owning record fails to persist
func (s *LocalStore) Remove(img *StoredImage) error {
	if img == nil {
		return nil
	}
	if err := os.Remove(img.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove image: %w", err)
	}
	return nil
}
