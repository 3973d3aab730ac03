package listing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sudo-init-do/carhub/internal/apperr"
	"github.com/sudo-init-do/carhub/internal/models"
)

// MaxImageBytes is the upload limit for a single photo.
const MaxImageBytes = 1 << 20

// ImageStore keeps listing photos. Paths are relative to the static root,
// e.g. "uploads/<uuid>_front.jpg".
type ImageStore interface {
	Exists(path string) bool
	Save(name string, r io.Reader) (string, error)
	Remove(path string) error
}

// DiskImages stores photos under Root/uploads.
type DiskImages struct {
	Root string
}

func NewDiskImages(root string) *DiskImages {
	return &DiskImages{Root: root}
}

func (d *DiskImages) abs(path string) string {
	return filepath.Join(d.Root, filepath.FromSlash(path))
}

func (d *DiskImages) Exists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(d.abs(path))
	return err == nil && info.Mode().IsRegular()
}

// Save writes r under a fresh name and returns its relative path.
func (d *DiskImages) Save(name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(filepath.Join(d.Root, "uploads"), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	rel := "uploads/" + uuid.NewString() + "_" + safeName(name)
	f, err := os.Create(d.abs(rel))
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}
	defer f.Close()

	// one byte over the limit is enough to reject
	n, err := io.Copy(f, io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write image: %w", err)
	}
	if n > MaxImageBytes {
		_ = os.Remove(f.Name())
		return "", apperr.Validation("Each image must be 1MB or less.")
	}
	return rel, nil
}

func (d *DiskImages) Remove(path string) error {
	if path == "" || path == models.DefaultImage {
		return nil
	}
	err := os.Remove(d.abs(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

var errNotImage = apperr.Validation("Only JPG and PNG images are allowed.")

// CheckImageName rejects anything that is not a JPG or PNG file name.
func CheckImageName(name string) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return nil
	}
	return errNotImage
}

// SniffImage checks the leading bytes of an upload for JPEG or PNG content
// and returns a reader that still yields the whole file.
func SniffImage(r io.Reader) (io.Reader, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	switch http.DetectContentType(head) {
	case "image/jpeg", "image/png":
		return io.MultiReader(bytes.NewReader(head), r), nil
	}
	return nil, errNotImage
}

func safeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "image"
	}
	return b.String()
}

func removeFiles(images ImageStore, imgs []models.Image) {
	for _, img := range imgs {
		if err := images.Remove(img.FilePath); err != nil {
			log.Printf("[listing] remove image %s: %v", img.FilePath, err)
		}
	}
}
