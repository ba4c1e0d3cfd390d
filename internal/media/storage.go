package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const MaxFileSize = 100 << 20 // 100 MB

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var allowedVideoTypes = map[string]bool{
	"video/mp4":       true,
	"video/webm":      true,
	"video/quicktime": true,
}

// TypeForMime classifies an upload, or returns false for anything outside
// the image/video allowlists.
func TypeForMime(mime string) (string, bool) {
	switch {
	case allowedImageTypes[mime]:
		return TypeImage, true
	case allowedVideoTypes[mime]:
		return TypeVideo, true
	default:
		return "", false
	}
}

// DiskStore writes uploads under <root>/<user_id>/ with unguessable names.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) *DiskStore {
	return &DiskStore{root: root}
}

func (s *DiskStore) Save(userID uint64, originalName string, data []byte) (filename, url string, err error) {
	ext := "bin"
	if i := strings.LastIndexByte(originalName, '.'); i >= 0 && i < len(originalName)-1 {
		ext = originalName[i+1:]
	}
	filename = fmt.Sprintf("%d_%s.%s", userID, uuid.NewString(), ext)

	dir := filepath.Join(s.root, fmt.Sprintf("%d", userID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		return "", "", err
	}
	return filename, fmt.Sprintf("/uploads/%d/%s", userID, filename), nil
}

func (s *DiskStore) Remove(userID uint64, filename string) error {
	path := filepath.Join(s.root, fmt.Sprintf("%d", userID), filepath.Base(filename))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *DiskStore) Root() string { return s.root }
