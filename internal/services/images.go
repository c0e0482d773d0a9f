package services

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ImageService stores uploaded product images on the local filesystem. Files
// are keyed by generated names so client-supplied filenames never touch disk;
// the directory is served statically under /uploads.
type ImageService struct {
	dir string
}

// NewImageService ensures the upload directory exists.
func NewImageService(dir string) (*ImageService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &ImageService{dir: dir}, nil
}

// SaveAll writes every uploaded file and returns the generated filenames in
// upload order. If any write fails, files already written are removed so a
// failed request leaves nothing behind.
func (s *ImageService) SaveAll(files []*multipart.FileHeader) ([]string, error) {
	names := make([]string, 0, len(files))
	for _, fh := range files {
		name, err := s.save(fh)
		if err != nil {
			s.Remove(names)
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// Remove deletes stored files by name. Failures are logged, never returned:
// an orphaned file is an acceptable outcome, a blocked record mutation is not.
func (s *ImageService) Remove(names []string) {
	for _, name := range names {
		if name == "" {
			continue
		}
		path := filepath.Join(s.dir, filepath.Base(name))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("failed to remove image %s: %v", name, err)
		}
	}
}

// Exists reports whether a stored file is present on disk.
func (s *ImageService) Exists(name string) bool {
	_, err := os.Stat(filepath.Join(s.dir, filepath.Base(name)))
	return err == nil
}

func (s *ImageService) save(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := uuid.New().String() + strings.ToLower(filepath.Ext(fh.Filename))
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("write image file: %w", err)
	}

	return name, nil
}
