package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	// ThumbnailWidth is the maximum width of a document preview.
	ThumbnailWidth = 320
	// Maximum source image size (10MB)
	maxFileSize = 10 * 1024 * 1024
)

var (
	ErrInvalidPath     = errors.New("invalid document path")
	ErrFileNotFound    = errors.New("document file not found")
	ErrUnsupportedFile = errors.New("unsupported document format")
	ErrFileTooLarge    = errors.New("document too large")
)

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// ResolveUpload maps a stored document path (as saved on the agent's Details&Documents record,
// usually "/uploads/...") onto a file under baseDir. Paths escaping baseDir are rejected.
func ResolveUpload(baseDir, stored string) (string, error) {
	rel := strings.TrimPrefix(filepath.ToSlash(stored), "/")
	rel = strings.TrimPrefix(rel, "uploads/")
	if rel == "" {
		return "", ErrInvalidPath
	}

	root, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("resolve uploads dir: %w", err)
	}
	full := filepath.Join(root, filepath.FromSlash(rel))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return full, nil
}

// DocumentThumbnail renders a JPEG preview of an uploaded image, at most ThumbnailWidth wide.
// Smaller images keep their size.
func DocumentThumbnail(path string) ([]byte, error) {
	if !allowedImageExts[strings.ToLower(filepath.Ext(path))] {
		return nil, ErrUnsupportedFile
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrFileNotFound
	}
	if info.Size() > maxFileSize {
		return nil, ErrFileTooLarge
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if img.Bounds().Dx() > ThumbnailWidth {
		img = imaging.Resize(img, ThumbnailWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
