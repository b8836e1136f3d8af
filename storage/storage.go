// Package storage keeps uploaded post images on the local disk or in an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ErrNotImage is returned when uploaded bytes are not a recognised image.
	ErrNotImage = errors.New("file is not an image")
	// ErrInvalidName is returned for names that escape the storage root.
	ErrInvalidName = errors.New("invalid file name")
)

// Storage saves and removes named files. Names are slash separated and relative, e.g. "posts/cat.gif".
type Storage interface {
	// Save writes r under name, or under a free variant of name if it is taken, and returns the name used.
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	// URL returns the public address of a stored file.
	URL(name string) string
}

// DetectImage sniffs data and returns its mime type if it is an image.
func DetectImage(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}
	return mt.String(), nil
}

// CleanName normalises name and rejects absolute paths and parent references.
func CleanName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if name == "" || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	cleaned := path.Clean(name)
	if cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return cleaned, nil
}

// alternativeName appends a short random suffix before the extension: posts/cat.gif -> posts/cat_1a2b3c4d.gif.
func alternativeName(name string) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%s%s", base, uuid.NewString()[:8], ext)
}

// freeName returns name if it is unused, otherwise the first unused alternative.
func freeName(ctx context.Context, s Storage, name string) (string, error) {
	candidate := name
	for i := 0; i < 10; i++ {
		exists, err := s.Exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = alternativeName(name)
	}
	return "", fmt.Errorf("no free name for %s", name)
}
