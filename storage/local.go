package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage stores files below a root directory and serves them under a URL prefix.
type LocalStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage creates root if needed.
func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &LocalStorage{root: root, baseURL: baseURL}, nil
}

// Root returns the directory files are stored in.
func (l *LocalStorage) Root() string {
	return l.root
}

func (l *LocalStorage) Save(ctx context.Context, name string, r io.Reader, _ int64, _ string) (string, error) {
	name, err := CleanName(name)
	if err != nil {
		return "", err
	}
	for attempt := 0; attempt < 10; attempt++ {
		candidate, err := freeName(ctx, l, name)
		if err != nil {
			return "", err
		}
		full := l.path(candidate)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return "", fmt.Errorf("create upload directory: %w", err)
		}
		out, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			// lost a race for the name
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", candidate, err)
		}
		if _, err := io.Copy(out, r); err != nil {
			_ = out.Close()
			_ = os.Remove(full)
			return "", fmt.Errorf("write %s: %w", candidate, err)
		}
		if err := out.Close(); err != nil {
			_ = os.Remove(full)
			return "", fmt.Errorf("close %s: %w", candidate, err)
		}
		return candidate, nil
	}
	return "", fmt.Errorf("no free name for %s", name)
}

// Delete removes name. Deleting a missing file is not an error.
func (l *LocalStorage) Delete(_ context.Context, name string) error {
	name, err := CleanName(name)
	if err != nil {
		return err
	}
	if err := os.Remove(l.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

func (l *LocalStorage) Exists(_ context.Context, name string) (bool, error) {
	name, err := CleanName(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(l.path(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (l *LocalStorage) URL(name string) string {
	return l.baseURL + strings.TrimPrefix(name, "/")
}

func (l *LocalStorage) path(name string) string {
	return filepath.Join(l.root, filepath.FromSlash(name))
}
