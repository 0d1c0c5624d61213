package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileStore persists uploaded assets under relative keys such as "posts/12/ab.jpg".
type FileStore interface {
	Save(key string, r io.Reader) error
	Delete(key string) error
	Exists(key string) bool
	URL(key string) string
}

// LocalStore keeps files on the local disk below Root and serves them from BaseURL.
type LocalStore struct {
	Root    string
	BaseURL string
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStore{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", errors.New("empty storage key")
	}
	return filepath.Join(s.Root, filepath.FromSlash(clean)), nil
}

// Save writes r to key, replacing any previous content.
func (s *LocalStore) Save(key string, r io.Reader) error {
	dst, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// Delete removes key. Missing files are not an error.
func (s *LocalStore) Delete(key string) error {
	dst, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Exists reports whether key is stored.
func (s *LocalStore) Exists(key string) bool {
	dst, err := s.resolve(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(dst)
	return err == nil && !info.IsDir()
}

// URL returns the public URL for key.
func (s *LocalStore) URL(key string) string {
	return s.BaseURL + "/" + strings.TrimLeft(key, "/")
}
