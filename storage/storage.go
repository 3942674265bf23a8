package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// StoredObject locates a stored blob: ID for later deletion, URL for clients.
type StoredObject struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// ObjectStorage is the file-storage collaborator consumed by receipt upload.
type ObjectStorage interface {
	Store(data []byte, folder string) (*StoredObject, error)
	Delete(id string) error
}

// DiskStorage keeps objects on the local filesystem under a root directory
// and serves them from a static URL prefix.
type DiskStorage struct {
	root    string
	baseURL string
}

func NewDiskStorage(root, baseURL string) *DiskStorage {
	return &DiskStorage{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (d *DiskStorage) Store(data []byte, folder string) (*StoredObject, error) {
	id := filepath.Join(folder, uuid.New().String())
	path := filepath.Join(d.root, id)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to store object: %w", err)
	}

	return &StoredObject{
		ID:  id,
		URL: d.baseURL + "/" + filepath.ToSlash(id),
	}, nil
}

func (d *DiskStorage) Delete(id string) error {
	if err := os.Remove(filepath.Join(d.root, id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
