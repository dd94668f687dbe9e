package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"code.sajari.com/docconv"
)

// DiskStore keeps uploads as flat files in one directory.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

func (d *DiskStore) path(name string) string {
	return filepath.Join(d.dir, filepath.Base(name))
}

func (d *DiskStore) Save(_ context.Context, name string, data []byte, _ string) error {
	if err := os.WriteFile(d.path(name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write upload: %w", err)
	}
	return nil
}

func (d *DiskStore) Open(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(d.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, nil
}

// List returns the stored files, newest first.
func (d *DiskStore) List(_ context.Context) ([]FileInfo, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}

	out := []FileInfo{}
	for _, e := range entries {
		if e.IsDir() || !Allowed(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, FileInfo{
			Filename:   e.Name(),
			Size:       info.Size(),
			Type:       docconv.MimeTypeByExtension(e.Name()),
			UploadedAt: info.ModTime().UTC(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

func (d *DiskStore) Delete(_ context.Context, name string) error {
	err := os.Remove(d.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete upload: %w", err)
	}
	return nil
}
