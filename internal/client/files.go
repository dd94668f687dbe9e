package client

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const maxParallelUploads = 4

type UploadedFile struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	Type         string `json:"type"`
}

type FileInfo struct {
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// UploadResult is the outcome for one path of UploadAll.
type UploadResult struct {
	Path string
	File *UploadedFile
	Err  error
}

// Files is the upload panel. Listing always refetches the full list.
type Files struct {
	api *API
}

func NewFiles(api *API) *Files {
	return &Files{api: api}
}

func (f *Files) Upload(ctx context.Context, path string) (*UploadedFile, error) {
	if strings.TrimSpace(path) == "" {
		return nil, validationError("no file selected", nil)
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, validationError("cannot open "+path, err)
	}
	defer fh.Close()
	return f.api.UploadFile(ctx, filepath.Base(path), fh)
}

// UploadAll uploads the files in parallel. Every upload is attempted; the
// results are in the order of paths.
func (f *Files) UploadAll(ctx context.Context, paths []string) []UploadResult {
	results := make([]UploadResult, len(paths))
	var g errgroup.Group
	g.SetLimit(maxParallelUploads)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			file, err := f.Upload(ctx, path)
			results[i] = UploadResult{Path: path, File: file, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (f *Files) List(ctx context.Context) ([]FileInfo, error) {
	return f.api.ListFiles(ctx)
}

func (f *Files) Delete(ctx context.Context, filename string) error {
	if strings.TrimSpace(filename) == "" {
		return validationError("filename is required", nil)
	}
	return f.api.DeleteFile(ctx, filename)
}
