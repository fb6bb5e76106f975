package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
	"github.com/noah-isme/sma-course-api/pkg/storage"
)

// FileStateRepository keeps one JSON file per actor under
// <dir>/<partition>/<key>.json.
type FileStateRepository struct {
	files *storage.LocalStorage
}

// NewFileStateRepository constructs a disk-backed state store rooted at dir.
func NewFileStateRepository(dir string) (*FileStateRepository, error) {
	files, err := storage.NewLocalStorage(dir)
	if err != nil {
		return nil, err
	}
	return &FileStateRepository{files: files}, nil
}

func fileName(partition, key string) string {
	return url.PathEscape(partition) + "/" + url.PathEscape(key) + ".json"
}

// ReadState loads the payload for partition/key.
func (r *FileStateRepository) ReadState(ctx context.Context, partition, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := r.files.Read(fileName(partition, key))
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, appErrors.ErrStateNotFound
		}
		return nil, fmt.Errorf("read state %s/%s: %w", partition, key, err)
	}
	return data, nil
}

// WriteState replaces the payload for partition/key atomically.
func (r *FileStateRepository) WriteState(ctx context.Context, partition, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.files.Save(fileName(partition, key), payload); err != nil {
		return fmt.Errorf("write state %s/%s: %w", partition, key, err)
	}
	return nil
}

// ClearState removes the payload if present.
func (r *FileStateRepository) ClearState(ctx context.Context, partition, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.files.Delete(fileName(partition, key)); err != nil {
		return fmt.Errorf("clear state %s/%s: %w", partition, key, err)
	}
	return nil
}
