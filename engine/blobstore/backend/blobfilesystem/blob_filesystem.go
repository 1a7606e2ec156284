package blobfilesystem

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xiaonanln/saganet/engine/blobstore/types"
	"github.com/xiaonanln/saganet/engine/consts"
	"github.com/xiaonanln/saganet/engine/gwlog"
)

// FileSystemBlobStore keeps each blob as a file under the container directory
type FileSystemBlobStore struct {
	directory string
}

// OpenDirectory opens directory/container as a blob store, creating it if needed
func OpenDirectory(directory string, container string) (*FileSystemBlobStore, error) {
	dir := filepath.Join(directory, container)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &FileSystemBlobStore{
		directory: dir,
	}, nil
}

var _ blobtypes.BlobStore = (*FileSystemBlobStore)(nil)

func (bs *FileSystemBlobStore) getFilePath(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("invalid blob name: %q", name)
	}
	return filepath.Join(bs.directory, clean), nil
}

func (bs *FileSystemBlobStore) Get(ctx context.Context, name string) ([]byte, error) {
	filePath, err := bs.getFilePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return nil, blobtypes.ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return data, nil
}

func (bs *FileSystemBlobStore) Put(ctx context.Context, name string, data []byte) error {
	filePath, err := bs.getFilePath(name)
	if err != nil {
		return err
	}
	if consts.DEBUG_SAVE_LOAD {
		gwlog.Debugf("Saving blob to file %s: %d bytes", filePath, len(data))
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

func (bs *FileSystemBlobStore) Close() error {
	// need to do nothing
	return nil
}
