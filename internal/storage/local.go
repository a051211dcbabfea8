package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultFileMode = 0o644
	DefaultDirMode  = 0o755
)

type LocalOptions struct {
	Basepath string `yaml:"basepath"`
}

func NewDefaultLocalOptions() *LocalOptions {
	return &LocalOptions{Basepath: "uploads"}
}

var _ Store = &LocalStore{}

type LocalStore struct {
	basepath string
}

// NewLocalStore creates the upload directory when it does not exist.
func NewLocalStore(options *LocalOptions) (*LocalStore, error) {
	if err := os.MkdirAll(options.Basepath, DefaultDirMode); err != nil {
		return nil, err
	}
	return &LocalStore{basepath: options.Basepath}, nil
}

func (f *LocalStore) Put(ctx context.Context, key string, content Content) error {
	datafile, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(datafile), DefaultDirMode); err != nil {
		return err
	}
	// write to a sibling temp file and rename so readers never see a partial file
	tmp, err := os.CreateTemp(filepath.Dir(datafile), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, content.Content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(DefaultFileMode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), datafile)
}

func (f *LocalStore) Get(ctx context.Context, key string) (*Object, error) {
	datafile, err := f.path(key)
	if err != nil {
		return nil, err
	}
	fi, err := os.Open(datafile)
	if err != nil {
		return nil, err
	}
	stat, err := fi.Stat()
	if err != nil {
		fi.Close()
		return nil, err
	}
	return &Object{ReadCloser: fi, ContentLength: stat.Size()}, nil
}

func (f *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	datafile, err := f.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(datafile)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (f *LocalStore) Remove(ctx context.Context, key string) error {
	datafile, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(datafile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (f *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(f.basepath, clean), nil
}
