// Package storage persists uploaded images under content-addressed keys.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
)

type Content struct {
	Content       io.Reader
	ContentType   string
	ContentLength int64
}

// Object is a stored upload opened for reading.
type Object struct {
	io.ReadCloser
	ContentType   string
	ContentLength int64
}

type Store interface {
	Put(ctx context.Context, key string, content Content) error
	Get(ctx context.Context, key string) (*Object, error)
	Exists(ctx context.Context, key string) (bool, error)
	Remove(ctx context.Context, key string) error
}

var extRegexp = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// Key derives the storage key for an upload. Only the extension of the client filename is
// kept, and only when it is short and alphanumeric.
func Key(d digest.Digest, filename string) string {
	return d.Algorithm().String() + "/" + d.Encoded() + extension(filename)
}

// RequestKey is Key with a random suffix, for uploads owned by a single request and removed
// once it is served.
func RequestKey(d digest.Digest, filename string) string {
	return d.Algorithm().String() + "/" + d.Encoded() + "-" + uuid.New().String() + extension(filename)
}

func extension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filepath.ToSlash(filename))))
	if !extRegexp.MatchString(ext) {
		return ""
	}
	return ext
}

type Options struct {
	Local *LocalOptions `yaml:"local"`
	S3    *S3Options    `yaml:"s3"`
}

func NewDefaultOptions() *Options {
	return &Options{
		Local: NewDefaultLocalOptions(),
		S3:    NewDefaultS3Options(),
	}
}

// NewStore returns an S3 store when an S3 URL is configured and a local store otherwise.
func NewStore(ctx context.Context, options *Options) (Store, error) {
	if options.S3 != nil && options.S3.URL != "" {
		return NewS3Store(ctx, options.S3)
	}
	if options.Local != nil && options.Local.Basepath != "" {
		return NewLocalStore(options.Local)
	}
	return nil, errors.New("no upload storage is configured")
}
