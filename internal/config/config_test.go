package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, DefaultListen, opts.Listen)
	assert.Equal(t, DefaultModelDir, opts.ModelDir)
	assert.Equal(t, "uploads", opts.Storage.Local.Basepath)
	assert.Empty(t, opts.Storage.S3.URL)
	assert.True(t, opts.KeepUploads)
	assert.GreaterOrEqual(t, opts.Workers, 1)
	assert.Zero(t, opts.InferenceTimeout)
	assert.Equal(t, DefaultShutdownTimeout, opts.ShutdownTimeout)
	require.NoError(t, opts.Validate())
}

func TestDefaultOptionsOnnxLibFromEnv(t *testing.T) {
	t.Setenv(OnnxLibEnv, "/opt/onnxruntime/lib/libonnxruntime.so")
	assert.Equal(t, "/opt/onnxruntime/lib/libonnxruntime.so", DefaultOptions().OnnxLib)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
listen: ":8080"
workers: 3
inferenceTimeout: 2s
keepUploads: false
storage:
  local:
    basepath: /var/lib/catdog/uploads
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	opts := DefaultOptions()
	require.NoError(t, LoadFile(path, opts))

	assert.Equal(t, ":8080", opts.Listen)
	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, 2*time.Second, opts.InferenceTimeout)
	assert.False(t, opts.KeepUploads)
	assert.Equal(t, "/var/lib/catdog/uploads", opts.Storage.Local.Basepath)
	// untouched keys keep defaults
	assert.Equal(t, DefaultModelDir, opts.ModelDir)
	assert.Equal(t, "uploads", opts.Storage.S3.Bucket)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	err := LoadFile(filepath.Join(dir, "missing.yaml"), DefaultOptions())
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("workers: [1"), 0o644))
	assert.Error(t, LoadFile(bad, DefaultOptions()))

}

func TestLoadFileLeavesValidationToCaller(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 0\nshutdownTimeout: 5s\n"), 0o644))

	opts := DefaultOptions()
	require.NoError(t, LoadFile(path, opts))
	assert.Equal(t, 0, opts.Workers)
	assert.Equal(t, 5*time.Second, opts.ShutdownTimeout)

	err := opts.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{name: "empty listen", mutate: func(o *Options) { o.Listen = "" }},
		{name: "empty model dir", mutate: func(o *Options) { o.ModelDir = "" }},
		{name: "negative timeout", mutate: func(o *Options) { o.InferenceTimeout = -time.Second }},
		{name: "negative shutdown timeout", mutate: func(o *Options) { o.ShutdownTimeout = -time.Second }},
		{name: "zero upload size", mutate: func(o *Options) { o.MaxUploadSize = 0 }},
		{name: "no storage", mutate: func(o *Options) { o.Storage.Local.Basepath = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(opts)
			assert.Error(t, opts.Validate())
		})
	}
}
