package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Brownie44l1/catdog-api/internal/storage"
)

const (
	DefaultListen        = ":5000"
	DefaultModelDir      = "model"
	DefaultMaxUploadSize = int64(32 << 20)
	// DefaultShutdownTimeout bounds how long in-flight requests may drain on shutdown.
	DefaultShutdownTimeout = 30 * time.Second

	// OnnxLibEnv names the environment variable holding the onnxruntime shared library path.
	OnnxLibEnv = "ONNXRUNTIME_LIB"
)

type Options struct {
	Listen           string           `yaml:"listen"`
	ModelDir         string           `yaml:"modelDir"`
	OnnxLib          string           `yaml:"onnxLib"`
	Workers          int              `yaml:"workers"`
	InferenceTimeout time.Duration    `yaml:"inferenceTimeout"`
	MaxUploadSize    int64            `yaml:"maxUploadSize"`
	ShutdownTimeout  time.Duration    `yaml:"shutdownTimeout"`
	KeepUploads      bool             `yaml:"keepUploads"`
	Storage          *storage.Options `yaml:"storage"`
}

func DefaultOptions() *Options {
	return &Options{
		Listen:          DefaultListen,
		ModelDir:        DefaultModelDir,
		OnnxLib:         os.Getenv(OnnxLibEnv),
		Workers:         runtime.NumCPU(),
		MaxUploadSize:   DefaultMaxUploadSize,
		ShutdownTimeout: DefaultShutdownTimeout,
		KeepUploads:     true,
		Storage:         storage.NewDefaultOptions(),
	}
}

// LoadFile overlays the YAML file at path onto opts. Keys absent from the file keep their
// current values. The result is not validated; callers validate once every source is applied.
func LoadFile(path string, opts *Options) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, opts); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (o *Options) Validate() error {
	if o.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if o.ModelDir == "" {
		return fmt.Errorf("model directory must not be empty")
	}
	if o.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", o.Workers)
	}
	if o.InferenceTimeout < 0 {
		return fmt.Errorf("inference timeout must not be negative")
	}
	if o.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown timeout must not be negative")
	}
	if o.MaxUploadSize <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d", o.MaxUploadSize)
	}
	if o.Storage == nil || (o.Storage.S3 == nil || o.Storage.S3.URL == "") && (o.Storage.Local == nil || o.Storage.Local.Basepath == "") {
		return fmt.Errorf("an upload directory or s3 url is required")
	}
	return nil
}
