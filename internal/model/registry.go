package model

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-logr/logr"
)

// Identifiers is the closed set of model names, in load order.
var Identifiers = []string{"cnn", "vgg16", "resnet50", "inceptionv3", "mobilenetv2"}

// Loader turns an artifact on disk into a Model.
type Loader func(ctx context.Context, name, path string) (Model, error)

// ArtifactPath returns the artifact location for a model name under dir.
func ArtifactPath(dir, name string) string {
	return filepath.Join(dir, name+"_model.onnx")
}

// Registry maps model names to loaded models. It is read-only once built.
type Registry struct {
	models map[string]Model
	names  []string
}

func NewRegistry(models map[string]Model) *Registry {
	r := &Registry{models: make(map[string]Model, len(models))}
	for _, name := range Identifiers {
		if m, ok := models[name]; ok {
			r.models[name] = m
			r.names = append(r.names, name)
		}
	}
	return r
}

// LoadRegistry loads every identifier sequentially. The first failure closes what was loaded
// and is returned.
func LoadRegistry(ctx context.Context, dir string, load Loader) (*Registry, error) {
	log := logr.FromContextOrDiscard(ctx)
	models := make(map[string]Model, len(Identifiers))
	for _, name := range Identifiers {
		path := ArtifactPath(dir, name)
		log.Info("loading model", "name", name, "path", path)
		m, err := load(ctx, name, path)
		if err != nil {
			NewRegistry(models).Close()
			return nil, fmt.Errorf("load model %s from %s: %w", name, path, err)
		}
		models[name] = m
	}
	return NewRegistry(models), nil
}

func (r *Registry) Lookup(name string) (Model, bool) {
	m, ok := r.models[name]
	return m, ok
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

func (r *Registry) Close() error {
	var errs []error
	for _, name := range r.names {
		if err := r.models[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close model %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
