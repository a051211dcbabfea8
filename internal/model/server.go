package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	ort "github.com/yalue/onnxruntime_go"
)

// Runtime owns the process-wide ONNX Runtime environment.
type Runtime struct{}

func NewRuntime(ctx context.Context, sharedLibraryPath string) (*Runtime, error) {
	log := logr.FromContextOrDiscard(ctx)
	if sharedLibraryPath != "" {
		log.Info("using onnxruntime shared library", "path", sharedLibraryPath)
		ort.SetSharedLibraryPath(sharedLibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	return &Runtime{}, nil
}

// Load is a Loader backed by ONNX Runtime sessions.
func (rt *Runtime) Load(ctx context.Context, name, modelPath string) (Model, error) {
	metadata, err := ReadMetadata(MetadataPath(modelPath))
	if err != nil {
		return nil, err
	}
	return NewSession(modelPath, metadata)
}

func (rt *Runtime) Close() error {
	return ort.DestroyEnvironment()
}

// ErrSessionClosed is returned by Predict after Close.
var ErrSessionClosed = errors.New("model session is closed")

// Session holds one ONNX graph with fixed input and output tensors. Runs are serialized.
type Session struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

func NewSession(modelPath string, metadata Metadata) (*Session, error) {
	inputShape := ort.NewShape(metadata.InputShape...)
	outputShape := ort.NewShape(metadata.OutputShape...)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Session{
		session:      session,
		metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (s *Session) Metadata() Metadata {
	return s.metadata
}

func (s *Session) Predict(ctx context.Context, input Tensor) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dst := s.inputTensor.GetData()
	if len(input.Data) != len(dst) {
		return nil, fmt.Errorf("expected %d input values, got %d", len(dst), len(input.Data))
	}
	copy(dst, input.Data)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := make([]float32, len(s.outputTensor.GetData()))
	copy(out, s.outputTensor.GetData())
	return out, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.session != nil {
		errs = append(errs, s.session.Destroy())
		s.session = nil
	}
	if s.inputTensor != nil {
		errs = append(errs, s.inputTensor.Destroy())
		s.inputTensor = nil
	}
	if s.outputTensor != nil {
		errs = append(errs, s.outputTensor.Destroy())
		s.outputTensor = nil
	}
	return errors.Join(errs...)
}

// MetadataPath returns the JSON sidecar path for a model artifact.
func MetadataPath(modelPath string) string {
	return strings.TrimSuffix(modelPath, ".onnx") + ".json"
}

// ReadMetadata parses a metadata sidecar. A missing file yields DefaultMetadata; fields left
// empty in the file take their defaults, except the image size, which follows the input shape.
func ReadMetadata(path string) (Metadata, error) {
	metadata := DefaultMetadata()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return metadata, nil
		}
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var parsed Metadata
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata %s: %w", path, err)
	}
	if parsed.InputName != "" {
		metadata.InputName = parsed.InputName
	}
	if parsed.OutputName != "" {
		metadata.OutputName = parsed.OutputName
	}
	if len(parsed.InputShape) > 0 {
		metadata.InputShape = parsed.InputShape
	}
	if len(parsed.OutputShape) > 0 {
		metadata.OutputShape = parsed.OutputShape
	}
	switch {
	case parsed.ImageSize > 0:
		metadata.ImageSize = parsed.ImageSize
	case len(parsed.InputShape) == 4 && parsed.InputShape[1] > 0:
		// NHWC
		metadata.ImageSize = int(parsed.InputShape[1])
	}
	return metadata, nil
}
