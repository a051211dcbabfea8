package model

import "context"

const (
	LabelPositive = "Dog detected"
	LabelNegative = "Cat detected"

	// Threshold is the fixed cut point between the two labels.
	Threshold float32 = 0.5

	DefaultImageSize = 224
)

type Metadata struct {
	InputName   string  `json:"input_name"`
	OutputName  string  `json:"output_name"`
	InputShape  []int64 `json:"input_shape"`
	OutputShape []int64 `json:"output_shape"`
	ImageSize   int     `json:"image_size"`
}

func DefaultMetadata() Metadata {
	return Metadata{
		InputName:   "input",
		OutputName:  "output",
		InputShape:  []int64{1, DefaultImageSize, DefaultImageSize, 3},
		OutputShape: []int64{1, 1},
		ImageSize:   DefaultImageSize,
	}
}

// Tensor is a dense row-major float32 array.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Elements returns the number of values the shape describes.
func (t Tensor) Elements() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := 1
	for _, dim := range t.Shape {
		n *= int(dim)
	}
	return n
}

// Model is a pre-loaded inference object.
type Model interface {
	Predict(ctx context.Context, input Tensor) ([]float32, error)
	Metadata() Metadata
	Close() error
}

type PredictionResponse struct {
	Result    string `json:"result"`
	ModelUsed string `json:"model_used"`
}

// Decide maps a score to a label. Exactly Threshold is negative.
func Decide(score float32) string {
	if score > Threshold {
		return LabelPositive
	}
	return LabelNegative
}
