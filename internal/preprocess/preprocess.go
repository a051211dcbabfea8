// Package preprocess turns images into model input tensors.
package preprocess

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/nfnt/resize"

	"github.com/Brownie44l1/catdog-api/internal/model"
)

const channels = 3

// PrepareImage decodes the image at path and returns a (1, size, size, 3) tensor.
func PrepareImage(path string, size int) (model.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Tensor{}, err
	}
	defer f.Close()
	return PrepareReader(f, size)
}

// PrepareReader is PrepareImage for an already opened stream.
func PrepareReader(r io.Reader, size int) (model.Tensor, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return model.Tensor{}, fmt.Errorf("decode image: %w", err)
	}
	return FromImage(img, size), nil
}

// FromImage resizes img to size x size without keeping the aspect ratio and scales each RGB
// channel into [0, 1]. Alpha is discarded. The layout is NHWC.
func FromImage(img image.Image, size int) model.Tensor {
	if size <= 0 {
		size = model.DefaultImageSize
	}
	resized := resize.Resize(uint(size), uint(size), img, resize.NearestNeighbor)

	bounds := resized.Bounds()
	data := make([]float32, size*size*channels)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := color.NRGBAModel.Convert(resized.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			i := (y*size + x) * channels
			data[i] = float32(c.R) / 255.0
			data[i+1] = float32(c.G) / 255.0
			data[i+2] = float32(c.B) / 255.0
		}
	}

	return model.Tensor{
		Shape: []int64{1, int64(size), int64(size), channels},
		Data:  data,
	}
}
