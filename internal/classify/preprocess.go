package classify

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// Channels is the number of values stored per pixel (R, G, B).
const Channels = 3

// Filter selects the resampling used when scaling an image down to the model size.
type Filter string

const (
	// FilterNearest is point sampling without antialiasing.
	FilterNearest Filter = "nearest"
	// FilterBilinear interpolates between the four nearest source pixels.
	FilterBilinear Filter = "bilinear"
	// FilterLanczos3 is the windowed sinc filter with a support of three.
	FilterLanczos3 Filter = "lanczos3"
)

// ParseFilter maps a config string to a Filter. The empty string means nearest.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "", FilterNearest:
		return FilterNearest, nil
	case FilterBilinear, FilterLanczos3:
		return Filter(s), nil
	}
	return "", errors.Errorf("unknown resample filter %q", s)
}

// Tensor is a square RGB image flattened row by row with interleaved channels,
// every value in [0, 1].
type Tensor struct {
	Size int
	Data []float32
}

// Len is the number of values a tensor of the given side holds.
func Len(size int) int {
	return size * size * Channels
}

// NewTensor validates raw values supplied by a caller that already did its own
// preprocessing.
func NewTensor(size int, data []float32) (Tensor, error) {
	if size <= 0 {
		return Tensor{}, errors.Wrapf(ErrInvalidInput, "tensor size %d", size)
	}
	if len(data) != Len(size) {
		return Tensor{}, errors.Wrapf(ErrInvalidInput, "expected %d values, got %d", Len(size), len(data))
	}
	for i, v := range data {
		if math.IsNaN(float64(v)) || v < 0 || v > 1 {
			return Tensor{}, errors.Wrapf(ErrInvalidInput, "value %v at %d outside [0,1]", v, i)
		}
	}
	return Tensor{Size: size, Data: data}, nil
}

// Fit square-crops img around its center to the smaller dimension and scales
// the result to size x size.
func Fit(img image.Image, size int, filter Filter) (image.Image, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "target size %d", size)
	}

	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	square := img
	if b.Dx() != b.Dy() {
		square = imaging.CropCenter(img, side, side)
	}
	if side == size {
		return square, nil
	}

	switch filter {
	case FilterBilinear:
		return resize.Resize(uint(size), uint(size), square, resize.Bilinear), nil
	case FilterLanczos3:
		return resize.Resize(uint(size), uint(size), square, resize.Lanczos3), nil
	case "", FilterNearest:
		dst := image.NewNRGBA(image.Rect(0, 0, size, size))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), square, square.Bounds(), draw.Src, nil)
		return dst, nil
	}
	return nil, errors.Errorf("unknown resample filter %q", filter)
}

// Preprocess turns img into the model input tensor. Images that are not
// already targetSize square are fitted with nearest sampling first.
func Preprocess(img image.Image, targetSize int) (Tensor, error) {
	if targetSize <= 0 {
		return Tensor{}, errors.Wrapf(ErrInvalidInput, "target size %d", targetSize)
	}
	if err := checkImage(img); err != nil {
		return Tensor{}, err
	}

	b := img.Bounds()
	if b.Dx() != targetSize || b.Dy() != targetSize {
		fitted, err := Fit(img, targetSize, FilterNearest)
		if err != nil {
			return Tensor{}, err
		}
		img = fitted
		b = img.Bounds()
	}

	data := make([]float32, 0, Len(targetSize))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			data = append(data,
				float32(c.R)/255.0,
				float32(c.G)/255.0,
				float32(c.B)/255.0,
			)
		}
	}
	return Tensor{Size: targetSize, Data: data}, nil
}

func checkImage(img image.Image) error {
	if img == nil {
		return errors.Wrap(ErrInvalidInput, "nil image")
	}
	b := img.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 {
		return errors.Wrapf(ErrInvalidInput, "image is %dx%d", b.Dx(), b.Dy())
	}
	return nil
}
