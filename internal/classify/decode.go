package classify

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxPixels bounds the declared width*height of an image accepted by Decode.
// The header is checked before any pixel buffer is allocated.
const MaxPixels = 50_000_000

// Decode reads an encoded image. Supported: JPEG, PNG, GIF, BMP, TIFF, WebP.
func Decode(r io.Reader) (image.Image, string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, "", errors.Wrapf(ErrInvalidInput, "read image: %v", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, "", errors.Wrapf(ErrInvalidInput, "decode image header: %v", err)
	}
	if cfg.Width < 1 || cfg.Height < 1 {
		return nil, "", errors.Wrapf(ErrInvalidInput, "image is %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", errors.Wrapf(ErrInvalidInput, "image is %dx%d, exceeds %d pixels",
			cfg.Width, cfg.Height, MaxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", errors.Wrapf(ErrInvalidInput, "decode image: %v", err)
	}
	return img, format, nil
}

// DecodeFile opens and decodes the image at path.
func DecodeFile(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", errors.Wrapf(ErrInvalidInput, "open image: %v", err)
	}
	defer f.Close()

	return Decode(f)
}
