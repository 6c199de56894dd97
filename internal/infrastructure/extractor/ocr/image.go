package ocr

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"
)

// downscale writes a copy of the image at path resized to maxWidth into dir
// when it is wider than maxWidth. It returns the path tesseract should read;
// formats the decoder does not know are passed through unchanged.
func downscale(path, dir string, maxWidth int) (string, error) {
	if maxWidth <= 0 {
		return path, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil || cfg.Width <= maxWidth {
		return path, nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	img, _, err := image.Decode(f)
	if err != nil {
		return path, nil
	}

	height := uint(float64(maxWidth) * float64(cfg.Height) / float64(cfg.Width))
	resized := resize.Resize(uint(maxWidth), height, img, resize.Lanczos3)

	out, err := os.CreateTemp(dir, "scaled-*.png")
	if err != nil {
		return "", fmt.Errorf("create scaled image: %w", err)
	}
	defer out.Close()
	if err := png.Encode(out, resized); err != nil {
		return "", fmt.Errorf("encode scaled image: %w", err)
	}
	return filepath.Clean(out.Name()), nil
}
