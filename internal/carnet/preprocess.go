package carnet

import (
	"bytes"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	// WebP decoding for image.Decode
	_ "golang.org/x/image/webp"
)

const (
	maxEdge    = 1200
	minEdge    = 600
	upscaleFit = 800
)

// ImagePreprocessor greyscales, denoises and rescales card photos so the OCR
// engine sees high contrast text at a usable size. Output is always JPEG.
type ImagePreprocessor struct {
	Contrast   float64
	Brightness float64
	Levels     int
	Blur       float64
	Quality    int
}

func NewImagePreprocessor() *ImagePreprocessor {
	return &ImagePreprocessor{
		Contrast:   70,
		Brightness: 10,
		Levels:     6,
		Blur:       1,
		Quality:    90,
	}
}

// Preprocess never fails. Undecodable input, encoder errors and panics from
// the imaging code all return img untouched.
func (p *ImagePreprocessor) Preprocess(img []byte) (out []byte) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("Image preprocessing panicked, using original photo", zap.Any("panic", r))
			out = img
		}
	}()

	src, err := imaging.Decode(bytes.NewReader(img), imaging.AutoOrientation(true))
	if err != nil {
		zap.L().Debug("Failed to decode photo for preprocessing", zap.Error(err))
		return img
	}

	dst := imaging.Grayscale(src)
	dst = imaging.AdjustContrast(dst, p.Contrast)
	dst = normalizeHistogram(dst)
	dst = imaging.AdjustBrightness(dst, p.Brightness)
	dst = posterize(dst, p.Levels)
	dst = imaging.Blur(dst, p.Blur)
	dst = imaging.Convolve3x3(dst, [9]float64{
		-1, -1, -1,
		-1, 9, -1,
		-1, -1, -1,
	}, nil)
	dst = rescale(dst)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, imaging.JPEG, imaging.JPEGQuality(p.Quality)); err != nil {
		zap.L().Debug("Failed to encode preprocessed photo", zap.Error(err))
		return img
	}

	return buf.Bytes()
}

// rescale shrinks anything over maxEdge and blows up anything under minEdge so
// it fits an upscaleFit square
func rescale(img *image.NRGBA) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w == 0 || h == 0 {
		return img
	}

	switch {
	case w > maxEdge || h > maxEdge:
		return imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	case w < minEdge || h < minEdge:
		// imaging.Fit never enlarges
		scale := math.Min(float64(upscaleFit)/float64(w), float64(upscaleFit)/float64(h))
		nw := max(1, int(math.Round(float64(w)*scale)))
		nh := max(1, int(math.Round(float64(h)*scale)))
		return imaging.Resize(img, nw, nh, imaging.Lanczos)
	}

	return img
}

// normalizeHistogram stretches the grey range of img to the full 0-255 scale
func normalizeHistogram(img *image.NRGBA) *image.NRGBA {
	lo, hi := uint8(255), uint8(0)
	for i := 0; i+3 < len(img.Pix); i += 4 {
		v := img.Pix[i]
		lo = min(lo, v)
		hi = max(hi, v)
	}

	if hi <= lo {
		return img
	}

	span := float64(hi - lo)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		v := uint8(math.Round(float64(c.R-lo) * 255 / span))
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}

// posterize reduces every channel to n evenly spaced levels
func posterize(img *image.NRGBA, n int) *image.NRGBA {
	if n < 2 {
		return img
	}

	step := 255 / float64(n-1)
	level := func(v uint8) uint8 {
		return uint8(math.Round(math.Round(float64(v)/step) * step))
	}

	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: level(c.R), G: level(c.G), B: level(c.B), A: c.A}
	})
}
