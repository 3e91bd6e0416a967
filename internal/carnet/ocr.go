// Package carnet verifies student card photos. A photo is preprocessed, run
// through an OCR engine, scored against the expected card markers and the
// claimed carnet number, and the score is turned into a decision.
package carnet

import (
	"context"
	"errors"
)

// Whitelist is the alphabet the OCR engine is restricted to: Romanian letters,
// digits and the punctuation printed on the cards
const Whitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZĂÂÎȘȚabcdefghijklmnopqrstuvwxyzăâîșț0123456789 -.,/"

const DefaultLanguages = "ron+eng"

var (
	ErrQueueFull     = errors.New("ocr queue full")
	ErrQueueStopped  = errors.New("ocr queue stopped")
	ErrEngineFailure = errors.New("ocr engine failed")
)

// Engine extracts text from an image. Confidence is the engine's own
// estimate in the 0-100 range.
type Engine interface {
	ExtractText(ctx context.Context, img []byte, lang string) (text string, confidence float64, err error)
}

// Preprocessor prepares a photo for OCR. Implementations return the input
// unchanged when they can't process it.
type Preprocessor interface {
	Preprocess(img []byte) []byte
}

// PreprocessFunc adapts a plain function to Preprocessor
type PreprocessFunc func([]byte) []byte

func (f PreprocessFunc) Preprocess(img []byte) []byte {
	return f(img)
}

// StaticEngine always returns the same result. Useful in tests and when OCR
// is disabled.
type StaticEngine struct {
	Text       string
	Confidence float64
	Err        error
}

func (s StaticEngine) ExtractText(ctx context.Context, _ []byte, _ string) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	return s.Text, s.Confidence, s.Err
}
