// Package ocr extracts text from uploaded evidence so the analyst can read
// documents that arrive as PDFs, images or plain text.
package ocr

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ais-clarity/internal/config"
)

// ErrUnsupported is returned by an extractor that cannot read a document type.
var ErrUnsupported = eris.New("ocr: unsupported document type")

// Extractor extracts text content from a document file.
type Extractor interface {
	ExtractText(ctx context.Context, path, mimeType string) (string, error)
}

// Chain tries each extractor in turn, skipping those that return
// ErrUnsupported.
type Chain []Extractor

// ExtractText implements Extractor.
func (c Chain) ExtractText(ctx context.Context, path, mimeType string) (string, error) {
	for _, ex := range c {
		text, err := ex.ExtractText(ctx, path, mimeType)
		if errors.Is(err, ErrUnsupported) {
			continue
		}
		return text, err
	}
	return "", eris.Wrapf(ErrUnsupported, "ocr: %s", mimeType)
}

// NewExtractor creates an Extractor based on config. Plain text is always
// read directly; the provider handles PDFs and, for mistral, images.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "local", "":
		return Chain{PlainText{}, NewPdfToText(cfg.PdfToTextPath)}, nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires ocr.mistral_key")
		}
		return Chain{PlainText{}, NewMistralOCR(cfg.MistralKey, cfg.MistralModel)}, nil
	case "none":
		return Chain{PlainText{}}, nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}
