package ocr

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// maxTextBytes caps how much of a text document is kept.
const maxTextBytes = 256 << 10

// PlainText reads text documents (text/*, JSON, CSV) as-is.
type PlainText struct{}

// ExtractText implements Extractor.
func (PlainText) ExtractText(_ context.Context, path, mimeType string) (string, error) {
	if !isText(mimeType) {
		return "", ErrUnsupported
	}

	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "ocr: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(f, maxTextBytes))
	if err != nil {
		return "", eris.Wrapf(err, "ocr: read %s", path)
	}
	return string(data), nil
}

func isText(mimeType string) bool {
	base, _, _ := strings.Cut(mimeType, ";")
	base = strings.TrimSpace(base)
	return strings.HasPrefix(base, "text/") || base == "application/json" || base == "application/csv"
}
