package ocr

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ais-clarity/internal/model"
)

// DetectMIME returns the MIME type for path from its extension, falling
// back to sniffing head. Parameters such as charset are dropped.
func DetectMIME(path string, head []byte) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if t == "" {
		t = http.DetectContentType(head)
	}
	base, _, _ := strings.Cut(t, ";")
	return strings.TrimSpace(base)
}

// FromFile builds an evidence record for the file at path and extracts its
// text with ex. A failed or unsupported extraction is logged and leaves
// ExtractedText nil; only an unreadable file is an error.
func FromFile(ctx context.Context, ex Extractor, path, id string, uploadedAt time.Time) (model.Evidence, error) {
	info, err := os.Stat(path)
	if err != nil {
		return model.Evidence{}, eris.Wrapf(err, "ocr: stat %s", path)
	}
	if info.IsDir() {
		return model.Evidence{}, eris.Errorf("ocr: %s is a directory", path)
	}

	head, err := readHead(path)
	if err != nil {
		return model.Evidence{}, err
	}

	ev := model.Evidence{
		ID:         id,
		Name:       filepath.Base(path),
		MimeType:   DetectMIME(path, head),
		SizeBytes:  info.Size(),
		UploadedAt: uploadedAt.UTC(),
	}

	log := zap.L().With(zap.String("evidence_id", id), zap.String("name", ev.Name))
	text, err := ex.ExtractText(ctx, path, ev.MimeType)
	switch {
	case errors.Is(err, ErrUnsupported):
		log.Info("ocr: no extractor for document type", zap.String("mime_type", ev.MimeType))
	case err != nil:
		log.Warn("ocr: extraction failed", zap.Error(err))
	default:
		if text = strings.TrimSpace(text); text != "" {
			ev.ExtractedText = &text
		}
	}
	return ev, nil
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ocr: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && n == 0 && !errors.Is(err, io.EOF) {
		return nil, eris.Wrapf(err, "ocr: read %s", path)
	}
	return buf[:n], nil
}
