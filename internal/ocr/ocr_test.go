package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ais-clarity/internal/config"
)

func writeFile(t *testing.T, name, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	return path
}

func testMistral(url string) *MistralOCR {
	return &MistralOCR{
		apiKey:   "test-key",
		model:    "test-model",
		endpoint: url,
		client:   &http.Client{},
	}
}

func TestNewExtractor(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.OCRConfig
		wantLen int
		wantErr string
	}{
		{"local", config.OCRConfig{Provider: "local", PdfToTextPath: "/usr/bin/pdftotext"}, 2, ""},
		{"default", config.OCRConfig{}, 2, ""},
		{"none", config.OCRConfig{Provider: "none"}, 1, ""},
		{"mistral", config.OCRConfig{Provider: "mistral", MistralKey: "k"}, 2, ""},
		{"mistral without key", config.OCRConfig{Provider: "mistral"}, 0, "requires ocr.mistral_key"},
		{"unknown", config.OCRConfig{Provider: "tesseract"}, 0, `unknown provider "tesseract"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := NewExtractor(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, ex, tt.wantLen)
		})
	}
}

func TestChain_SkipsUnsupported(t *testing.T) {
	path := writeFile(t, "note.txt", "TDS certificate 45,000", 0o644)

	c := Chain{NewPdfToText("/nonexistent/pdftotext"), PlainText{}}
	text, err := c.ExtractText(context.Background(), path, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "TDS certificate 45,000", text)

	_, err = c.ExtractText(context.Background(), path, "image/png")
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestPlainText(t *testing.T) {
	path := writeFile(t, "ledger.csv", "date,amount\n2023-09-16,15200\n", 0o644)

	text, err := PlainText{}.ExtractText(context.Background(), path, "text/csv; charset=utf-8")
	require.NoError(t, err)
	assert.Contains(t, text, "15200")

	_, err = PlainText{}.ExtractText(context.Background(), path, "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = PlainText{}.ExtractText(context.Background(), "/nonexistent.txt", "text/plain")
	assert.Error(t, err)
}

func TestPdfToText_BinPath(t *testing.T) {
	assert.Equal(t, "pdftotext", NewPdfToText("").binPath)
	assert.Equal(t, "/custom/pdftotext", NewPdfToText("/custom/pdftotext").binPath)
}

func TestPdfToText_ExtractText_BinaryNotFound(t *testing.T) {
	_, err := NewPdfToText("/nonexistent/pdftotext").ExtractText(context.Background(), "/tmp/test.pdf", "application/pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestPdfToText_ExtractText_Success(t *testing.T) {
	fakeBin := writeFile(t, "pdftotext", "#!/bin/sh\necho 'Dividend credit 15200'\n", 0o755)

	text, err := NewPdfToText(fakeBin).ExtractText(context.Background(), "/tmp/dummy.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "Dividend credit 15200")
}

func TestPdfToText_Unsupported(t *testing.T) {
	_, err := NewPdfToText("").ExtractText(context.Background(), "/tmp/slip.png", "image/png")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestMistralOCR_DefaultModel(t *testing.T) {
	m := NewMistralOCR("key", "")
	assert.Equal(t, defaultMistralModel, m.model)
	assert.Equal(t, mistralOCREndpoint, m.endpoint)
	assert.Equal(t, "custom-model", NewMistralOCR("key", "custom-model").model)
}

func TestMistralOCR_ExtractText(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		mimeType string
		docType  string
		prefix   string
	}{
		{"pdf", "statement.pdf", "application/pdf", "document_url", "data:application/pdf;base64,"},
		{"image", "SalarySlip.png", "image/png", "image_url", "data:image/png;base64,"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

				var req mistralOCRRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "test-model", req.Model)
				assert.Equal(t, tt.docType, req.Document.Type)
				assert.Contains(t, req.Document.DocumentURL+req.Document.ImageURL, tt.prefix)

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(mistralOCRResponse{ //nolint:errcheck
					Pages: []mistralOCRPage{
						{Index: 0, Markdown: "Page one"},
						{Index: 1, Markdown: "Page two"},
					},
				})
			}))
			defer srv.Close()

			path := writeFile(t, tt.file, "binary", 0o644)
			text, err := testMistral(srv.URL).ExtractText(context.Background(), path, tt.mimeType)
			require.NoError(t, err)
			assert.Equal(t, "Page one\n\nPage two", text)
		})
	}
}

func TestMistralOCR_Errors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
		}))
		defer srv.Close()

		_, err := testMistral(srv.URL).ExtractText(context.Background(), writeFile(t, "a.pdf", "%PDF", 0o644), "application/pdf")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mistral API returned 401")
	})

	t.Run("malformed response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{invalid json`))
		}))
		defer srv.Close()

		_, err := testMistral(srv.URL).ExtractText(context.Background(), writeFile(t, "a.pdf", "%PDF", 0o644), "application/pdf")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unmarshal mistral response")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewMistralOCR("key", "").ExtractText(context.Background(), "/nonexistent/file.pdf", "application/pdf")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read document")
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := NewMistralOCR("key", "").ExtractText(context.Background(), "/tmp/a.zip", "application/zip")
		assert.ErrorIs(t, err, ErrUnsupported)
	})
}

func TestDetectMIME(t *testing.T) {
	assert.Equal(t, "application/pdf", DetectMIME("Statement.PDF", nil))
	assert.Equal(t, "image/png", DetectMIME("slip.png", nil))
	assert.Equal(t, "text/plain", DetectMIME("notes.unknownext", []byte("plain words")))
	assert.Equal(t, "application/pdf", DetectMIME("scan", []byte("%PDF-1.7\n")))
}

func TestFromFile(t *testing.T) {
	at := time.Date(2024, 7, 20, 8, 0, 0, 0, time.FixedZone("IST", 19800))
	path := writeFile(t, "interest.notes", "  Interest credited 4,210  \n", 0o644)

	ev, err := FromFile(context.Background(), Chain{PlainText{}}, path, "EVID-9", at)
	require.NoError(t, err)
	assert.Equal(t, "EVID-9", ev.ID)
	assert.Equal(t, "interest.notes", ev.Name)
	assert.Equal(t, "text/plain", ev.MimeType)
	assert.Equal(t, int64(28), ev.SizeBytes)
	assert.Equal(t, at.UTC(), ev.UploadedAt)
	require.NotNil(t, ev.ExtractedText)
	assert.Equal(t, "Interest credited 4,210", *ev.ExtractedText)
}

func TestFromFile_UnsupportedLeavesTextNil(t *testing.T) {
	path := writeFile(t, "slip.png", "\x89PNG\r\n\x1a\n", 0o644)

	ev, err := FromFile(context.Background(), Chain{PlainText{}}, path, "EVID-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "image/png", ev.MimeType)
	assert.Nil(t, ev.ExtractedText)
}

func TestFromFile_ExtractionFailureLeavesTextNil(t *testing.T) {
	path := writeFile(t, "stmt.pdf", "%PDF-1.4", 0o644)

	ev, err := FromFile(context.Background(), NewPdfToText("/nonexistent/pdftotext"), path, "EVID-2", time.Now())
	require.NoError(t, err)
	assert.Nil(t, ev.ExtractedText)
}

func TestFromFile_Missing(t *testing.T) {
	_, err := FromFile(context.Background(), Chain{}, "/nonexistent/file.pdf", "EVID-3", time.Now())
	assert.Error(t, err)

	_, err = FromFile(context.Background(), Chain{}, t.TempDir(), "EVID-4", time.Now())
	assert.Error(t, err)
}
