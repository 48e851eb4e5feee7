package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EvidencePlaceholder stands in for evidence whose text was never extracted.
const EvidencePlaceholder = "Binary/Document"

// Evidence is an uploaded document offered in support of (or against) a
// reported entry.
type Evidence struct {
	ID            string    `json:"id" yaml:"id"`
	Name          string    `json:"name" yaml:"name"`
	MimeType      string    `json:"mime_type" yaml:"mime_type"`
	SizeBytes     int64     `json:"size_bytes" yaml:"size_bytes"`
	UploadedAt    time.Time `json:"uploaded_at" yaml:"uploaded_at"`
	ExtractedText *string   `json:"extracted_text,omitempty" yaml:"extracted_text,omitempty"`
}

// NewEvidenceID returns a short random evidence id such as EVID-1A2B3C4D.
func NewEvidenceID() string {
	return "EVID-" + strings.ToUpper(uuid.NewString()[:8])
}

// Text returns the extracted text, or the placeholder when none exists.
func (e Evidence) Text() string {
	if e.ExtractedText == nil || *e.ExtractedText == "" {
		return EvidencePlaceholder
	}
	return *e.ExtractedText
}

// Clone returns a copy that shares no pointers with e.
func (e Evidence) Clone() Evidence {
	if e.ExtractedText != nil {
		t := *e.ExtractedText
		e.ExtractedText = &t
	}
	return e
}
