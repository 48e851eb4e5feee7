// Package analysis defines the contract with the external reconciliation
// analyst and adapters for the Claude and Gemini APIs.
package analysis

import (
	"context"

	"github.com/sells-group/ais-clarity/internal/model"
)

// EntrySummary carries the reportable fields of the entry under review.
type EntrySummary struct {
	ID              string        `json:"id"`
	Section         model.Section `json:"section"`
	Description     string        `json:"description"`
	ReportedAmount  float64       `json:"reportedAmount"`
	ReportingEntity string        `json:"reportingEntity"`
	FinancialYear   string        `json:"financialYear,omitempty"`
}

// EvidenceRef is one line of the evidence manifest.
type EvidenceRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// Request is everything the analyst sees for a single entry.
type Request struct {
	Entry    EntrySummary  `json:"entrySummary"`
	Evidence []EvidenceRef `json:"evidenceManifest"`
}

// NewRequest builds a request from an entry and the evidence set, in the
// evidence set's order. Evidence without extracted text is sent as
// model.EvidencePlaceholder.
func NewRequest(e model.Entry, evidence []model.Evidence) Request {
	refs := make([]EvidenceRef, len(evidence))
	for i, ev := range evidence {
		refs[i] = EvidenceRef{ID: ev.ID, Name: ev.Name, Text: ev.Text()}
	}
	return Request{
		Entry: EntrySummary{
			ID:              e.ID,
			Section:         e.Section,
			Description:     e.Description,
			ReportedAmount:  e.ReportedAmount,
			ReportingEntity: e.ReportingEntity,
			FinancialYear:   e.FinancialYear,
		},
		Evidence: refs,
	}
}

// Analyzer calls the external analyst once and returns its raw JSON
// response. It does not validate the response and never retries.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) ([]byte, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc func(ctx context.Context, req Request) ([]byte, error)

// Analyze calls f.
func (f AnalyzerFunc) Analyze(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}
