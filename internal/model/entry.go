package model

import (
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Section identifies the AIS statement section an entry was reported under.
type Section string

const (
	SectionSFT          Section = "SFT"
	SectionTDS          Section = "TDS"
	SectionTaxPayment   Section = "TAX_PAYMENT"
	SectionDemandRefund Section = "DEMAND_REFUND"
	SectionOther        Section = "OTHER"
)

var sectionLabels = map[Section]string{
	SectionSFT:          "SFT",
	SectionTDS:          "TDS",
	SectionTaxPayment:   "Tax Payment",
	SectionDemandRefund: "Demand & Refund",
	SectionOther:        "Other",
}

// Valid reports whether s is a known section.
func (s Section) Valid() bool {
	_, ok := sectionLabels[s]
	return ok
}

// Label returns the human-readable section name used on the statement.
func (s Section) Label() string {
	if l, ok := sectionLabels[s]; ok {
		return l
	}
	return string(s)
}

// ParseSection maps a section code or its statement label, in any case,
// to a Section.
func ParseSection(s string) (Section, bool) {
	s = strings.TrimSpace(s)
	for sec, label := range sectionLabels {
		if strings.EqualFold(s, string(sec)) || strings.EqualFold(s, label) {
			return sec, true
		}
	}
	return "", false
}

// AuditEvent records one action taken against an entry.
type AuditEvent struct {
	ID        string    `json:"id" yaml:"id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Action    string    `json:"action" yaml:"action"`
	Actor     string    `json:"actor" yaml:"actor"`
	Details   string    `json:"details" yaml:"details"`
}

// Entry is a single reported line item from an annual information statement.
type Entry struct {
	ID              string       `json:"id" yaml:"id"`
	Section         Section      `json:"section" yaml:"section"`
	Description     string       `json:"description" yaml:"description"`
	ReportedAmount  float64      `json:"reported_amount" yaml:"reported_amount"`
	ReportingEntity string       `json:"reporting_entity" yaml:"reporting_entity"`
	FinancialYear   string       `json:"financial_year" yaml:"financial_year"`
	Reconciliation  *Verdict     `json:"reconciliation,omitempty" yaml:"reconciliation,omitempty"`
	AuditTrail      []AuditEvent `json:"audit_trail" yaml:"audit_trail"`
}

// Validate checks the fields fixed at ingestion.
func (e Entry) Validate() error {
	if e.ID == "" {
		return eris.New("entry: id is required")
	}
	if !e.Section.Valid() {
		return eris.Errorf("entry %s: unknown section %q", e.ID, e.Section)
	}
	if math.IsNaN(e.ReportedAmount) || math.IsInf(e.ReportedAmount, 0) {
		return eris.Errorf("entry %s: reported amount must be a finite number", e.ID)
	}
	if e.ReportedAmount < 0 {
		return eris.Errorf("entry %s: reported amount must be non-negative", e.ID)
	}
	return nil
}

// StatusOrPending returns the verdict status, or PENDING without a verdict.
func (e Entry) StatusOrPending() Status {
	if e.Reconciliation == nil {
		return StatusPending
	}
	return e.Reconciliation.Status
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	e.Reconciliation = e.Reconciliation.Clone()
	e.AuditTrail = append([]AuditEvent(nil), e.AuditTrail...)
	return e
}
