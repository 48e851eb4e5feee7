package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Status is the classified outcome of a reconciliation.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusVerified    Status = "VERIFIED"
	StatusExplainable Status = "EXPLAINABLE"
	StatusUnexplained Status = "UNEXPLAINED"
	StatusRiskFlag    Status = "RISK_FLAG"
)

// Statuses lists every recognized status in display order.
var Statuses = []Status{
	StatusVerified,
	StatusExplainable,
	StatusUnexplained,
	StatusRiskFlag,
	StatusPending,
}

// Valid reports whether s is one of the recognized statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusExplainable, StatusUnexplained, StatusRiskFlag:
		return true
	default:
		return false
	}
}

// ParseStatus parses a status name. Surrounding whitespace is ignored but
// the match is case-sensitive, as the collaborator is instructed to emit the
// exact names.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.TrimSpace(s))
	if !st.Valid() {
		return "", eris.Errorf("unrecognized status %q", s)
	}
	return st, nil
}

// Verdict is the result of one successful reconciliation analysis. A new
// analysis replaces it wholesale.
type Verdict struct {
	Status                Status    `json:"status" yaml:"status"`
	Explanation           string    `json:"explanation" yaml:"explanation"`
	EvidenceIDs           []string  `json:"evidence_ids" yaml:"evidence_ids"`
	ConfidenceScore       float64   `json:"confidence_score" yaml:"confidence_score"`
	SuggestedActualAmount *float64  `json:"suggested_actual_amount,omitempty" yaml:"suggested_actual_amount,omitempty"`
	DecidedAt             time.Time `json:"decided_at" yaml:"decided_at"`
}

// Clone returns a deep copy of v.
func (v *Verdict) Clone() *Verdict {
	if v == nil {
		return nil
	}
	out := *v
	out.EvidenceIDs = append([]string(nil), v.EvidenceIDs...)
	if out.EvidenceIDs == nil {
		out.EvidenceIDs = []string{}
	}
	if v.SuggestedActualAmount != nil {
		amt := *v.SuggestedActualAmount
		out.SuggestedActualAmount = &amt
	}
	return &out
}
