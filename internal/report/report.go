// Package report builds the insight report and audit bundle for a client.
package report

import (
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/sells-group/ais-clarity/internal/aggregate"
	"github.com/sells-group/ais-clarity/internal/model"
)

var inr = message.NewPrinter(language.MustParse("en-IN"))

// FormatINR renders an amount with the rupee sign and Indian digit
// grouping, e.g. ₹12,50,000. At most two fraction digits are shown.
func FormatINR(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + "₹" + inr.Sprint(number.Decimal(amount, number.MaxFractionDigits(2)))
}

// Line is one reconciled entry in the report.
type Line struct {
	EntryID           string       `json:"entry_id"`
	Section           string       `json:"section"`
	Description       string       `json:"description"`
	ReportingEntity   string       `json:"reporting_entity"`
	FinancialYear     string       `json:"financial_year"`
	ReportedAmount    float64      `json:"reported_amount"`
	ReportedText      string       `json:"reported_text"`
	Status            model.Status `json:"status"`
	Explanation       string       `json:"explanation"`
	ConfidencePercent int          `json:"confidence_percent"`
	SuggestedAmount   *float64     `json:"suggested_amount,omitempty"`
	SuggestedText     string       `json:"suggested_text,omitempty"`
	Evidence          []string     `json:"evidence"`
	DecidedAt         time.Time    `json:"decided_at"`
}

// AuditRow is one audit event flattened with its entry id.
type AuditRow struct {
	EntryID string `json:"entry_id"`
	model.AuditEvent
}

// Report is the client insight report.
type Report struct {
	ClientID          string          `json:"client_id"`
	ClientName        string          `json:"client_name"`
	TaxpayerID        string          `json:"taxpayer_id"`
	Stats             aggregate.Stats `json:"stats"`
	VerifiedPercent   int             `json:"verified_percent"`
	AverageConfidence float64         `json:"average_confidence"`
	Lines             []Line          `json:"lines"`
	Audit             []AuditRow      `json:"audit"`
}

// Build assembles the report from a client snapshot and the evidence set.
// Only entries with a verdict become lines; the audit trail covers every
// entry. Evidence ids are resolved to names, unknown ids are kept as-is.
func Build(c model.ClientRecord, evidence []model.Evidence) Report {
	names := make(map[string]string, len(evidence))
	for _, ev := range evidence {
		names[ev.ID] = ev.Name
	}

	r := Report{
		ClientID:          c.ID,
		ClientName:        c.Name,
		TaxpayerID:        c.TaxpayerID,
		Stats:             aggregate.Summarize(c.Entries),
		VerifiedPercent:   aggregate.VerifiedPercentage(c.Entries),
		AverageConfidence: aggregate.AverageConfidence(c.Entries),
		Lines:             []Line{},
		Audit:             []AuditRow{},
	}

	for _, e := range aggregate.Reconciled(c.Entries) {
		v := e.Reconciliation
		line := Line{
			EntryID:           e.ID,
			Section:           e.Section.Label(),
			Description:       e.Description,
			ReportingEntity:   e.ReportingEntity,
			FinancialYear:     e.FinancialYear,
			ReportedAmount:    e.ReportedAmount,
			ReportedText:      FormatINR(e.ReportedAmount),
			Status:            v.Status,
			Explanation:       v.Explanation,
			ConfidencePercent: int(math.Round(v.ConfidenceScore * 100)),
			Evidence:          make([]string, 0, len(v.EvidenceIDs)),
			DecidedAt:         v.DecidedAt,
		}
		if v.SuggestedActualAmount != nil {
			amt := *v.SuggestedActualAmount
			line.SuggestedAmount = &amt
			line.SuggestedText = FormatINR(amt)
		}
		for _, id := range v.EvidenceIDs {
			if name, ok := names[id]; ok {
				line.Evidence = append(line.Evidence, name)
			} else {
				line.Evidence = append(line.Evidence, id)
			}
		}
		r.Lines = append(r.Lines, line)
	}

	for _, e := range c.Entries {
		for _, ev := range e.AuditTrail {
			r.Audit = append(r.Audit, AuditRow{EntryID: e.ID, AuditEvent: ev})
		}
	}
	return r
}
