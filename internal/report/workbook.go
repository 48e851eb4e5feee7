package report

import (
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Sheet names in the exported workbook.
const (
	LedgerSheet = "Ledger"
	AuditSheet  = "Audit Trail"
)

var ledgerHeader = []string{
	"Entry ID", "Section", "Description", "Reporting Entity", "Financial Year",
	"Reported Amount", "Status", "Confidence %", "Suggested Amount", "Evidence", "Explanation", "Decided At",
}

var auditHeader = []string{"Entry ID", "Event ID", "Timestamp", "Action", "Actor", "Details"}

// WriteWorkbook writes r as an xlsx audit bundle with a ledger sheet and an
// audit trail sheet.
func WriteWorkbook(w io.Writer, r Report) error {
	f := xlsx.NewFile()

	ledger, err := f.AddSheet(LedgerSheet)
	if err != nil {
		return eris.Wrap(err, "report: add ledger sheet")
	}
	addStrings(ledger.AddRow(), ledgerHeader...)
	for _, l := range r.Lines {
		row := ledger.AddRow()
		addStrings(row, l.EntryID, l.Section, l.Description, l.ReportingEntity, l.FinancialYear)
		row.AddCell().SetFloat(l.ReportedAmount)
		addStrings(row, string(l.Status))
		row.AddCell().SetInt(l.ConfidencePercent)
		if l.SuggestedAmount != nil {
			row.AddCell().SetFloat(*l.SuggestedAmount)
		} else {
			row.AddCell().SetString("")
		}
		addStrings(row, strings.Join(l.Evidence, ", "), l.Explanation, formatTime(l.DecidedAt))
	}

	audit, err := f.AddSheet(AuditSheet)
	if err != nil {
		return eris.Wrap(err, "report: add audit sheet")
	}
	addStrings(audit.AddRow(), auditHeader...)
	for _, a := range r.Audit {
		addStrings(audit.AddRow(), a.EntryID, a.ID, formatTime(a.Timestamp), a.Action, a.Actor, a.Details)
	}

	return eris.Wrap(f.Write(w), "report: write workbook")
}

func addStrings(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
