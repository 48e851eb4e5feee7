// Package statement imports reported entries from AIS statement exports in
// CSV or XLSX form.
package statement

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ais-clarity/internal/model"
)

const (
	// AuditAction is the audit trail action stamped on imported entries.
	AuditAction = "Imported from Statement"
	// AuditActor is the actor recorded for imports.
	AuditActor = "System"
)

// Options controls how statement rows become entries.
type Options struct {
	// FinancialYear fills entries whose row has no financial year column.
	FinancialYear string
	// Sheet selects the XLSX sheet by name; empty reads the first sheet.
	Sheet string
	// ImportedAt, when set, stamps each entry with an import audit event.
	ImportedAt time.Time
	// Source names the file in the audit event.
	Source string
}

type column int

const (
	colID column = iota
	colSection
	colDescription
	colAmount
	colEntity
	colFinancialYear
	numColumns
)

var columnNames = map[column]string{
	colID:            "id",
	colSection:       "section",
	colDescription:   "description",
	colAmount:        "reported amount",
	colEntity:        "reporting entity",
	colFinancialYear: "financial year",
}

// headerAliases maps a normalized header cell to its column.
var headerAliases = map[string]column{
	"id":                     colID,
	"entryid":                colID,
	"aisid":                  colID,
	"section":                colSection,
	"category":               colSection,
	"informationcategory":    colSection,
	"description":            colDescription,
	"informationdescription": colDescription,
	"reportedamount":         colAmount,
	"amount":                 colAmount,
	"value":                  colAmount,
	"reportingentity":        colEntity,
	"informationsource":      colEntity,
	"source":                 colEntity,
	"financialyear":          colFinancialYear,
	"fy":                     colFinancialYear,
}

var requiredColumns = []column{colSection, colDescription, colAmount}

// ReadFile reads a statement from path, choosing the parser by extension.
func ReadFile(ctx context.Context, path string, opts Options) ([]model.Entry, error) {
	if opts.Source == "" {
		opts.Source = filepath.Base(path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "statement: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(ctx, f, opts)
	case ".xlsx":
		return ReadXLSX(ctx, path, opts)
	default:
		return nil, eris.Errorf("statement: unsupported file type %q", filepath.Ext(path))
	}
}

// builder turns header and data rows into entries.
type builder struct {
	opts    Options
	index   [numColumns]int
	entries []model.Entry
	seen    map[string]bool
	row     int
}

func newBuilder(opts Options) *builder {
	return &builder{opts: opts, seen: make(map[string]bool)}
}

// header maps the header row onto columns.
func (b *builder) header(cells []string) error {
	for i := range b.index {
		b.index[i] = -1
	}
	for i, cell := range cells {
		if col, ok := headerAliases[normalizeHeader(cell)]; ok && b.index[col] < 0 {
			b.index[col] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if b.index[col] < 0 {
			missing = append(missing, columnNames[col])
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("statement: header missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// add converts one data row. Blank rows are skipped.
func (b *builder) add(cells []string) error {
	b.row++
	if blank(cells) {
		return nil
	}
	line := b.row + 1

	sectionText := b.cell(cells, colSection)
	section, ok := model.ParseSection(sectionText)
	if !ok {
		return eris.Errorf("statement: row %d: unknown section %q", line, sectionText)
	}

	amount, err := parseAmount(b.cell(cells, colAmount))
	if err != nil {
		return eris.Wrapf(err, "statement: row %d", line)
	}

	e := model.Entry{
		ID:              b.cell(cells, colID),
		Section:         section,
		Description:     b.cell(cells, colDescription),
		ReportedAmount:  amount,
		ReportingEntity: b.cell(cells, colEntity),
		FinancialYear:   b.cell(cells, colFinancialYear),
		AuditTrail:      []model.AuditEvent{},
	}
	if e.ID == "" {
		e.ID = fmt.Sprintf("AIS-%03d", len(b.entries)+1)
	}
	if e.FinancialYear == "" {
		e.FinancialYear = b.opts.FinancialYear
	}
	if err := e.Validate(); err != nil {
		return eris.Wrapf(err, "statement: row %d", line)
	}
	if b.seen[e.ID] {
		return eris.Errorf("statement: row %d: duplicate entry id %s", line, e.ID)
	}
	b.seen[e.ID] = true

	if !b.opts.ImportedAt.IsZero() {
		e.AuditTrail = append(e.AuditTrail, model.AuditEvent{
			ID:        "IMP-" + e.ID,
			Timestamp: b.opts.ImportedAt.UTC(),
			Action:    AuditAction,
			Actor:     AuditActor,
			Details:   "Imported from " + b.opts.Source,
		})
	}

	b.entries = append(b.entries, e)
	return nil
}

func (b *builder) cell(cells []string, col column) string {
	i := b.index[col]
	if i < 0 || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func normalizeHeader(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// parseAmount accepts plain and Indian-grouped amounts with an optional
// rupee prefix, e.g. "₹1,20,000.50" or "Rs. 4210".
func parseAmount(s string) (float64, error) {
	orig := s
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"₹", "INR", "Rs.", "Rs"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, eris.New("reported amount is required")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, eris.Errorf("invalid reported amount %q", orig)
	}
	return v, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
