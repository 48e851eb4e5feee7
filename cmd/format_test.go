package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/ais-clarity/internal/aggregate"
	"github.com/sells-group/ais-clarity/internal/config"
	"github.com/sells-group/ais-clarity/internal/cost"
	"github.com/sells-group/ais-clarity/internal/model"
	"github.com/sells-group/ais-clarity/internal/reconcile"
	"github.com/sells-group/ais-clarity/internal/report"
)

func seededReport(t *testing.T, clientID string) report.Report {
	t.Helper()
	l, err := loadLedger(context.Background(), nil, config.SeedConfig{OnEmpty: true})
	require.NoError(t, err)
	c, evidence, err := l.Snapshot(clientID)
	require.NoError(t, err)
	return report.Build(c, evidence)
}

func TestFormatOverview(t *testing.T) {
	l, err := loadLedger(context.Background(), nil, config.SeedConfig{OnEmpty: true})
	require.NoError(t, err)

	var buf bytes.Buffer
	formatOverview(&buf, aggregate.FirmOverview(l.Clients()))

	out := buf.String()
	assert.Contains(t, out, "Active clients: 2")
	assert.Contains(t, out, "Risk flags: 1")
	assert.Contains(t, out, "John Smith")
	assert.Contains(t, out, "ACTION_REQUIRED")
	assert.Contains(t, out, "Priya Sharma")
}

func TestFormatOutcomes(t *testing.T) {
	outcomes := []reconcile.Outcome{
		{EntryID: "AIS-001", Verdict: &model.Verdict{Status: model.StatusVerified, ConfidenceScore: 0.9}},
		{EntryID: "AIS-004", Err: &reconcile.Error{Kind: reconcile.KindCollaboratorUnavailable, Err: errors.New("timeout")}},
		{EntryID: "AIS-005", Verdict: &model.Verdict{Status: model.StatusRiskFlag, ConfidenceScore: 0.7}, Err: &reconcile.Error{Kind: reconcile.KindPersist}},
	}

	var buf bytes.Buffer
	failed := formatOutcomes(&buf, outcomes)

	assert.Equal(t, 1, failed)
	out := buf.String()
	assert.Contains(t, out, "VERIFIED")
	assert.Contains(t, out, "90%")
	assert.Contains(t, out, "CollaboratorUnavailable")
	assert.Contains(t, out, "Persist")
}

func TestFormatVerdict(t *testing.T) {
	amt := 50000.0
	var buf bytes.Buffer
	formatVerdict(&buf, "AIS-003", &model.Verdict{
		Status:                model.StatusRiskFlag,
		Explanation:           "Mismatch",
		EvidenceIDs:           []string{"EVID-003"},
		ConfidenceScore:       0.85,
		SuggestedActualAmount: &amt,
	})

	out := buf.String()
	assert.Contains(t, out, "AIS-003: RISK_FLAG (confidence 85%)")
	assert.Contains(t, out, "EVID-003")
	assert.Contains(t, out, "suggested amount: 50000.00")
}

func TestFormatVerdict_Nil(t *testing.T) {
	var buf bytes.Buffer
	formatVerdict(&buf, "AIS-003", nil)
	assert.Equal(t, "AIS-003: no verdict\n", buf.String())
}

func TestFormatReport(t *testing.T) {
	var buf bytes.Buffer
	formatReport(&buf, seededReport(t, "CL-001"))

	out := buf.String()
	assert.Contains(t, out, "John Smith (ABCPS1234F) CL-001")
	assert.Contains(t, out, "₹15,200")
	assert.Contains(t, out, "RISK_FLAG")
}

func TestFormatReport_NoLines(t *testing.T) {
	var buf bytes.Buffer
	formatReport(&buf, seededReport(t, "CL-002"))
	assert.Contains(t, buf.String(), "No reconciled entries.")
}

func TestWriteWorkbookFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.xlsx")
	require.NoError(t, writeWorkbookFile(path, seededReport(t, "CL-001")))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	assert.Len(t, f.Sheet[report.LedgerSheet].Rows, 3)
}

func TestWriteWorkbookFile_BadPath(t *testing.T) {
	err := writeWorkbookFile(filepath.Join(t.TempDir(), "missing", "audit.xlsx"), seededReport(t, "CL-001"))
	assert.Error(t, err)
}

func TestFormatSpend(t *testing.T) {
	var buf bytes.Buffer
	formatSpend(&buf, nil)
	assert.Empty(t, buf.String())

	m := cost.NewMeter(cost.NewCalculator(cost.DefaultRates()))
	m.RecordClaude("claude-sonnet-4-5-20250929", "AIS-001", 1000, 100, 0, 0)
	formatSpend(&buf, m)
	assert.Contains(t, buf.String(), "Analyst calls: 1  Estimated cost: $0.0045")
}
