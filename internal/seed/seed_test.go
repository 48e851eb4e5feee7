package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ais-clarity/internal/ledger"
	"github.com/sells-group/ais-clarity/internal/model"
)

func TestDefault(t *testing.T) {
	f, err := Default()
	require.NoError(t, err)

	require.Len(t, f.Evidence, 3)
	assert.Nil(t, f.Evidence[0].ExtractedText)
	require.NotNil(t, f.Evidence[1].ExtractedText)
	assert.Contains(t, *f.Evidence[1].ExtractedText, "15200")

	require.Len(t, f.Clients, 2)
	john := f.Clients[0]
	assert.Equal(t, "ABCPS1234F", john.TaxpayerID)
	require.Len(t, john.Entries, 3)
	assert.Nil(t, john.Entries[0].Reconciliation)
	assert.Equal(t, model.StatusVerified, john.Entries[1].Reconciliation.Status)
	assert.Equal(t, []string{"EVID-003"}, john.Entries[2].Reconciliation.EvidenceIDs)
	assert.Equal(t, 500000.0, john.Entries[2].ReportedAmount)
	assert.Equal(t, "2023-24", john.Entries[0].FinancialYear)
	assert.Empty(t, f.Clients[1].Entries)
}

func TestApply(t *testing.T) {
	f, err := Default()
	require.NoError(t, err)

	l := ledger.New()
	require.NoError(t, f.Apply(l))
	assert.Len(t, l.Clients(), 2)
	assert.Len(t, l.Evidence(), 3)

	// Applying twice collides on ids.
	err = f.Apply(l)
	assert.ErrorIs(t, err, ledger.ErrDuplicateID)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
evidence:
  - id: EV-A
    name: a.pdf
clients:
  - id: C1
    name: Test
    entries:
      - id: E1
        section: TDS
        reported_amount: 10
        reconciliation:
          status: EXPLAINABLE
          explanation: timing
          evidence_ids: [EV-A]
          confidence_score: 0.5
`), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	require.Len(t, f.Clients, 1)
	assert.Equal(t, model.SectionTDS, f.Clients[0].Entries[0].Section)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed: read")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "clients: []\nfoo: bar\n", "parse fixture"},
		{"bad section", "clients:\n  - id: C1\n    entries:\n      - id: E1\n        section: GST\n", "unknown section"},
		{"negative amount", "clients:\n  - id: C1\n    entries:\n      - id: E1\n        section: SFT\n        reported_amount: -1\n", "non-negative"},
		{"missing client id", "clients:\n  - name: X\n", "id is required"},
		{"unknown status", "clients:\n  - id: C1\n    entries:\n      - id: E1\n        section: SFT\n        reconciliation:\n          status: DONE\n", "unknown status"},
		{"unknown evidence", "clients:\n  - id: C1\n    entries:\n      - id: E1\n        section: SFT\n        reconciliation:\n          status: VERIFIED\n          evidence_ids: [EV-9]\n", "unknown evidence EV-9"},
		{"blank evidence id", "evidence:\n  - name: x.pdf\n", "evidence id is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
