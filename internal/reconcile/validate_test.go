package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ais-clarity/internal/model"
)

func TestDecodeVerdict(t *testing.T) {
	t.Parallel()
	evidence := twoEvidence()

	tests := []struct {
		name     string
		raw      string
		evidence []model.Evidence
		wantKind Kind
		check    func(t *testing.T, v *model.Verdict)
	}{
		{
			name: "full verdict",
			raw:  `{"status":"RISK_FLAG","explanation":" Mismatch [EVID-002]. ","confidenceScore":0.91,"evidenceIds":["EVID-002"],"suggestedActualAmount":14800.5}`,
			check: func(t *testing.T, v *model.Verdict) {
				assert.Equal(t, model.StatusRiskFlag, v.Status)
				assert.Equal(t, "Mismatch [EVID-002].", v.Explanation)
				assert.Equal(t, []string{"EVID-002"}, v.EvidenceIDs)
				assert.InDelta(t, 0.91, v.ConfidenceScore, 1e-9)
				require.NotNil(t, v.SuggestedActualAmount)
				assert.InDelta(t, 14800.5, *v.SuggestedActualAmount, 1e-9)
			},
		},
		{
			name: "trailing whitespace accepted",
			raw:  "{\"status\":\"VERIFIED\",\"explanation\":\"ok\",\"confidenceScore\":1}\n\t ",
			check: func(t *testing.T, v *model.Verdict) {
				assert.Equal(t, model.StatusVerified, v.Status)
			},
		},
		{
			name: "confidence as string",
			raw:  `{"status":"VERIFIED","explanation":"ok","confidenceScore":"0.75"}`,
			check: func(t *testing.T, v *model.Verdict) {
				assert.InDelta(t, 0.75, v.ConfidenceScore, 1e-9)
			},
		},
		{
			name: "confidence bounds inclusive",
			raw:  `{"status":"VERIFIED","explanation":"ok","confidenceScore":0}`,
			check: func(t *testing.T, v *model.Verdict) {
				assert.Zero(t, v.ConfidenceScore)
			},
		},
		{
			name: "pending accepted",
			raw:  `{"status":"PENDING","explanation":"Need more documents.","confidenceScore":0.2}`,
			check: func(t *testing.T, v *model.Verdict) {
				assert.Equal(t, model.StatusPending, v.Status)
			},
		},
		{
			name: "null evidence ids default to first",
			raw:  `{"status":"VERIFIED","explanation":"ok","confidenceScore":1,"evidenceIds":null}`,
			check: func(t *testing.T, v *model.Verdict) {
				assert.Equal(t, []string{"EVID-001"}, v.EvidenceIDs)
			},
		},
		{
			name: "empty list stays empty",
			raw:  `{"status":"UNEXPLAINED","explanation":"nothing matches","confidenceScore":0.6,"evidenceIds":[]}`,
			check: func(t *testing.T, v *model.Verdict) {
				assert.Empty(t, v.EvidenceIDs)
			},
		},
		{
			name: "duplicate ids collapse",
			raw:  `{"status":"VERIFIED","explanation":"ok","confidenceScore":1,"evidenceIds":["EVID-001","EVID-002","EVID-001"]}`,
			check: func(t *testing.T, v *model.Verdict) {
				assert.Equal(t, []string{"EVID-001", "EVID-002"}, v.EvidenceIDs)
			},
		},
		{
			name: "null suggested amount ignored",
			raw:  `{"status":"VERIFIED","explanation":"ok","confidenceScore":1,"suggestedActualAmount":null}`,
			check: func(t *testing.T, v *model.Verdict) {
				assert.Nil(t, v.SuggestedActualAmount)
			},
		},
		{name: "not json", raw: `Sure! Here is my analysis.`, wantKind: KindInvalidVerdict},
		{name: "array", raw: `[1,2]`, wantKind: KindInvalidVerdict},
		{name: "null document", raw: `null`, wantKind: KindInvalidVerdict},
		{name: "trailing junk", raw: `{"status":"VERIFIED","explanation":"ok","confidenceScore":1} junk`, wantKind: KindInvalidVerdict},
		{name: "second object", raw: `{"status":"VERIFIED","explanation":"ok","confidenceScore":1}{"status":"RISK_FLAG"}`, wantKind: KindInvalidVerdict},
		{name: "stray closing bracket", raw: `{"status":"VERIFIED","explanation":"ok","confidenceScore":1}]`, wantKind: KindInvalidVerdict},
		{name: "missing status", raw: `{"explanation":"ok","confidenceScore":1}`, wantKind: KindInvalidVerdictStatus},
		{name: "lowercase status", raw: `{"status":"verified","explanation":"ok","confidenceScore":1}`, wantKind: KindInvalidVerdictStatus},
		{name: "numeric status", raw: `{"status":3,"explanation":"ok","confidenceScore":1}`, wantKind: KindInvalidVerdictStatus},
		{name: "missing explanation", raw: `{"status":"VERIFIED","confidenceScore":1}`, wantKind: KindInvalidVerdict},
		{name: "blank explanation", raw: `{"status":"VERIFIED","explanation":"   ","confidenceScore":1}`, wantKind: KindInvalidVerdict},
		{name: "missing confidence", raw: `{"status":"VERIFIED","explanation":"ok"}`, wantKind: KindInvalidConfidence},
		{name: "confidence above one", raw: `{"status":"VERIFIED","explanation":"ok","confidenceScore":1.4}`, wantKind: KindInvalidConfidence},
		{name: "negative confidence", raw: `{"status":"VERIFIED","explanation":"ok","confidenceScore":-0.01}`, wantKind: KindInvalidConfidence},
		{name: "confidence word", raw: `{"status":"VERIFIED","explanation":"ok","confidenceScore":"high"}`, wantKind: KindInvalidConfidence},
		{name: "confidence NaN string", raw: `{"status":"VERIFIED","explanation":"ok","confidenceScore":"NaN"}`, wantKind: KindInvalidConfidence},
		{name: "unknown evidence", raw: `{"status":"VERIFIED","explanation":"ok","confidenceScore":1,"evidenceIds":["EVID-404"]}`, wantKind: KindInvalidVerdict},
		{name: "evidence ids not strings", raw: `{"status":"VERIFIED","explanation":"ok","confidenceScore":1,"evidenceIds":[1]}`, wantKind: KindInvalidVerdict},
		{name: "negative suggested amount", raw: `{"status":"RISK_FLAG","explanation":"ok","confidenceScore":1,"suggestedActualAmount":-5}`, wantKind: KindInvalidVerdict},
		{name: "suggested amount word", raw: `{"status":"RISK_FLAG","explanation":"ok","confidenceScore":1,"suggestedActualAmount":"lots"}`, wantKind: KindInvalidVerdict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ev := tt.evidence
			if ev == nil {
				ev = evidence
			}
			v, kind, err := decodeVerdict([]byte(tt.raw), ev)
			if tt.wantKind != KindUnknown {
				require.Error(t, err)
				assert.Nil(t, v)
				assert.Equal(t, tt.wantKind, kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, KindUnknown, kind)
			assert.True(t, v.DecidedAt.IsZero())
			tt.check(t, v)
		})
	}
}

func TestDecodeVerdict_NoEvidence(t *testing.T) {
	t.Parallel()

	v, _, err := decodeVerdict([]byte(`{"status":"UNEXPLAINED","explanation":"no docs","confidenceScore":0.3}`), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{}, v.EvidenceIDs)

	_, kind, err := decodeVerdict([]byte(`{"status":"VERIFIED","explanation":"ok","confidenceScore":1,"evidenceIds":["EVID-001"]}`), nil)
	require.Error(t, err)
	assert.Equal(t, KindInvalidVerdict, kind)
}
