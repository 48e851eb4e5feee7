package aggregate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/ais-clarity/internal/model"
)

func entriesWith(statuses ...model.Status) []model.Entry {
	out := make([]model.Entry, len(statuses))
	for i, s := range statuses {
		out[i] = model.Entry{ID: fmt.Sprintf("AIS-%03d", i+1), Section: model.SectionSFT}
		if s != model.StatusPending {
			out[i].Reconciliation = &model.Verdict{Status: s, Explanation: "x", ConfidenceScore: 0.5}
		}
	}
	return out
}

func clientWith(id string, verified, total int) model.ClientRecord {
	statuses := make([]model.Status, total)
	for i := range statuses {
		if i < verified {
			statuses[i] = model.StatusVerified
		} else {
			statuses[i] = model.StatusPending
		}
	}
	return model.ClientRecord{ID: id, Entries: entriesWith(statuses...)}
}

func TestCountByStatus(t *testing.T) {
	t.Parallel()

	entries := entriesWith(model.StatusVerified, model.StatusVerified, model.StatusRiskFlag, model.StatusPending)
	got := CountByStatus(entries)

	assert.Equal(t, map[model.Status]int{
		model.StatusVerified: 2,
		model.StatusRiskFlag: 1,
		model.StatusPending:  1,
	}, got)
	assert.Equal(t, 50, VerifiedPercentage(entries))
}

func TestCountByStatus_SumsToLength(t *testing.T) {
	t.Parallel()

	entries := entriesWith(
		model.StatusVerified, model.StatusExplainable, model.StatusUnexplained,
		model.StatusRiskFlag, model.StatusPending, model.StatusPending, model.StatusVerified,
	)
	sum := 0
	for _, n := range CountByStatus(entries) {
		sum += n
	}
	assert.Equal(t, len(entries), sum)
}

func TestCountByStatus_NoVerdictIsPending(t *testing.T) {
	t.Parallel()

	entries := []model.Entry{{ID: "AIS-001"}, {ID: "AIS-002"}}
	assert.Equal(t, map[model.Status]int{model.StatusPending: 2}, CountByStatus(entries))
}

func TestVerifiedPercentage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		statuses []model.Status
		want     int
	}{
		{"empty", nil, 0},
		{"all verified", []model.Status{model.StatusVerified, model.StatusVerified}, 100},
		{"none verified", []model.Status{model.StatusRiskFlag}, 0},
		{"one of three rounds down", []model.Status{model.StatusVerified, model.StatusPending, model.StatusPending}, 33},
		{"two of three rounds up", []model.Status{model.StatusVerified, model.StatusVerified, model.StatusPending}, 67},
		{"one of eight rounds half up", []model.Status{model.StatusVerified, "", "", "", "", "", "", ""}, 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			statuses := make([]model.Status, len(tt.statuses))
			for i, s := range tt.statuses {
				if s == "" {
					s = model.StatusPending
				}
				statuses[i] = s
			}
			assert.Equal(t, tt.want, VerifiedPercentage(entriesWith(statuses...)))
		})
	}
}

// The firm score is the mean of per-client ratios, not verified/total across
// all entries: (1.0 + 0.1) / 2 = 0.55, where a weighted average would give
// 2/11 ≈ 0.18.
func TestClientHealthScore_IsUnweightedMean(t *testing.T) {
	t.Parallel()

	a := clientWith("A", 1, 1)
	b := clientWith("B", 1, 10)

	got := ClientHealthScore([]model.ClientRecord{a, b})
	assert.InDelta(t, 0.55, got, 1e-9)
	assert.NotEqual(t, 2.0/11.0, got)
}

func TestClientHealthScore_Empty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, ClientHealthScore(nil))
	assert.Equal(t, 0.0, ClientHealthScore([]model.ClientRecord{}))
}

func TestClientHealthScore_ClientWithoutEntriesCountsAsZero(t *testing.T) {
	t.Parallel()

	got := ClientHealthScore([]model.ClientRecord{clientWith("A", 1, 1), {ID: "B"}})
	assert.InDelta(t, 0.5, got, 1e-9)
}

func TestRiskTotal(t *testing.T) {
	t.Parallel()

	a := model.ClientRecord{ID: "A", Entries: entriesWith(model.StatusRiskFlag, model.StatusVerified)}
	b := model.ClientRecord{ID: "B", Entries: entriesWith(model.StatusRiskFlag, model.StatusRiskFlag)}
	c := model.ClientRecord{ID: "C"}

	assert.Equal(t, 1, RiskCount(a))
	assert.Equal(t, 3, RiskTotal([]model.ClientRecord{a, b, c}))
	assert.Equal(t, 0, RiskTotal(nil))
}

func TestAverageConfidence(t *testing.T) {
	t.Parallel()

	entries := []model.Entry{
		{ID: "1", Reconciliation: &model.Verdict{Status: model.StatusVerified, ConfidenceScore: 0.98}},
		{ID: "2", Reconciliation: &model.Verdict{Status: model.StatusRiskFlag, ConfidenceScore: 0.85}},
		{ID: "3"},
	}
	assert.InDelta(t, 0.915, AverageConfidence(entries), 1e-9)
	assert.Equal(t, 0.0, AverageConfidence(nil))
	assert.Equal(t, 0.0, AverageConfidence([]model.Entry{{ID: "x"}}))
}

func TestFilterByStatus(t *testing.T) {
	t.Parallel()

	entries := entriesWith(model.StatusVerified, model.StatusPending, model.StatusRiskFlag, model.StatusVerified)

	assert.Len(t, FilterByStatus(entries, model.StatusVerified), 2)
	assert.Len(t, FilterByStatus(entries, model.StatusPending), 1)
	assert.Len(t, FilterByStatus(entries, model.StatusExplainable), 0)
	assert.Len(t, FilterByStatus(entries, ""), 4)
	assert.Len(t, Reconciled(entries), 3)
}
