// Package aggregate derives read-only summaries from entries and clients.
// Nothing here is cached: every figure is recomputed from the entries it is
// given, so a count can never drift from the data it describes.
package aggregate

import (
	"math"

	"github.com/sells-group/ais-clarity/internal/model"
)

// CountByStatus tallies entries by verdict status. Entries without a verdict
// count as PENDING. The counts always sum to len(entries).
func CountByStatus(entries []model.Entry) map[model.Status]int {
	counts := make(map[model.Status]int, len(model.Statuses))
	for _, e := range entries {
		counts[e.StatusOrPending()]++
	}
	return counts
}

// VerifiedPercentage returns round(100 * verified / total), or 0 when there
// are no entries.
func VerifiedPercentage(entries []model.Entry) int {
	if len(entries) == 0 {
		return 0
	}
	verified := CountByStatus(entries)[model.StatusVerified]
	return int(math.Round(100 * float64(verified) / float64(len(entries))))
}

// VerifiedRatio returns verified / total for one client, or 0 when the
// client has no entries.
func VerifiedRatio(c model.ClientRecord) float64 {
	if len(c.Entries) == 0 {
		return 0
	}
	return float64(CountByStatus(c.Entries)[model.StatusVerified]) / float64(len(c.Entries))
}

// ClientHealthScore is the unweighted mean of each client's verified ratio.
// A client with one entry carries the same weight as a client with a
// thousand. Returns 0 when there are no clients.
func ClientHealthScore(clients []model.ClientRecord) float64 {
	if len(clients) == 0 {
		return 0
	}
	var sum float64
	for _, c := range clients {
		sum += VerifiedRatio(c)
	}
	return sum / float64(len(clients))
}

// RiskCount returns the number of RISK_FLAG entries for one client.
func RiskCount(c model.ClientRecord) int {
	return CountByStatus(c.Entries)[model.StatusRiskFlag]
}

// RiskTotal sums RiskCount across clients.
func RiskTotal(clients []model.ClientRecord) int {
	total := 0
	for _, c := range clients {
		total += RiskCount(c)
	}
	return total
}

// AverageConfidence is the mean confidence across entries that carry a
// verdict, or 0 when none do.
func AverageConfidence(entries []model.Entry) float64 {
	var sum float64
	n := 0
	for _, e := range entries {
		if e.Reconciliation == nil {
			continue
		}
		sum += e.Reconciliation.ConfidenceScore
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// FilterByStatus returns the entries whose status (PENDING when no verdict)
// matches. An empty status returns every entry.
func FilterByStatus(entries []model.Entry, status model.Status) []model.Entry {
	if status == "" {
		return entries
	}
	out := make([]model.Entry, 0, len(entries))
	for _, e := range entries {
		if e.StatusOrPending() == status {
			out = append(out, e)
		}
	}
	return out
}

// Reconciled returns the entries that carry a verdict.
func Reconciled(entries []model.Entry) []model.Entry {
	out := make([]model.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Reconciliation != nil {
			out = append(out, e)
		}
	}
	return out
}
