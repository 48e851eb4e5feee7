package aggregate

import (
	"math"

	"github.com/sells-group/ais-clarity/internal/model"
)

// ClientState is the derived progress state of a client file.
type ClientState string

const (
	ClientActionRequired ClientState = "ACTION_REQUIRED"
	ClientInProgress     ClientState = "IN_PROGRESS"
	ClientCompleted      ClientState = "COMPLETED"
)

// Stats is the per-client dashboard tally.
type Stats struct {
	Total       int `json:"total"`
	Verified    int `json:"verified"`
	Explainable int `json:"explainable"`
	Unexplained int `json:"unexplained"`
	Risk        int `json:"risk"`
	Pending     int `json:"pending"`
}

// Summarize tallies entries into Stats.
func Summarize(entries []model.Entry) Stats {
	c := CountByStatus(entries)
	return Stats{
		Total:       len(entries),
		Verified:    c[model.StatusVerified],
		Explainable: c[model.StatusExplainable],
		Unexplained: c[model.StatusUnexplained],
		Risk:        c[model.StatusRiskFlag],
		Pending:     c[model.StatusPending],
	}
}

// ClientSummary is one row of the firm overview.
type ClientSummary struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	TaxpayerID    string      `json:"taxpayer_id"`
	TotalEntries  int         `json:"total_entries"`
	VerifiedCount int         `json:"verified_count"`
	RiskCount     int         `json:"risk_count"`
	HealthPercent int         `json:"health_percent"`
	State         ClientState `json:"state"`
}

// SummarizeClient derives a ClientSummary. A client with any risk flag
// needs action; one with entries and nothing pending is complete.
func SummarizeClient(c model.ClientRecord) ClientSummary {
	s := Summarize(c.Entries)

	state := ClientInProgress
	switch {
	case s.Risk > 0:
		state = ClientActionRequired
	case s.Total > 0 && s.Pending == 0:
		state = ClientCompleted
	}

	return ClientSummary{
		ID:            c.ID,
		Name:          c.Name,
		TaxpayerID:    c.TaxpayerID,
		TotalEntries:  s.Total,
		VerifiedCount: s.Verified,
		RiskCount:     s.Risk,
		HealthPercent: VerifiedPercentage(c.Entries),
		State:         state,
	}
}

// Overview is the firm-wide view across all clients.
type Overview struct {
	ActiveClients int             `json:"active_clients"`
	RiskTotal     int             `json:"risk_total"`
	HealthScore   float64         `json:"health_score"`
	HealthPercent int             `json:"health_percent"`
	Clients       []ClientSummary `json:"clients"`
}

// FirmOverview summarises every client.
func FirmOverview(clients []model.ClientRecord) Overview {
	rows := make([]ClientSummary, len(clients))
	for i, c := range clients {
		rows[i] = SummarizeClient(c)
	}
	score := ClientHealthScore(clients)
	return Overview{
		ActiveClients: len(clients),
		RiskTotal:     RiskTotal(clients),
		HealthScore:   score,
		HealthPercent: int(math.Round(score * 100)),
		Clients:       rows,
	}
}
