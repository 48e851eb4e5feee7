package api

import (
	"github.com/sells-group/ais-clarity/internal/aggregate"
	"github.com/sells-group/ais-clarity/internal/model"
	"github.com/sells-group/ais-clarity/internal/reconcile"
)

// Display states beyond the verdict statuses.
const (
	DisplayAnalyzing = "ANALYZING"
	DisplayFailed    = "FAILED"
)

// EntryView is an entry with its processing state for display.
type EntryView struct {
	model.Entry
	DisplayState string `json:"display_state"`
	LastError    string `json:"last_error,omitempty"`
}

// Dashboard is the per-client view.
type Dashboard struct {
	Client          aggregate.ClientSummary `json:"client"`
	Stats           aggregate.Stats         `json:"stats"`
	VerifiedPercent int                     `json:"verified_percent"`
	Entries         []EntryView             `json:"entries"`
}

// OutcomeView is one entry's result from a reconcile-all request.
type OutcomeView struct {
	EntryID string         `json:"entry_id"`
	Verdict *model.Verdict `json:"verdict,omitempty"`
	Error   string         `json:"error,omitempty"`
	Kind    string         `json:"kind,omitempty"`
}

// BatchView summarises a reconcile-all request.
type BatchView struct {
	Pending   int           `json:"pending"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Outcomes  []OutcomeView `json:"outcomes"`
}

// entryViews overlays in-flight and failed attempt states on the entries.
// An outstanding attempt shows ANALYZING even when an older verdict exists.
func (s *Server) entryViews(clientID string, entries []model.Entry) []EntryView {
	out := make([]EntryView, len(entries))
	for i, e := range entries {
		v := EntryView{Entry: e, DisplayState: string(e.StatusOrPending())}
		att := s.orch.Attempt(clientID, e.ID)
		switch att.State {
		case reconcile.AttemptAnalyzing:
			v.DisplayState = DisplayAnalyzing
		case reconcile.AttemptFailed:
			if e.Reconciliation == nil {
				v.DisplayState = DisplayFailed
			}
			if att.Err != nil {
				v.LastError = att.Err.Error()
			}
		}
		if v.AuditTrail == nil {
			v.AuditTrail = []model.AuditEvent{}
		}
		out[i] = v
	}
	return out
}

func batchView(outcomes []reconcile.Outcome) BatchView {
	bv := BatchView{Pending: len(outcomes), Outcomes: make([]OutcomeView, len(outcomes))}
	for i, o := range outcomes {
		ov := OutcomeView{EntryID: o.EntryID, Verdict: o.Verdict}
		if o.Err != nil {
			ov.Error = o.Err.Error()
			ov.Kind = reconcile.KindOf(o.Err).String()
		}
		if o.Err == nil || reconcile.KindOf(o.Err) == reconcile.KindPersist {
			bv.Succeeded++
		} else {
			bv.Failed++
		}
		bv.Outcomes[i] = ov
	}
	return bv
}
