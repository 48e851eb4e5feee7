package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/ais-clarity/internal/aggregate"
	"github.com/sells-group/ais-clarity/internal/cost"
	"github.com/sells-group/ais-clarity/internal/model"
	"github.com/sells-group/ais-clarity/internal/reconcile"
	"github.com/sells-group/ais-clarity/internal/report"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// UsageView is the analyst spend since the server started.
type UsageView struct {
	Calls   int          `json:"calls"`
	CostUSD float64      `json:"cost_usd"`
	Models  []cost.Usage `json:"models"`
}

func (s *Server) handleUsage(w http.ResponseWriter, _ *http.Request) {
	calls, usd := s.usage.Total()
	writeJSON(w, http.StatusOK, UsageView{Calls: calls, CostUSD: usd, Models: s.usage.Snapshot()})
}

func (s *Server) handleOverview(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, aggregate.FirmOverview(s.ledger.Clients()))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	c, err := s.ledger.Client(clientID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Dashboard{
		Client:          aggregate.SummarizeClient(c),
		Stats:           aggregate.Summarize(c.Entries),
		VerifiedPercent: aggregate.VerifiedPercentage(c.Entries),
		Entries:         s.entryViews(clientID, c.Entries),
	})
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")

	var status model.Status
	if q := r.URL.Query().Get("status"); q != "" {
		st, err := model.ParseStatus(strings.ToUpper(q))
		if err != nil {
			badRequest(w, fmt.Sprintf("unknown status %q", q))
			return
		}
		status = st
	}

	c, err := s.ledger.Client(clientID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.entryViews(clientID, aggregate.FilterByStatus(c.Entries, status)))
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	entryID := chi.URLParam(r, "entryID")

	v, err := s.orch.Reconcile(r.Context(), clientID, entryID)
	if err != nil && reconcile.KindOf(err) != reconcile.KindPersist {
		writeError(w, err)
		return
	}
	if err != nil {
		// Merged in memory; only the write-through failed.
		w.Header().Set("Warning", `199 - "verdict not persisted"`)
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleReconcilePending(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")

	outcomes, err := s.orch.ReconcilePending(r.Context(), clientID, s.batch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batchView(outcomes))
}

func (s *Server) handleListEvidence(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Evidence())
}

// AddEvidenceRequest registers an uploaded document.
type AddEvidenceRequest struct {
	Name          string  `json:"name"`
	MimeType      string  `json:"mime_type"`
	SizeBytes     int64   `json:"size_bytes"`
	ExtractedText *string `json:"extracted_text"`
}

func (s *Server) handleAddEvidence(w http.ResponseWriter, r *http.Request) {
	var req AddEvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		badRequest(w, "name is required")
		return
	}
	if req.SizeBytes < 0 {
		badRequest(w, "size_bytes must be >= 0")
		return
	}

	ev := model.Evidence{
		ID:            s.newID(),
		Name:          strings.TrimSpace(req.Name),
		MimeType:      req.MimeType,
		SizeBytes:     req.SizeBytes,
		UploadedAt:    s.now().UTC(),
		ExtractedText: req.ExtractedText,
	}
	if err := s.ledger.AddEvidence(ev); err != nil {
		writeError(w, err)
		return
	}
	if s.evidence != nil {
		if err := s.evidence.SaveEvidence(r.Context(), ev); err != nil {
			// Registered in memory; only the write-through failed.
			zap.L().Warn("api: evidence not persisted", zap.String("evidence_id", ev.ID), zap.Error(err))
			w.Header().Set("Warning", `199 - "evidence not persisted"`)
		}
	}

	zap.L().Info("api: evidence registered", zap.String("evidence_id", ev.ID), zap.String("name", ev.Name))
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	c, evidence, err := s.ledger.Snapshot(chi.URLParam(r, "clientID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Build(c, evidence))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	c, evidence, err := s.ledger.Snapshot(chi.URLParam(r, "clientID"))
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteWorkbook(&buf, report.Build(c, evidence)); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-audit.xlsx"`, c.ID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		zap.L().Warn("api: write export", zap.Error(err))
	}
}
