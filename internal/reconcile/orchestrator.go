// Package reconcile drives one reconciliation attempt per call: it asks
// the analyst about a single entry, validates the answer and merges it
// into the ledger.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/ais-clarity/internal/analysis"
	"github.com/sells-group/ais-clarity/internal/ledger"
	"github.com/sells-group/ais-clarity/internal/model"
)

// Audit event fields written for every successful run.
const (
	AuditAction = "Reconciliation Analysis Completed"
	AuditActor  = "AI Engine"
)

// EntryStore is the slice of the ledger the orchestrator needs.
type EntryStore interface {
	Client(clientID string) (model.ClientRecord, error)
	Entry(clientID, entryID string) (model.Entry, uint64, error)
	Evidence() []model.Evidence
	ReplaceVerdict(clientID, entryID string, gen uint64, v *model.Verdict, event model.AuditEvent) (model.Entry, error)
}

// Persister writes a reconciled entry through to durable storage.
type Persister interface {
	SaveEntry(ctx context.Context, clientID string, e model.Entry) error
}

// AttemptState is the processing state of an entry.
type AttemptState int

const (
	// AttemptIdle means no attempt is running and the last one (if any) succeeded.
	AttemptIdle AttemptState = iota
	// AttemptAnalyzing means a call to the analyst is outstanding.
	AttemptAnalyzing
	// AttemptFailed means the most recent attempt failed.
	AttemptFailed
)

func (s AttemptState) String() string {
	switch s {
	case AttemptAnalyzing:
		return "ANALYZING"
	case AttemptFailed:
		return "FAILED"
	default:
		return "IDLE"
	}
}

// Attempt describes the latest attempt for an entry.
type Attempt struct {
	State AttemptState
	Err   error
	At    time.Time
}

type entryKey struct {
	clientID string
	entryID  string
}

// Orchestrator reconciles entries one call at a time, with at most one
// outstanding call per entry.
type Orchestrator struct {
	store     EntryStore
	analyzer  analysis.Analyzer
	persister Persister
	now       func() time.Time
	newID     func() string

	mu       sync.Mutex
	inFlight map[entryKey]struct{}
	attempts map[entryKey]Attempt
	stats    Stats
}

// Stats counts finished attempts since the orchestrator was created.
// Attempts on unknown entries are not counted.
type Stats struct {
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPersister writes every merged entry through p.
func WithPersister(p Persister) Option {
	return func(o *Orchestrator) { o.persister = p }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator overrides how audit event ids are minted.
func WithIDGenerator(f func() string) Option {
	return func(o *Orchestrator) { o.newID = f }
}

// New creates an Orchestrator.
func New(store EntryStore, analyzer analysis.Analyzer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		analyzer: analyzer,
		now:      time.Now,
		newID:    uuid.NewString,
		inFlight: make(map[entryKey]struct{}),
		attempts: make(map[entryKey]Attempt),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Attempt returns the processing state of an entry.
func (o *Orchestrator) Attempt(clientID, entryID string) Attempt {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attempts[entryKey{clientID, entryID}]
}

// Stats returns the attempt counters.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// InFlight reports whether a reconcile for the entry is outstanding.
func (o *Orchestrator) InFlight(clientID, entryID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.inFlight[entryKey{clientID, entryID}]
	return ok
}

func (o *Orchestrator) acquire(k entryKey) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inFlight[k]; busy {
		return false
	}
	o.inFlight[k] = struct{}{}
	o.attempts[k] = Attempt{State: AttemptAnalyzing, At: o.now()}
	return true
}

// release clears the in-flight mark and records the outcome.
func (o *Orchestrator) release(k entryKey, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, k)
	switch {
	case err == nil, KindOf(err) == KindPersist:
		delete(o.attempts, k)
		o.stats.Succeeded++
	case KindOf(err) == KindEntryNotFound:
		delete(o.attempts, k)
	default:
		o.attempts[k] = Attempt{State: AttemptFailed, Err: err, At: o.now()}
		o.stats.Failed++
	}
}

// Reconcile asks the analyst about one entry and merges the validated
// verdict. The analyst is called exactly once. On any failure the entry and
// its audit trail are left untouched. A *Error is returned on failure; with
// KindPersist the merge succeeded and the verdict is returned too.
func (o *Orchestrator) Reconcile(ctx context.Context, clientID, entryID string) (v *model.Verdict, err error) {
	k := entryKey{clientID, entryID}
	if !o.acquire(k) {
		return nil, newError(KindAlreadyInFlight, clientID, entryID, nil)
	}
	defer func() { o.release(k, err) }()

	log := zap.L().With(zap.String("client_id", clientID), zap.String("entry_id", entryID))
	start := time.Now()

	entry, gen, err := o.store.Entry(clientID, entryID)
	if err != nil {
		return nil, newError(KindEntryNotFound, clientID, entryID, err)
	}

	evidence := o.store.Evidence()
	req := analysis.NewRequest(entry, evidence)

	raw, err := o.analyzer.Analyze(ctx, req)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		log.Warn("reconcile: analyst call failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, newError(KindCollaboratorUnavailable, clientID, entryID, err)
	}

	verdict, kind, err := decodeVerdict(raw, evidence)
	if err != nil {
		log.Warn("reconcile: invalid verdict",
			zap.Stringer("kind", kind),
			zap.Error(err),
			zap.ByteString("response", truncate(raw, 512)),
		)
		return nil, newError(kind, clientID, entryID, err)
	}
	verdict.DecidedAt = o.now()

	event := model.AuditEvent{
		ID:        o.newID(),
		Timestamp: verdict.DecidedAt,
		Action:    AuditAction,
		Actor:     AuditActor,
		Details:   fmt.Sprintf("Status set to %s (confidence %.0f%%)", verdict.Status, verdict.ConfidenceScore*100),
	}

	updated, err := o.store.ReplaceVerdict(clientID, entryID, gen, verdict, event)
	switch {
	case errors.Is(err, ledger.ErrStaleGeneration):
		log.Warn("reconcile: discarding stale result", zap.Error(err))
		return nil, newError(KindStaleResult, clientID, entryID, err)
	case errors.Is(err, ledger.ErrUnknownEvidence):
		return nil, newError(KindInvalidVerdict, clientID, entryID, err)
	case err != nil:
		return nil, newError(KindEntryNotFound, clientID, entryID, err)
	}

	log.Info("reconcile: verdict merged",
		zap.String("status", string(verdict.Status)),
		zap.Float64("confidence", verdict.ConfidenceScore),
		zap.Strings("evidence_ids", verdict.EvidenceIDs),
		zap.Duration("elapsed", time.Since(start)),
	)

	if o.persister != nil {
		if perr := o.persister.SaveEntry(ctx, clientID, updated); perr != nil {
			log.Error("reconcile: persist entry failed", zap.Error(perr))
			return verdict.Clone(), newError(KindPersist, clientID, entryID, perr)
		}
	}

	return verdict.Clone(), nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
