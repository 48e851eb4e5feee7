// Package ledger holds the in-memory Evidence Store and Entry Store. All
// reads return deep copies taken under a read lock, and the only path that
// mutates a verdict is ReplaceVerdict, which runs under the write lock.
package ledger

import (
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ais-clarity/internal/model"
)

var (
	// ErrDuplicateID is returned when an id is added twice.
	ErrDuplicateID = eris.New("duplicate id")
	// ErrClientNotFound is returned for an unknown client id.
	ErrClientNotFound = eris.New("client not found")
	// ErrEntryNotFound is returned for an unknown entry id.
	ErrEntryNotFound = eris.New("entry not found")
	// ErrStaleGeneration is returned when a verdict is applied against an
	// entry that changed after the caller read it.
	ErrStaleGeneration = eris.New("stale entry generation")
	// ErrUnknownEvidence is returned when a verdict cites evidence that is
	// not in the store.
	ErrUnknownEvidence = eris.New("unknown evidence")
)

type clientSlot struct {
	record model.ClientRecord
	gens   map[string]uint64
}

// Ledger owns clients, their entries, and the evidence vault.
type Ledger struct {
	mu       sync.RWMutex
	clients  []*clientSlot
	byID     map[string]*clientSlot
	evidence []model.Evidence
	evIndex  map[string]int
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{
		byID:    make(map[string]*clientSlot),
		evIndex: make(map[string]int),
	}
}

// AddEvidence registers a new evidence record.
func (l *Ledger) AddEvidence(ev model.Evidence) error {
	if ev.ID == "" {
		return eris.New("ledger: evidence id is required")
	}
	if ev.SizeBytes < 0 {
		return eris.Errorf("ledger: evidence %s has negative size", ev.ID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.evIndex[ev.ID]; ok {
		return eris.Wrapf(ErrDuplicateID, "ledger: evidence %s", ev.ID)
	}
	l.evIndex[ev.ID] = len(l.evidence)
	l.evidence = append(l.evidence, ev.Clone())
	return nil
}

// Evidence returns every evidence record in insertion order.
func (l *Ledger) Evidence() []model.Evidence {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.evidenceLocked()
}

func (l *Ledger) evidenceLocked() []model.Evidence {
	out := make([]model.Evidence, len(l.evidence))
	for i, ev := range l.evidence {
		out[i] = ev.Clone()
	}
	return out
}

// EvidenceByID returns a single evidence record.
func (l *Ledger) EvidenceByID(id string) (model.Evidence, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, ok := l.evIndex[id]
	if !ok {
		return model.Evidence{}, false
	}
	return l.evidence[i].Clone(), true
}

// AddClient registers a client together with any entries it already carries.
func (l *Ledger) AddClient(c model.ClientRecord) error {
	if err := c.Validate(); err != nil {
		return eris.Wrap(err, "ledger: add client")
	}

	slot := &clientSlot{
		record: model.ClientRecord{ID: c.ID, Name: c.Name, TaxpayerID: c.TaxpayerID},
		gens:   make(map[string]uint64, len(c.Entries)),
	}
	for _, e := range c.Entries {
		if err := slot.add(e); err != nil {
			return eris.Wrapf(err, "ledger: add client %s", c.ID)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.byID[c.ID]; ok {
		return eris.Wrapf(ErrDuplicateID, "ledger: client %s", c.ID)
	}
	l.byID[c.ID] = slot
	l.clients = append(l.clients, slot)
	return nil
}

// AddEntry appends an entry to an existing client.
func (l *Ledger) AddEntry(clientID string, e model.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.byID[clientID]
	if !ok {
		return eris.Wrapf(ErrClientNotFound, "ledger: client %s", clientID)
	}
	return slot.add(e)
}

func (s *clientSlot) add(e model.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, ok := s.gens[e.ID]; ok {
		return eris.Wrapf(ErrDuplicateID, "ledger: entry %s", e.ID)
	}
	s.gens[e.ID] = 0
	s.record.Entries = append(s.record.Entries, e.Clone())
	return nil
}

// Client returns a copy of one client and its entries.
func (l *Ledger) Client(clientID string) (model.ClientRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	slot, ok := l.byID[clientID]
	if !ok {
		return model.ClientRecord{}, eris.Wrapf(ErrClientNotFound, "ledger: client %s", clientID)
	}
	return slot.record.Clone(), nil
}

// Clients returns copies of every client in registration order.
func (l *Ledger) Clients() []model.ClientRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.ClientRecord, len(l.clients))
	for i, slot := range l.clients {
		out[i] = slot.record.Clone()
	}
	return out
}

// Snapshot returns a client and the evidence vault read under one lock, so
// every evidence id cited by the client's verdicts is present in the
// returned evidence.
func (l *Ledger) Snapshot(clientID string) (model.ClientRecord, []model.Evidence, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	slot, ok := l.byID[clientID]
	if !ok {
		return model.ClientRecord{}, nil, eris.Wrapf(ErrClientNotFound, "ledger: client %s", clientID)
	}
	return slot.record.Clone(), l.evidenceLocked(), nil
}

// Entry returns a copy of an entry plus its current generation. The
// generation must be handed back to ReplaceVerdict.
func (l *Ledger) Entry(clientID, entryID string) (model.Entry, uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	slot, ok := l.byID[clientID]
	if !ok {
		return model.Entry{}, 0, eris.Wrapf(ErrClientNotFound, "ledger: client %s", clientID)
	}
	idx := slot.record.FindEntry(entryID)
	if idx < 0 {
		return model.Entry{}, 0, eris.Wrapf(ErrEntryNotFound, "ledger: entry %s/%s", clientID, entryID)
	}
	return slot.record.Entries[idx].Clone(), slot.gens[entryID], nil
}

// ReplaceVerdict swaps the entry's verdict for v and appends event to its
// audit trail in one step. It fails without mutating anything when the
// generation no longer matches or v cites evidence the store does not hold.
// It returns a copy of the updated entry.
func (l *Ledger) ReplaceVerdict(clientID, entryID string, gen uint64, v *model.Verdict, event model.AuditEvent) (model.Entry, error) {
	if v == nil {
		return model.Entry{}, eris.New("ledger: nil verdict")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.byID[clientID]
	if !ok {
		return model.Entry{}, eris.Wrapf(ErrClientNotFound, "ledger: client %s", clientID)
	}
	idx := slot.record.FindEntry(entryID)
	if idx < 0 {
		return model.Entry{}, eris.Wrapf(ErrEntryNotFound, "ledger: entry %s/%s", clientID, entryID)
	}
	if cur := slot.gens[entryID]; cur != gen {
		return model.Entry{}, eris.Wrapf(ErrStaleGeneration, "ledger: entry %s/%s at generation %d, got %d", clientID, entryID, cur, gen)
	}
	for _, id := range v.EvidenceIDs {
		if _, ok := l.evIndex[id]; !ok {
			return model.Entry{}, eris.Wrapf(ErrUnknownEvidence, "ledger: evidence %s", id)
		}
	}

	e := &slot.record.Entries[idx]
	e.Reconciliation = v.Clone()
	e.AuditTrail = append(e.AuditTrail, event)
	slot.gens[entryID] = gen + 1

	return e.Clone(), nil
}
