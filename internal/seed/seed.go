// Package seed loads client and evidence fixtures from YAML.
package seed

import (
	"bytes"
	_ "embed"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/ais-clarity/internal/ledger"
	"github.com/sells-group/ais-clarity/internal/model"
)

//go:embed default.yaml
var defaultFixture []byte

// Fixture is a set of clients and the evidence their verdicts cite.
type Fixture struct {
	Evidence []model.Evidence     `yaml:"evidence"`
	Clients  []model.ClientRecord `yaml:"clients"`
}

// Default returns the built-in demo fixture.
func Default() (*Fixture, error) {
	return Parse(defaultFixture)
}

// Load reads a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "seed: read %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a fixture. Unknown keys are rejected.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, eris.Wrap(err, "seed: parse fixture")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that every entry is well formed and that verdicts only
// cite evidence present in the fixture.
func (f *Fixture) Validate() error {
	known := make(map[string]bool, len(f.Evidence))
	for _, ev := range f.Evidence {
		if ev.ID == "" {
			return eris.New("seed: evidence id is required")
		}
		known[ev.ID] = true
	}
	for _, c := range f.Clients {
		if err := c.Validate(); err != nil {
			return eris.Wrap(err, "seed")
		}
		for _, e := range c.Entries {
			if err := e.Validate(); err != nil {
				return eris.Wrapf(err, "seed: client %s", c.ID)
			}
			if e.Reconciliation == nil {
				continue
			}
			if !e.Reconciliation.Status.Valid() {
				return eris.Errorf("seed: entry %s: unknown status %q", e.ID, e.Reconciliation.Status)
			}
			for _, id := range e.Reconciliation.EvidenceIDs {
				if !known[id] {
					return eris.Errorf("seed: entry %s cites unknown evidence %s", e.ID, id)
				}
			}
		}
	}
	return nil
}

// Apply adds the fixture to l, evidence first.
func (f *Fixture) Apply(l *ledger.Ledger) error {
	for _, ev := range f.Evidence {
		if err := l.AddEvidence(ev); err != nil {
			return eris.Wrap(err, "seed: apply")
		}
	}
	for _, c := range f.Clients {
		if err := l.AddClient(c); err != nil {
			return eris.Wrap(err, "seed: apply")
		}
	}
	return nil
}
