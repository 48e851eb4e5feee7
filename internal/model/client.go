package model

import "github.com/rotisserie/eris"

// ClientRecord is a taxpayer and their reported entries. Counts such as
// risk or verified totals are derived from Entries on demand and are not
// stored here.
type ClientRecord struct {
	ID         string  `json:"id" yaml:"id"`
	Name       string  `json:"name" yaml:"name"`
	TaxpayerID string  `json:"taxpayer_id" yaml:"taxpayer_id"`
	Entries    []Entry `json:"entries" yaml:"entries"`
}

// Validate checks the client identity fields.
func (c ClientRecord) Validate() error {
	if c.ID == "" {
		return eris.New("client: id is required")
	}
	return nil
}

// FindEntry returns the index of the entry with the given id, or -1.
func (c ClientRecord) FindEntry(entryID string) int {
	for i := range c.Entries {
		if c.Entries[i].ID == entryID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of c.
func (c ClientRecord) Clone() ClientRecord {
	entries := make([]Entry, len(c.Entries))
	for i, e := range c.Entries {
		entries[i] = e.Clone()
	}
	c.Entries = entries
	return c
}
