package reconcile

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ais-clarity/internal/model"
)

// decodeVerdict validates a raw analyst response against the evidence set
// that was sent with the request. DecidedAt is left for the caller.
func decodeVerdict(raw []byte, evidence []model.Evidence) (*model.Verdict, Kind, error) {
	var fields map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return nil, KindInvalidVerdict, eris.New("response is not a JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, KindInvalidVerdict, eris.New("response has trailing data after the JSON object")
	}

	status, err := decodeStatus(fields["status"])
	if err != nil {
		return nil, KindInvalidVerdictStatus, err
	}

	var explanation string
	if err := json.Unmarshal(fields["explanation"], &explanation); err != nil || strings.TrimSpace(explanation) == "" {
		return nil, KindInvalidVerdict, eris.New("explanation is missing or empty")
	}

	confidence, err := decodeNumber(fields["confidenceScore"])
	if err != nil {
		return nil, KindInvalidConfidence, eris.Wrap(err, "confidenceScore")
	}
	if confidence < 0 || confidence > 1 {
		return nil, KindInvalidConfidence, eris.Errorf("confidenceScore %v outside [0,1]", confidence)
	}

	ids, err := decodeEvidenceIDs(fields["evidenceIds"], evidence)
	if err != nil {
		return nil, KindInvalidVerdict, err
	}

	v := &model.Verdict{
		Status:          status,
		Explanation:     strings.TrimSpace(explanation),
		EvidenceIDs:     ids,
		ConfidenceScore: confidence,
	}

	if raw, ok := fields["suggestedActualAmount"]; ok && !isNull(raw) {
		amt, err := decodeNumber(raw)
		if err != nil || amt < 0 {
			return nil, KindInvalidVerdict, eris.New("suggestedActualAmount must be a non-negative number")
		}
		v.SuggestedActualAmount = &amt
	}

	return v, KindUnknown, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

func decodeStatus(raw json.RawMessage) (model.Status, error) {
	if isNull(raw) {
		return "", eris.New("status is missing")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", eris.Errorf("status %s is not a string", raw)
	}
	return model.ParseStatus(s)
}

// decodeNumber accepts a JSON number or a string holding one. NaN and
// infinities are rejected.
func decodeNumber(raw json.RawMessage) (float64, error) {
	if isNull(raw) {
		return 0, eris.New("missing")
	}

	var text string
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		text = num.String()
	} else if err := json.Unmarshal(raw, &text); err != nil {
		return 0, eris.Errorf("%s is not a number", raw)
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, eris.Errorf("%q is not a number", text)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, eris.Errorf("%q is not a finite number", text)
	}
	return f, nil
}

// decodeEvidenceIDs applies the citation rules: an absent list defaults to
// the first evidence item (or nothing when the set is empty), and every
// cited id must be in the evidence set. Duplicates are dropped.
func decodeEvidenceIDs(raw json.RawMessage, evidence []model.Evidence) ([]string, error) {
	if isNull(raw) {
		if len(evidence) == 0 {
			return []string{}, nil
		}
		return []string{evidence[0].ID}, nil
	}

	var cited []string
	if err := json.Unmarshal(raw, &cited); err != nil {
		return nil, eris.New("evidenceIds must be a list of strings")
	}

	known := make(map[string]bool, len(evidence))
	for _, ev := range evidence {
		known[ev.ID] = true
	}

	ids := make([]string, 0, len(cited))
	seen := make(map[string]bool, len(cited))
	for _, id := range cited {
		id = strings.TrimSpace(id)
		if !known[id] {
			return nil, eris.Errorf("evidenceIds cites unknown evidence %q", id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}
