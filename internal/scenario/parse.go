package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ParseRawBatch decodes a generator reply into raw records. The reply must be
// a JSON array; every element must decode and validate. Any failure wraps
// ErrMalformedGenerationOutput and no records are returned.
func ParseRawBatch(data []byte) ([]RawScenarioEntry, error) {
	items, err := splitArray(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedGenerationOutput, err)
	}

	out := make([]RawScenarioEntry, 0, len(items))
	for i, item := range items {
		var r RawScenarioEntry
		if err := json.Unmarshal(item, &r); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrMalformedGenerationOutput, i, err)
		}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%w: entry %d (%s): %w", ErrMalformedGenerationOutput, i, r.ScenarioID, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// ParseLibraryBatch decodes a curation reply into library records. Shape
// errors wrap ErrMalformedCurationOutput. Category and metadata are checked
// later by the curation engine, which may remap them.
func ParseLibraryBatch(data []byte) ([]LibraryEntry, error) {
	items, err := splitArray(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCurationOutput, err)
	}

	out := make([]LibraryEntry, 0, len(items))
	for i, item := range items {
		var l LibraryEntry
		if err := json.Unmarshal(item, &l); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrMalformedCurationOutput, i, err)
		}
		if l.ScenarioID == "" || l.Title == "" || l.CanonicalQuestion == "" {
			return nil, fmt.Errorf("%w: entry %d: scenarioId, title and canonicalQuestion are required",
				ErrMalformedCurationOutput, i)
		}
		if err := l.TimeHorizon.Validate(); err != nil {
			return nil, fmt.Errorf("%w: entry %d (%s): %w", ErrMalformedCurationOutput, i, l.ScenarioID, err)
		}
		out = append(out, l)
	}
	return out, nil
}

// splitArray checks that data is exactly one JSON array and returns its
// elements undecoded.
func splitArray(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty reply")
	}
	if data[0] != '[' {
		return nil, fmt.Errorf("reply is not a JSON array")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	var items []json.RawMessage
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding array: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing content after JSON array")
	}
	return items, nil
}
