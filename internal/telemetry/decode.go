package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrStructure marks a document that cannot be rendered at all: the top level
// is not a mapping, or a unit record lacks its mandatory fields.
var ErrStructure = errors.New("telemetry: structural violation")

// StructureError describes a structural violation. Unit is empty when the
// problem is at the document level.
type StructureError struct {
	Unit   string
	Reason string
}

func (e *StructureError) Error() string {
	if e.Unit == "" {
		return "telemetry: " + e.Reason
	}
	return fmt.Sprintf("telemetry: unit %q: %s", e.Unit, e.Reason)
}

func (e *StructureError) Unwrap() error { return ErrStructure }

// DecodeSnapshot parses a full-telemetry document, a JSON object keyed by
// unit id. Optional fields that fail to decode are dropped one by one so the
// renderer shows a placeholder for just that slot; a missing or mistyped "online" or "timestamp"
// rejects the whole document.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	snap := NewSnapshot()
	err := decodeObject(data, func(id string, raw json.RawMessage) error {
		if _, dup := snap.Units[id]; dup {
			return &StructureError{Unit: id, Reason: "duplicate unit id"}
		}
		rec, err := decodeRecord(id, raw)
		if err != nil {
			return err
		}
		snap.Add(id, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// UnmarshalJSON implements json.Unmarshaler with DecodeSnapshot semantics.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeSnapshot(data)
	if err != nil {
		return err
	}
	*s = *decoded
	return nil
}

// MarshalJSON writes the units as one object in IDs order.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range s.IDs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.Units[id])
		if err != nil {
			return nil, fmt.Errorf("telemetry: marshal %s: %w", id, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func decodeRecord(id string, raw json.RawMessage) (*UnitRecord, error) {
	fields, ok, err := parseFields(raw)
	if err != nil || !ok {
		return nil, &StructureError{Unit: id, Reason: "record is not an object"}
	}

	rec := &UnitRecord{}
	if err := decodeField(fields, "online", &rec.Online); err != nil {
		return nil, &StructureError{Unit: id, Reason: err.Error()}
	}
	if err := decodeField(fields, "timestamp", &rec.Timestamp); err != nil {
		return nil, &StructureError{Unit: id, Reason: err.Error()}
	}

	// Optional parts degrade to absent.
	_ = decodeField(fields, "errorMessage", &rec.ErrorMessage)
	if !rec.Online {
		return rec, nil
	}
	field(fields, "status", &rec.Status)
	field(fields, "measurement", &rec.Measurement)
	field(fields, "dataLogger", &rec.DataLogger)
	return rec, nil
}

func decodeField(fields fieldSet, name string, dst any) error {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return fmt.Errorf("missing %s", name)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("bad %s: %v", name, err)
	}
	return nil
}

// decodeObject walks a top-level JSON object in document order.
func decodeObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return &StructureError{Reason: "invalid json: " + err.Error()}
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return &StructureError{Reason: "document is not a mapping"}
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return &StructureError{Reason: "invalid json: " + err.Error()}
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return &StructureError{Unit: key, Reason: "invalid json: " + err.Error()}
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return &StructureError{Reason: "invalid json: " + err.Error()}
	}
	return nil
}
