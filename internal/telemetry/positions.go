package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// LatLon is one position fix, encoded as [lat, lon].
type LatLon [2]float64

func (p LatLon) Lat() float64 { return p[0] }
func (p LatLon) Lon() float64 { return p[1] }

// Positions is the trajectory-only document: per unit, the recent position
// history latest-first.
type Positions struct {
	IDs   []string
	Paths map[string][]LatLon
}

func NewPositions() *Positions {
	return &Positions{Paths: make(map[string][]LatLon)}
}

func (p *Positions) Add(id string, path []LatLon) {
	if p.Paths == nil {
		p.Paths = make(map[string][]LatLon)
	}
	if _, ok := p.Paths[id]; !ok {
		p.IDs = append(p.IDs, id)
	}
	p.Paths[id] = path
}

// DecodePositions parses a {unitId: [[lat, lon], ...]} document.
func DecodePositions(data []byte) (*Positions, error) {
	out := NewPositions()
	err := decodeObject(data, func(id string, raw json.RawMessage) error {
		if _, dup := out.Paths[id]; dup {
			return &StructureError{Unit: id, Reason: "duplicate unit id"}
		}
		var path []LatLon
		if err := json.Unmarshal(raw, &path); err != nil {
			return &StructureError{Unit: id, Reason: "position list: " + err.Error()}
		}
		out.Add(id, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Positions) UnmarshalJSON(data []byte) error {
	decoded, err := DecodePositions(data)
	if err != nil {
		return err
	}
	*p = *decoded
	return nil
}

func (p Positions) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range p.IDs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(id)
		path := p.Paths[id]
		if path == nil {
			path = []LatLon{}
		}
		val, err := json.Marshal(path)
		if err != nil {
			return nil, fmt.Errorf("telemetry: marshal positions %s: %w", id, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
