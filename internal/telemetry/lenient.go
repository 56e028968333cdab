package telemetry

import (
	"bytes"
	"encoding/json"
)

// The optional blocks decode field by field: a mistyped field is left at its
// zero value and its siblings still decode. Only a block that is not an
// object at all fails.

type fieldSet map[string]json.RawMessage

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func parseFields(data []byte) (fieldSet, bool, error) {
	if isNull(data) {
		return nil, false, nil
	}
	var fields fieldSet
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, false, err
	}
	return fields, true, nil
}

// field decodes one member into dst. dst is only written on success.
func field[T any](fields fieldSet, name string, dst *T) bool {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return false
	}
	var v T
	if json.Unmarshal(raw, &v) != nil {
		return false
	}
	*dst = v
	return true
}

// flags decodes a name -> bool mapping, keeping the entries that are booleans.
func flags(fields fieldSet, name string) map[string]bool {
	var raw fieldSet
	if !field(fields, name, &raw) {
		return nil
	}
	out := make(map[string]bool, len(raw))
	for key := range raw {
		var used bool
		if field(raw, key, &used) {
			out[key] = used
		}
	}
	return out
}

func (b *StatusBlock) UnmarshalJSON(data []byte) error {
	fields, ok, err := parseFields(data)
	if !ok {
		return err
	}
	*b = StatusBlock{}
	field(fields, "utc", &b.UTC)
	field(fields, "ins", &b.INS)
	b.Aiding = flags(fields, "aiding")
	field(fields, "gnss1", &b.GNSS1)
	field(fields, "gnss2", &b.GNSS2)
	return nil
}

func (u *UTCStatus) UnmarshalJSON(data []byte) error {
	fields, ok, err := parseFields(data)
	if !ok {
		return err
	}
	*u = UTCStatus{}
	field(fields, "utcStatus", &u.UTCStatus)
	field(fields, "clockStatus", &u.ClockStatus)
	return nil
}

func (s *INSStatus) UnmarshalJSON(data []byte) error {
	fields, ok, err := parseFields(data)
	if !ok {
		return err
	}
	*s = INSStatus{}
	field(fields, "type", &s.Type)
	field(fields, "aligned", &s.Aligned)
	return nil
}

func (c *ChannelStatus) UnmarshalJSON(data []byte) error {
	fields, ok, err := parseFields(data)
	if !ok {
		return err
	}
	*c = ChannelStatus{}
	field(fields, "enabled", &c.Enabled)
	return nil
}

func (m *MeasurementBlock) UnmarshalJSON(data []byte) error {
	fields, ok, err := parseFields(data)
	if !ok {
		return err
	}
	*m = MeasurementBlock{}
	field(fields, "timestamp", &m.Timestamp)
	field(fields, "ekf", &m.EKF)
	field(fields, "gnss1", &m.GNSS1)
	field(fields, "gnss2", &m.GNSS2)
	return nil
}

func (e *EKFSolution) UnmarshalJSON(data []byte) error {
	fields, ok, err := parseFields(data)
	if !ok {
		return err
	}
	*e = EKFSolution{}
	field(fields, "latitude", &e.Latitude)
	field(fields, "longitude", &e.Longitude)
	field(fields, "altitude", &e.Altitude)

	// Each component fills its own slot; a bad one stays nil.
	var std []json.RawMessage
	if field(fields, "positionStd", &std) {
		e.PositionStd = make([]*float64, len(std))
		for i, raw := range std {
			var v *float64
			if !isNull(raw) && json.Unmarshal(raw, &v) == nil {
				e.PositionStd[i] = v
			}
		}
	}
	return nil
}

func (g *GNSSMeasurement) UnmarshalJSON(data []byte) error {
	fields, ok, err := parseFields(data)
	if !ok {
		return err
	}
	*g = GNSSMeasurement{}
	field(fields, "status", &g.Status)
	field(fields, "pvt", &g.PVT)
	return nil
}

func (p *PVT) UnmarshalJSON(data []byte) error {
	fields, ok, err := parseFields(data)
	if !ok {
		return err
	}
	*p = PVT{}
	field(fields, "type", &p.Type)
	field(fields, "latitude", &p.Latitude)
	field(fields, "longitude", &p.Longitude)
	field(fields, "height", &p.Height)
	field(fields, "latitudeStd", &p.LatitudeStd)
	field(fields, "longitudeStd", &p.LongitudeStd)
	field(fields, "heightStd", &p.HeightStd)
	field(fields, "spoofing", &p.Spoofing)
	field(fields, "interference", &p.Interference)
	field(fields, "osnma", &p.OSNMA)
	field(fields, "numSvUsed", &p.NumSvUsed)
	field(fields, "numSvTracked", &p.NumSvTracked)
	p.Signals = flags(fields, "signals")
	return nil
}

func (d *DataLoggerBlock) UnmarshalJSON(data []byte) error {
	fields, ok, err := parseFields(data)
	if !ok {
		return err
	}
	*d = DataLoggerBlock{}
	field(fields, "status", &d.Status)
	field(fields, "mode", &d.Mode)
	field(fields, "usedSpace", &d.UsedSpace)
	field(fields, "totalSpace", &d.TotalSpace)
	return nil
}

// DecodeBlocks fills the optional blocks of an online record from a JSON
// object carrying "status", "measurement" and "dataLogger". A block that is
// not an object is left absent.
func DecodeBlocks(rec *UnitRecord, data []byte) error {
	fields, ok, err := parseFields(data)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	field(fields, "status", &rec.Status)
	field(fields, "measurement", &rec.Measurement)
	field(fields, "dataLogger", &rec.DataLogger)
	return nil
}
