package telemetry

// Snapshot is one poll's multi-unit telemetry document.
// IDs keeps the document key order so units are always rendered in the order
// the source listed them.
type Snapshot struct {
	IDs   []string
	Units map[string]*UnitRecord
}

// NewSnapshot returns an empty snapshot ready for Add.
func NewSnapshot() *Snapshot {
	return &Snapshot{Units: make(map[string]*UnitRecord)}
}

// Add appends a unit, or replaces its record if the id is already present.
func (s *Snapshot) Add(id string, rec *UnitRecord) {
	if s.Units == nil {
		s.Units = make(map[string]*UnitRecord)
	}
	if _, ok := s.Units[id]; !ok {
		s.IDs = append(s.IDs, id)
	}
	s.Units[id] = rec
}

// Len returns the number of units in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.IDs)
}

// OnlineCount returns how many units report online=true.
func (s *Snapshot) OnlineCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, id := range s.IDs {
		if rec := s.Units[id]; rec != nil && rec.Online {
			n++
		}
	}
	return n
}

// UnitRecord is the state of one INS at poll time.
// When Online is false only ErrorMessage and Timestamp are meaningful.
type UnitRecord struct {
	Online       bool              `json:"online"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	Timestamp    string            `json:"timestamp"`
	Status       *StatusBlock      `json:"status,omitempty"`
	Measurement  *MeasurementBlock `json:"measurement,omitempty"`
	DataLogger   *DataLoggerBlock  `json:"dataLogger,omitempty"`
}

// Offline builds the record reported for an unreachable unit.
func Offline(timestamp string, err error) *UnitRecord {
	rec := &UnitRecord{Online: false, Timestamp: timestamp}
	if err != nil {
		rec.ErrorMessage = err.Error()
	}
	return rec
}

// StatusBlock carries clock discipline, solution state and aiding usage.
type StatusBlock struct {
	UTC    UTCStatus       `json:"utc"`
	INS    INSStatus       `json:"ins"`
	Aiding map[string]bool `json:"aiding,omitempty"` // constituent name -> used
	GNSS1  ChannelStatus   `json:"gnss1"`
	GNSS2  ChannelStatus   `json:"gnss2"`
}

type UTCStatus struct {
	UTCStatus   string `json:"utcStatus"`
	ClockStatus string `json:"clockStatus"`
}

type INSStatus struct {
	Type    string `json:"type"` // EKF solution type, e.g. "rtkFixed"
	Aligned *bool  `json:"aligned,omitempty"`
}

type ChannelStatus struct {
	Enabled bool `json:"enabled"`
}

// MeasurementBlock holds the fused solution and both GNSS receivers.
type MeasurementBlock struct {
	Timestamp string           `json:"timestamp"`
	EKF       *EKFSolution     `json:"ekf,omitempty"`
	GNSS1     *GNSSMeasurement `json:"gnss1,omitempty"`
	GNSS2     *GNSSMeasurement `json:"gnss2,omitempty"`
}

// EKFSolution is the fused position estimate.
// PositionStd is north/east/down standard deviation in meters.
type EKFSolution struct {
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	Altitude    *float64   `json:"altitude,omitempty"`
	PositionStd []*float64 `json:"positionStd,omitempty"`
}

// Channel status values.
const (
	ChannelDisabled = "disabled"
	ChannelEnabled  = "enabled"
)

type GNSSMeasurement struct {
	Status string `json:"status"` // "disabled" or "enabled"
	PVT    *PVT   `json:"pvt,omitempty"`
}

// Disabled reports whether the receiver channel is switched off.
func (g *GNSSMeasurement) Disabled() bool {
	return g != nil && g.Status == ChannelDisabled
}

// PVT is a GNSS receiver's standalone fix.
type PVT struct {
	Type         string          `json:"type"` // fix quality, e.g. "rtkFixed"
	Latitude     *float64        `json:"latitude,omitempty"`
	Longitude    *float64        `json:"longitude,omitempty"`
	Height       *float64        `json:"height,omitempty"`
	LatitudeStd  *float64        `json:"latitudeStd,omitempty"`
	LongitudeStd *float64        `json:"longitudeStd,omitempty"`
	HeightStd    *float64        `json:"heightStd,omitempty"`
	Spoofing     string          `json:"spoofing,omitempty"`
	Interference string          `json:"interference,omitempty"`
	OSNMA        string          `json:"osnma,omitempty"`
	NumSvUsed    *int            `json:"numSvUsed,omitempty"`
	NumSvTracked *int            `json:"numSvTracked,omitempty"`
	Signals      map[string]bool `json:"signals,omitempty"` // constellation or band -> used
}

// DataLoggerBlock reports the on-board recorder. Sizes are in bytes.
type DataLoggerBlock struct {
	Status     string  `json:"status"`
	Mode       string  `json:"mode"`
	UsedSpace  *uint64 `json:"usedSpace,omitempty"`
	TotalSpace *uint64 `json:"totalSpace,omitempty"`
}
