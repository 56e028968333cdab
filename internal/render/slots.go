package render

// Value is what a display slot shows. A slot with KeepText only has its tag
// and visibility touched; its text content belongs to the page.
type Value struct {
	Text     string `json:"text,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Hidden   bool   `json:"hidden,omitempty"`
	KeepText bool   `json:"keepText,omitempty"`
}

// Update is one write to a named slot.
type Update struct {
	Slot string `json:"slot"`
	Value
}

// Placeholder is shown for any expected field the source did not provide.
const Placeholder = "--"

// NoData replaces every data-logger slot when the block is absent.
const NoData = "No data"

// SystemSlot is the single system-wide status slot.
const SystemSlot = "system-status"

// Slot kinds. A slot is addressed as "<kind>-<unitId>".
const (
	KindStatus       = "status"
	KindError        = "error"
	KindUTCStatus    = "utc-status"
	KindClockStatus  = "clock-status"
	KindUTCDate      = "utc-date"
	KindLoggerStatus = "logger-status"
	KindLoggerMode   = "logger-mode"
	KindLoggerSpace  = "logger-space"

	KindEKFLat      = "ekf-lat"
	KindEKFLon      = "ekf-lon"
	KindEKFAlt      = "ekf-alt"
	KindEKFLatStd   = "ekf-lat-std"
	KindEKFLonStd   = "ekf-lon-std"
	KindEKFAltStd   = "ekf-alt-std"
	KindEKFSolution = "ekf-solution"
	KindEKFAlign    = "ekf-align"
)

// GNSS channel slot kinds, prefixed with "gnss1-" or "gnss2-".
const (
	KindGNSSSection      = "section"
	KindGNSSStatus       = "status"
	KindGNSSPVTStatus    = "pvt-status"
	KindGNSSLat          = "lat"
	KindGNSSLon          = "lon"
	KindGNSSAlt          = "alt"
	KindGNSSLatStd       = "lat-std"
	KindGNSSLonStd       = "lon-std"
	KindGNSSAltStd       = "alt-std"
	KindGNSSSpoofing     = "spoofing"
	KindGNSSInterference = "interference"
	KindGNSSOSNMA        = "osnma"
	KindGNSSNumSv        = "numsv"
)

// Slot builds the id of a per-unit slot.
func Slot(kind, unit string) string {
	return kind + "-" + unit
}

// GNSSSlot builds the id of a per-channel slot, e.g. "gnss2-lat-A".
func GNSSSlot(channel int, kind, unit string) string {
	return channelPrefix(channel) + kind + "-" + unit
}

// SignalSlot builds the id of a constellation/band availability slot.
func SignalSlot(channel int, signal, unit string) string {
	return channelPrefix(channel) + "signal-" + signal + "-" + unit
}

// AidingSlot builds the id of a constituent's used/unused glyph.
func AidingSlot(key, unit string) string {
	return "aiding-" + key + "-" + unit
}

// AidingRowSlot builds the id of a constituent's row, which carries visibility.
func AidingRowSlot(key, unit string) string {
	return "aiding-row-" + key + "-" + unit
}

func channelPrefix(channel int) string {
	if channel == 2 {
		return "gnss2-"
	}
	return "gnss1-"
}

// Constituent is one aiding source the EKF may use. Channel names the GNSS
// receiver whose enable flag governs the row's visibility; 0 means none.
type Constituent struct {
	Key     string
	Label   string
	Channel int
}

// Constituents is the closed, ordered set of aiding keys rendered. Keys the
// source sends outside this table are ignored.
var Constituents = []Constituent{
	{Key: "gnss1Pos", Label: "GNSS1 position", Channel: 1},
	{Key: "gnss1Vel", Label: "GNSS1 velocity", Channel: 1},
	{Key: "gnss1Hdt", Label: "GNSS1 heading", Channel: 1},
	{Key: "gnss2Pos", Label: "GNSS2 position", Channel: 2},
	{Key: "gnss2Vel", Label: "GNSS2 velocity", Channel: 2},
	{Key: "gnss2Hdt", Label: "GNSS2 heading", Channel: 2},
	{Key: "odometer", Label: "Odometer"},
	{Key: "dvl", Label: "DVL"},
	{Key: "airData", Label: "Air data"},
	{Key: "magnetometer", Label: "Magnetometer"},
	{Key: "zupt", Label: "ZUPT"},
}

// Signal is a constellation or frequency band reported by a receiver.
type Signal struct {
	Key   string
	Label string
}

// Signals is the closed, ordered set of signal keys rendered per channel.
var Signals = []Signal{
	{Key: "gps", Label: "GPS"},
	{Key: "glonass", Label: "GLONASS"},
	{Key: "galileo", Label: "Galileo"},
	{Key: "beidou", Label: "BeiDou"},
	{Key: "qzss", Label: "QZSS"},
	{Key: "sbas", Label: "SBAS"},
	{Key: "l1", Label: "L1"},
	{Key: "l2", Label: "L2"},
	{Key: "l5", Label: "L5"},
	{Key: "e6", Label: "E6"},
}
