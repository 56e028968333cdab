// Package quality ranks GNSS fix and EKF solution types into a small ordered
// set of tiers used for visual emphasis.
package quality

// Tier is a solution-quality rank. Error < Degraded < Good < Best; Unknown is
// outside the order and only produced for unrecognised source values.
type Tier int

const (
	Unknown Tier = iota
	Error
	Degraded
	Good
	Best
)

var tierNames = [...]string{"unknown", "error", "degraded", "good", "best"}

func (t Tier) String() string {
	if t >= 0 && int(t) < len(tierNames) {
		return tierNames[t]
	}
	return "unknown"
}

// Less reports whether t ranks strictly below o. Unknown compares false
// against everything.
func (t Tier) Less(o Tier) bool {
	if t == Unknown || o == Unknown {
		return false
	}
	return t < o
}

// Kind selects which source enumeration a value belongs to.
type Kind string

const (
	GNSS Kind = "gnss"
	EKF  Kind = "ekf"
)

var gnssTiers = map[string]Tier{
	"error":              Error,
	"exportRestrictions": Error,
	"noSolution":         Degraded,
	"static":             Degraded,
	"single":             Good,
	"differential":       Good,
	"rtkFloat":           Good,
	"pppFloat":           Good,
	"sbas":               Best,
	"rtkFixed":           Best,
	"pppFixed":           Best,
}

var ekfTiers = map[string]Tier{
	"invalid":     Error,
	"vg":          Degraded,
	"inertial":    Degraded,
	"velConst":    Degraded,
	"odometer":    Degraded,
	"airData":     Degraded,
	"dvl":         Degraded,
	"gnssVel":     Degraded,
	"gnssUnknown": Degraded,
	"singlePoint": Good,
	"dgps":        Good,
	"sbas":        Good,
	"rtkFloat":    Good,
	"pppFloat":    Good,
	"rtkFixed":    Best,
	"pppFixed":    Best,
}

// Classify maps a raw GNSS fix-quality or EKF solution-type value to its tier.
// It never fails: unmapped values and unknown kinds yield Unknown.
func Classify(kind Kind, value string) Tier {
	var table map[string]Tier
	switch kind {
	case GNSS:
		table = gnssTiers
	case EKF:
		table = ekfTiers
	default:
		return Unknown
	}
	if t, ok := table[value]; ok {
		return t
	}
	return Unknown
}
