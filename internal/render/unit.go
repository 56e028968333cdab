package render

import (
	"strconv"

	"github.com/shaunagostinho/ins-dash/internal/quality"
	"github.com/shaunagostinho/ins-dash/internal/telemetry"
)

// Glyphs for aiding constituents.
const (
	GlyphUsed   = "✔"
	GlyphUnused = "✘"
)

// view accumulates a unit's slot writes in a stable order.
type view struct {
	unit    string
	updates []Update
}

func (v *view) set(slot string, val Value) {
	v.updates = append(v.updates, Update{Slot: slot, Value: val})
}

func (v *view) text(kind, s string) {
	v.set(Slot(kind, v.unit), Value{Text: s})
}

func (v *view) tagged(kind, s, tag string) {
	v.set(Slot(kind, v.unit), Value{Text: s, Tag: tag})
}

func visibility(visible bool) Value {
	return Value{KeepText: true, Hidden: !visible}
}

// RenderUnit builds the complete set of slot writes for one unit.
//
// An offline unit only gets its status and error slots; every other slot is
// absent from the result so whatever the display last showed stays on screen.
func RenderUnit(unit string, rec *telemetry.UnitRecord) []Update {
	v := &view{unit: unit}
	if rec == nil {
		return nil
	}

	if rec.Online {
		v.tagged(KindStatus, "Online", "online")
	} else {
		v.tagged(KindStatus, "Offline", "offline")
	}
	if !rec.Online && rec.ErrorMessage != "" {
		v.set(Slot(KindError, unit), Value{Text: rec.ErrorMessage, Tag: "error"})
	} else {
		v.set(Slot(KindError, unit), Value{Hidden: true})
	}
	if !rec.Online {
		return v.updates
	}

	renderUTC(v, rec)
	renderDataLogger(v, rec.DataLogger)
	var meas telemetry.MeasurementBlock
	if rec.Measurement != nil {
		meas = *rec.Measurement
	}
	renderGNSS(v, 1, meas.GNSS1)
	renderGNSS(v, 2, meas.GNSS2)
	renderEKF(v, rec.Status, meas.EKF)
	renderAiding(v, rec.Status)
	return v.updates
}

func renderUTC(v *view, rec *telemetry.UnitRecord) {
	if rec.Status == nil {
		v.text(KindUTCStatus, Placeholder)
		v.text(KindClockStatus, Placeholder)
	} else {
		utc := rec.Status.UTC
		v.tagged(KindUTCStatus, orPlaceholder(utc.UTCStatus), utcTag(utc.UTCStatus))
		v.tagged(KindClockStatus, orPlaceholder(utc.ClockStatus), clockTag(utc.ClockStatus))
	}
	date := ""
	if rec.Measurement != nil {
		date = rec.Measurement.Timestamp
	}
	v.text(KindUTCDate, orPlaceholder(date))
}

// utcTag and clockTag map the receiver's own vocabularies to a visual state.
// They are deliberately not quality tiers.
func utcTag(s string) string {
	switch s {
	case "":
		return ""
	case "valid":
		return "ok"
	case "invalid":
		return "error"
	default:
		return "warning"
	}
}

func clockTag(s string) string {
	switch s {
	case "":
		return ""
	case "valid":
		return "ok"
	case "error":
		return "error"
	default:
		return "warning"
	}
}

func renderDataLogger(v *view, dl *telemetry.DataLoggerBlock) {
	if dl == nil {
		v.text(KindLoggerStatus, NoData)
		v.text(KindLoggerMode, NoData)
		v.text(KindLoggerSpace, NoData)
		return
	}
	v.text(KindLoggerStatus, orPlaceholder(dl.Status))
	v.text(KindLoggerMode, orPlaceholder(dl.Mode))
	v.text(KindLoggerSpace, formatCapacity(dl.UsedSpace, dl.TotalSpace))
}

func renderGNSS(v *view, ch int, g *telemetry.GNSSMeasurement) {
	slot := func(kind string) string { return GNSSSlot(ch, kind, v.unit) }

	if g.Disabled() {
		v.set(slot(KindGNSSSection), visibility(false))
		v.set(slot(KindGNSSStatus), Value{Text: telemetry.ChannelDisabled, Tag: "disabled"})
		return
	}
	v.set(slot(KindGNSSSection), visibility(true))

	var pvt telemetry.PVT
	if g == nil {
		v.set(slot(KindGNSSStatus), Value{Text: Placeholder})
	} else {
		v.set(slot(KindGNSSStatus), Value{Text: orPlaceholder(g.Status), Tag: "enabled"})
		if g.PVT != nil {
			pvt = *g.PVT
		}
	}

	if pvt.Type == "" {
		v.set(slot(KindGNSSPVTStatus), Value{Text: Placeholder})
	} else {
		tier := quality.Classify(quality.GNSS, pvt.Type)
		v.set(slot(KindGNSSPVTStatus), Value{Text: pvt.Type, Tag: tier.String()})
	}
	v.set(slot(KindGNSSLat), Value{Text: formatDegrees(pvt.Latitude)})
	v.set(slot(KindGNSSLon), Value{Text: formatDegrees(pvt.Longitude)})
	v.set(slot(KindGNSSAlt), Value{Text: formatMeters(pvt.Height)})
	v.set(slot(KindGNSSLatStd), Value{Text: formatMeters(pvt.LatitudeStd)})
	v.set(slot(KindGNSSLonStd), Value{Text: formatMeters(pvt.LongitudeStd)})
	v.set(slot(KindGNSSAltStd), Value{Text: formatMeters(pvt.HeightStd)})
	v.set(slot(KindGNSSSpoofing), Value{Text: orPlaceholder(pvt.Spoofing)})
	v.set(slot(KindGNSSInterference), Value{Text: orPlaceholder(pvt.Interference)})
	v.set(slot(KindGNSSOSNMA), Value{Text: orPlaceholder(pvt.OSNMA)})
	v.set(slot(KindGNSSNumSv), Value{Text: formatSvCount(pvt.NumSvUsed, pvt.NumSvTracked)})

	for _, sig := range Signals {
		tag := "unavailable"
		if pvt.Signals[sig.Key] {
			tag = "available"
		}
		v.set(SignalSlot(ch, sig.Key, v.unit), Value{Text: sig.Label, Tag: tag})
	}
}

func formatSvCount(used, tracked *int) string {
	u, t := Placeholder, Placeholder
	if used != nil {
		u = strconv.Itoa(*used)
	}
	if tracked != nil {
		t = strconv.Itoa(*tracked)
	}
	return u + "/" + t
}

func renderEKF(v *view, st *telemetry.StatusBlock, ekf *telemetry.EKFSolution) {
	var sol telemetry.EKFSolution
	if ekf != nil {
		sol = *ekf
	}
	v.text(KindEKFLat, formatDegrees(sol.Latitude))
	v.text(KindEKFLon, formatDegrees(sol.Longitude))
	v.text(KindEKFAlt, formatMeters(sol.Altitude))
	v.text(KindEKFLatStd, formatStd(sol.PositionStd, 0))
	v.text(KindEKFLonStd, formatStd(sol.PositionStd, 1))
	v.text(KindEKFAltStd, formatStd(sol.PositionStd, 2))

	if st == nil || st.INS.Type == "" {
		v.text(KindEKFSolution, Placeholder)
	} else {
		tier := quality.Classify(quality.EKF, st.INS.Type)
		v.tagged(KindEKFSolution, st.INS.Type, tier.String())
	}

	switch {
	case st == nil || st.INS.Aligned == nil:
		v.text(KindEKFAlign, Placeholder)
	case *st.INS.Aligned:
		v.tagged(KindEKFAlign, "Aligned", "aligned")
	default:
		v.tagged(KindEKFAlign, "Not aligned", "not-aligned")
	}
}

func renderAiding(v *view, st *telemetry.StatusBlock) {
	for _, c := range Constituents {
		if st == nil {
			v.set(AidingSlot(c.Key, v.unit), Value{Text: Placeholder})
			continue
		}
		v.set(AidingRowSlot(c.Key, v.unit), visibility(channelEnabled(st, c.Channel)))
		used, ok := st.Aiding[c.Key]
		switch {
		case !ok:
		case used:
			v.set(AidingSlot(c.Key, v.unit), Value{Text: GlyphUsed, Tag: "used"})
		default:
			v.set(AidingSlot(c.Key, v.unit), Value{Text: GlyphUnused, Tag: "unused"})
		}
	}
}

func channelEnabled(st *telemetry.StatusBlock, ch int) bool {
	switch ch {
	case 1:
		return st.GNSS1.Enabled
	case 2:
		return st.GNSS2.Enabled
	default:
		return true
	}
}
