package render

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shaunagostinho/ins-dash/internal/telemetry"
)

// pageDisplay mimics a page: it only holds the slots in its catalogue and
// silently drops writes to anything else.
type pageDisplay struct {
	catalogue map[string]bool
	slots     map[string]Value
	writes    []string
	tracks    map[string]Track
}

func newPageDisplay(slots ...string) *pageDisplay {
	p := &pageDisplay{catalogue: map[string]bool{}, slots: map[string]Value{}, tracks: map[string]Track{}}
	for _, s := range slots {
		p.catalogue[s] = true
	}
	return p
}

func (p *pageDisplay) ApplySlots(updates []Update) {
	for _, u := range updates {
		if len(p.catalogue) > 0 && !p.catalogue[u.Slot] {
			continue
		}
		p.slots[u.Slot] = u.Value
		p.writes = append(p.writes, u.Slot)
	}
}

func (p *pageDisplay) ApplyTracks(tracks []Track) {
	for _, tr := range tracks {
		p.tracks[tr.Unit] = tr
	}
}

func scenarioSnapshot(t *testing.T) *telemetry.Snapshot {
	t.Helper()
	doc := `{
		"A": {"online": true, "timestamp": "t1",
		      "status": {"ins": {"type": "rtkFixed", "aligned": true}, "utc": {"utcStatus": "valid", "clockStatus": "valid"}}},
		"B": {"online": false, "timestamp": "t1", "errorMessage": "timeout"}
	}`
	snap, err := telemetry.DecodeSnapshot([]byte(doc))
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	return snap
}

func TestDashboard_EndToEndScenario(t *testing.T) {
	page := newPageDisplay()
	d := NewDashboard(page)
	d.ApplySnapshot(scenarioSnapshot(t))

	if got := page.slots[SystemSlot]; got.Text != "1/2 online" || got.Tag != "online" {
		t.Fatalf("system=%+v", got)
	}
	if got := page.slots["ekf-solution-A"]; got.Tag != "best" {
		t.Fatalf("ekf-solution-A=%+v", got)
	}
	if got := page.slots["error-B"]; got.Text != "timeout" || got.Hidden {
		t.Fatalf("error-B=%+v", got)
	}
	for _, slot := range page.writes {
		if strings.HasPrefix(slot, "ekf-") && strings.HasSuffix(slot, "-B") {
			t.Fatalf("EKF slot written for offline unit: %s", slot)
		}
	}
	if st := d.Status(); st.Summary.Online != 1 || st.Summary.Total != 2 || st.Cycles != 1 {
		t.Fatalf("status=%+v", st)
	}
}

func TestDashboard_OfflineFreezesLastKnownGood(t *testing.T) {
	page := newPageDisplay()
	d := NewDashboard(page)

	online := telemetry.NewSnapshot()
	online.Add("A", onlineRecord())
	d.ApplySnapshot(online)

	before := make(map[string]Value, len(page.slots))
	for k, v := range page.slots {
		before[k] = v
	}
	page.writes = nil

	offline := telemetry.NewSnapshot()
	offline.Add("A", telemetry.Offline("t2", errors.New("connection refused")))
	d.ApplySnapshot(offline)

	for _, slot := range page.writes {
		if slot != "status-A" && slot != "error-A" && slot != SystemSlot {
			t.Fatalf("offline cycle wrote %s", slot)
		}
	}
	for slot, v := range before {
		if slot == "status-A" || slot == "error-A" || slot == SystemSlot {
			continue
		}
		if page.slots[slot] != v {
			t.Fatalf("%s changed: %+v -> %+v", slot, v, page.slots[slot])
		}
	}
	if page.slots["error-A"].Text != "connection refused" {
		t.Fatalf("error-A=%+v", page.slots["error-A"])
	}
	if page.slots[SystemSlot].Tag != "offline" {
		t.Fatalf("system=%+v", page.slots[SystemSlot])
	}
}

func TestDashboard_UnchangedCycleWritesNothing(t *testing.T) {
	page := newPageDisplay()
	d := NewDashboard(page)
	snap := telemetry.NewSnapshot()
	snap.Add("A", onlineRecord())

	d.ApplySnapshot(snap)
	page.writes = nil
	d.ApplySnapshot(snap)
	if len(page.writes) != 0 {
		t.Fatalf("second identical cycle wrote %v", page.writes)
	}
}

func TestDashboard_SlotMissingFromPageIsNoop(t *testing.T) {
	page := newPageDisplay("status-A", SystemSlot)
	d := NewDashboard(page)
	snap := telemetry.NewSnapshot()
	snap.Add("A", onlineRecord())
	d.ApplySnapshot(snap)

	if len(page.slots) != 2 {
		t.Fatalf("slots=%v", page.slots)
	}
	if v, ok := d.Slot("ekf-solution-A"); !ok || v.Tag != "best" {
		t.Fatalf("cache should still hold the full view, got %+v", v)
	}
}

func TestDashboard_Failures(t *testing.T) {
	page := newPageDisplay()
	d := NewDashboard(page)
	d.ApplySnapshot(scenarioSnapshot(t))
	aBefore := page.slots["ekf-solution-A"]

	d.ApplyFailure(&telemetry.StructureError{Reason: "document is not a mapping"})
	if page.slots[SystemSlot].Text != "1/2 online" {
		t.Fatalf("structural failure should not touch the display, system=%+v", page.slots[SystemSlot])
	}

	d.ApplyFailure(fmt.Errorf("source: GET /api/data: connection refused"))
	if got := page.slots[SystemSlot]; got.Text != "Backend unreachable" || got.Tag != "offline" {
		t.Fatalf("system=%+v", got)
	}
	if page.slots["ekf-solution-A"] != aBefore {
		t.Fatalf("unit slot changed on transport failure")
	}
	if st := d.Status(); st.Failures != 2 || st.LastError == "" {
		t.Fatalf("status=%+v", st)
	}

	d.ApplySnapshot(scenarioSnapshot(t))
	if page.slots[SystemSlot].Text != "1/2 online" {
		t.Fatalf("recovery: system=%+v", page.slots[SystemSlot])
	}
}

func TestTracker_MonotonicVisibility(t *testing.T) {
	page := newPageDisplay()
	d := NewDashboard(page)

	if _, ok := d.tracker.Track("A"); ok {
		t.Fatalf("unknown unit should not have a track")
	}

	first := telemetry.NewPositions()
	first.Add("A", []telemetry.LatLon{{48.2, 2.2}, {48.1, 2.1}})
	first.Add("B", nil)
	d.ApplyPositions(first)

	tr := page.tracks["A"]
	if !tr.Marker.Visible || tr.Marker.Position != (telemetry.LatLon{48.2, 2.2}) || len(tr.Path) != 2 {
		t.Fatalf("track A=%+v", tr)
	}
	if _, ok := page.tracks["B"]; ok {
		t.Fatalf("empty list should not create a track")
	}

	empty := telemetry.NewPositions()
	empty.Add("A", []telemetry.LatLon{})
	d.ApplyPositions(empty)
	d.ApplyPositions(telemetry.NewPositions())

	got, ok := d.tracker.Track("A")
	if !ok || !got.Marker.Visible || len(got.Path) != 2 || got.Path[0] != (telemetry.LatLon{48.2, 2.2}) {
		t.Fatalf("track A after empty polls=%+v", got)
	}

	next := telemetry.NewPositions()
	next.Add("A", []telemetry.LatLon{{48.3, 2.3}})
	d.ApplyPositions(next)
	got, _ = d.tracker.Track("A")
	if len(got.Path) != 1 || got.Marker.Position != (telemetry.LatLon{48.3, 2.3}) {
		t.Fatalf("path should be replaced wholesale, got %+v", got)
	}
}

func TestTracker_CopiesInput(t *testing.T) {
	tr := NewTracker()
	path := []telemetry.LatLon{{1, 1}}
	pos := telemetry.NewPositions()
	pos.Add("A", path)
	tr.Update(pos)
	path[0] = telemetry.LatLon{9, 9}

	got, _ := tr.Track("A")
	if got.Path[0] != (telemetry.LatLon{1, 1}) {
		t.Fatalf("tracker aliased caller slice: %v", got.Path)
	}
}
