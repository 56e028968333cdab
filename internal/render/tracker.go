package render

import "github.com/shaunagostinho/ins-dash/internal/telemetry"

// Marker is a unit's current-position marker on the map.
type Marker struct {
	Position telemetry.LatLon `json:"position"`
	Visible  bool             `json:"visible"`
}

// Track is one unit's trajectory as the map should show it.
type Track struct {
	Unit   string             `json:"unit"`
	Path   []telemetry.LatLon `json:"path"`
	Marker Marker             `json:"marker"`
}

// Tracker keeps the per-unit path and marker across polls.
//
// A unit's path is replaced wholesale whenever the source sends a non-empty
// list for it. Empty lists and absent units leave the previous path and marker
// alone, and a marker once visible is never hidden again.
type Tracker struct {
	tracks map[string]*Track
	order  []string
}

func NewTracker() *Tracker {
	return &Tracker{tracks: make(map[string]*Track)}
}

// Update applies one positions document and returns the tracks it changed.
func (t *Tracker) Update(pos *telemetry.Positions) []Track {
	if pos == nil {
		return nil
	}
	var changed []Track
	for _, id := range pos.IDs {
		path := pos.Paths[id]
		if len(path) == 0 {
			continue
		}
		tr, ok := t.tracks[id]
		if !ok {
			tr = &Track{Unit: id}
			t.tracks[id] = tr
			t.order = append(t.order, id)
		}
		tr.Path = append([]telemetry.LatLon(nil), path...)
		tr.Marker.Position = path[0]
		tr.Marker.Visible = true
		changed = append(changed, tr.clone())
	}
	return changed
}

// Track returns the current state for one unit.
func (t *Tracker) Track(id string) (Track, bool) {
	tr, ok := t.tracks[id]
	if !ok {
		return Track{Unit: id}, false
	}
	return tr.clone(), true
}

// All returns every known track in first-seen order.
func (t *Tracker) All() []Track {
	out := make([]Track, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.tracks[id].clone())
	}
	return out
}

func (tr *Track) clone() Track {
	c := *tr
	c.Path = append([]telemetry.LatLon(nil), tr.Path...)
	return c
}
