package render

import (
	"errors"
	"sync"
	"time"

	"github.com/shaunagostinho/ins-dash/internal/telemetry"
)

// Display is a presentation adapter. Writes addressed to slots the display
// does not have must be ignored, not reported.
type Display interface {
	ApplySlots(updates []Update)
	ApplyTracks(tracks []Track)
}

// Displays fans one cycle out to several adapters.
type Displays []Display

func (ds Displays) ApplySlots(updates []Update) {
	for _, d := range ds {
		d.ApplySlots(updates)
	}
}

func (ds Displays) ApplyTracks(tracks []Track) {
	for _, d := range ds {
		d.ApplyTracks(tracks)
	}
}

// Dashboard owns the state that outlives a poll cycle: the last-rendered slot
// cache and the trajectory tracker. Each Apply call renders one cycle and
// hands only the changed slots to the display.
type Dashboard struct {
	mu      sync.Mutex
	display Display
	cache   *Cache
	tracker *Tracker

	summary   Summary
	lastOK    time.Time
	lastErr   string
	cycles    uint64
	failures  uint64
	slotWrite uint64
}

// Status is a point-in-time view of the renderer for the status API.
type Status struct {
	Summary       Summary `json:"summary"`
	Cycles        uint64  `json:"cycles"`
	Failures      uint64  `json:"failures"`
	SlotWrites    uint64  `json:"slotWrites"`
	LastUpdateUTC string  `json:"lastUpdateUtc,omitempty"`
	LastError     string  `json:"lastError,omitempty"`
}

func NewDashboard(display Display) *Dashboard {
	return &Dashboard{
		display: display,
		cache:   NewCache(),
		tracker: NewTracker(),
	}
}

// ApplySnapshot renders every unit in snapshot order, then the system summary.
func (d *Dashboard) ApplySnapshot(snap *telemetry.Snapshot) {
	if snap == nil {
		return
	}
	var view []Update
	for _, id := range snap.IDs {
		view = append(view, RenderUnit(id, snap.Units[id])...)
	}

	d.mu.Lock()
	d.summary = Summarize(snap.OnlineCount(), snap.Len())
	view = append(view, d.summary.Update())
	changed := d.cache.Diff(view)
	d.cycles++
	d.slotWrite += uint64(len(changed))
	d.lastOK = time.Now().UTC()
	d.mu.Unlock()

	if len(changed) > 0 && d.display != nil {
		d.display.ApplySlots(changed)
	}
}

// ApplyPositions feeds the trajectory tracker.
func (d *Dashboard) ApplyPositions(pos *telemetry.Positions) {
	d.mu.Lock()
	changed := d.tracker.Update(pos)
	d.mu.Unlock()

	if len(changed) > 0 && d.display != nil {
		d.display.ApplyTracks(changed)
	}
}

// ApplyFailure handles a failed cycle. A transport failure flips the system
// slot to its offline state; a structural violation skips the render. Unit
// slots are never touched.
func (d *Dashboard) ApplyFailure(err error) {
	if err == nil {
		return
	}
	d.mu.Lock()
	d.failures++
	d.lastErr = err.Error()
	var changed []Update
	if !errors.Is(err, telemetry.ErrStructure) {
		changed = d.cache.Diff([]Update{UnreachableUpdate()})
	}
	d.mu.Unlock()

	if len(changed) > 0 && d.display != nil {
		d.display.ApplySlots(changed)
	}
}

// State returns everything currently on screen, for a display that attaches
// late and needs a full paint.
func (d *Dashboard) State() ([]Update, []Track) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cache.All(), d.tracker.All()
}

// Slot returns the value currently shown in one slot.
func (d *Dashboard) Slot(slot string) (Value, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cache.Get(slot)
}

func (d *Dashboard) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := Status{
		Summary:    d.summary,
		Cycles:     d.cycles,
		Failures:   d.failures,
		SlotWrites: d.slotWrite,
		LastError:  d.lastErr,
	}
	if !d.lastOK.IsZero() {
		st.LastUpdateUTC = d.lastOK.Format(time.RFC3339Nano)
	}
	return st
}
