package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shaunagostinho/ins-dash/internal/render"
	"github.com/shaunagostinho/ins-dash/internal/telemetry"
)

func apply(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModelIgnoresUnknownSlots(t *testing.T) {
	m := NewModel([]Unit{{ID: "A", Name: "Alpha"}})
	m = apply(m, slotsMsg{
		{Slot: "status-A", Value: render.Value{Text: "Online", Tag: "online"}},
		{Slot: "status-ZZ", Value: render.Value{Text: "Online"}},
		{Slot: "made-up-A", Value: render.Value{Text: "x"}},
	})
	if m.slots["status-A"].Text != "Online" {
		t.Fatalf("status-A=%+v", m.slots["status-A"])
	}
	if _, ok := m.slots["status-ZZ"]; ok {
		t.Fatalf("unknown unit slot stored")
	}
	if _, ok := m.slots["made-up-A"]; ok {
		t.Fatalf("unknown kind stored")
	}
}

func TestModelKeepTextAndHidden(t *testing.T) {
	m := NewModel([]Unit{{ID: "A", Name: "Alpha"}})
	row := render.AidingRowSlot("gnss2Pos", "A")
	m = apply(m, slotsMsg{
		{Slot: render.GNSSSlot(2, render.KindGNSSStatus, "A"), Value: render.Value{Text: "disabled", Tag: "disabled"}},
		{Slot: render.GNSSSlot(2, render.KindGNSSSection, "A"), Value: render.Value{Hidden: true, KeepText: true}},
		{Slot: row, Value: render.Value{Text: "ignored", Hidden: true, KeepText: true}},
	})
	if got := m.slots[row]; got.Text != "" || !got.Hidden {
		t.Fatalf("row=%+v", got)
	}

	view := m.View()
	if !strings.Contains(view, "GNSS 2") || !strings.Contains(view, "disabled") {
		t.Fatalf("view missing GNSS 2 header:\n%s", view)
	}
	if strings.Contains(view, "GNSS2 position") {
		t.Fatalf("hidden aiding row rendered:\n%s", view)
	}
	if !strings.Contains(view, "GNSS1 position") {
		t.Fatalf("visible aiding row missing:\n%s", view)
	}
}

func TestModelViewShowsValuesAndTracks(t *testing.T) {
	m := NewModel([]Unit{{ID: "A", Name: "Alpha"}, {ID: "B", Name: "Bravo"}})
	m = apply(m, slotsMsg{
		{Slot: render.SystemSlot, Value: render.Value{Text: "1/2 online", Tag: "online"}},
		{Slot: "ekf-solution-A", Value: render.Value{Text: "rtkFixed", Tag: "best"}},
		{Slot: "error-B", Value: render.Value{Text: "timeout", Tag: "error"}},
	})
	m = apply(m, tracksMsg{{
		Unit:   "A",
		Path:   []telemetry.LatLon{{48.5, 2.25}, {48.4, 2.2}},
		Marker: render.Marker{Position: telemetry.LatLon{48.5, 2.25}, Visible: true},
	}})

	view := m.View()
	for _, want := range []string{"1/2 online", "rtkFixed", "timeout", "Alpha", "Bravo", "48.500000, 2.250000 (2 fixes)"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModelQuits(t *testing.T) {
	m := NewModel(nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("cmd did not quit")
	}
}
