// Package tui is a terminal rendition of the dashboard page. It consumes the
// same slot writes as the browser and shows only the slots it lays out.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shaunagostinho/ins-dash/internal/render"
)

var (
	accent    = lipgloss.Color("#50E3C2")
	muted     = lipgloss.Color("#8CA1AE")
	green     = lipgloss.Color("#2ECC71")
	lightGood = lipgloss.Color("#A3D977")
	yellow    = lipgloss.Color("#F1C40F")
	red       = lipgloss.Color("#FF6B6B")
	border    = lipgloss.Color("#2D6A80")
)

var (
	headerStyle = lipgloss.NewStyle().
		Padding(0, 1).
		Bold(true).
		Foreground(accent)

	labelStyle = lipgloss.NewStyle().
		Foreground(muted).
		Width(14)

	sectionStyle = lipgloss.NewStyle().
		Foreground(accent).
		Bold(true)

	panelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
		Foreground(muted)
)

// tagColors maps slot tags to a color; unlisted tags render muted.
var tagColors = map[string]lipgloss.Color{
	"best":        green,
	"ok":          green,
	"aligned":     green,
	"used":        green,
	"online":      green,
	"available":   green,
	"enabled":     green,
	"good":        lightGood,
	"degraded":    yellow,
	"warning":     yellow,
	"error":       red,
	"offline":     red,
	"not-aligned": red,
	"unused":      red,
}

func styleFor(tag string) lipgloss.Style {
	if c, ok := tagColors[tag]; ok {
		return lipgloss.NewStyle().Foreground(c)
	}
	return lipgloss.NewStyle().Foreground(muted)
}

// Unit is a unit as the terminal lists it.
type Unit struct {
	ID   string
	Name string
}

type slotsMsg []render.Update
type tracksMsg []render.Track

// row is one labelled line bound to a slot. visibility, when set, names the
// slot whose Hidden flag hides the row.
type row struct {
	label      string
	slot       string
	visibility string
}

type section struct {
	title string
	// status, when set, is shown next to the title.
	status     string
	visibility string
	rows       []row
}

// Model is the bubbletea model.
type Model struct {
	units    []Unit
	sections map[string][]section
	known    map[string]bool

	slots  map[string]render.Value
	tracks map[string]render.Track
	width  int
}

func NewModel(units []Unit) Model {
	m := Model{
		units:    units,
		sections: make(map[string][]section, len(units)),
		known:    map[string]bool{render.SystemSlot: true},
		slots:    make(map[string]render.Value),
		tracks:   make(map[string]render.Track),
	}
	for _, u := range units {
		secs := layout(u.ID)
		m.sections[u.ID] = secs
		m.known[render.Slot(render.KindStatus, u.ID)] = true
		m.known[render.Slot(render.KindError, u.ID)] = true
		for _, s := range secs {
			for _, id := range []string{s.status, s.visibility} {
				if id != "" {
					m.known[id] = true
				}
			}
			for _, r := range s.rows {
				m.known[r.slot] = true
				if r.visibility != "" {
					m.known[r.visibility] = true
				}
			}
		}
	}
	return m
}

func layout(id string) []section {
	pair := func(label, kind string) row { return row{label: label, slot: render.Slot(kind, id)} }
	secs := []section{
		{title: "Time", rows: []row{
			pair("UTC", render.KindUTCStatus),
			pair("Clock", render.KindClockStatus),
			pair("Updated", render.KindUTCDate),
		}},
		{title: "EKF", rows: []row{
			pair("Solution", render.KindEKFSolution),
			pair("Alignment", render.KindEKFAlign),
			pair("Latitude", render.KindEKFLat),
			pair("  std", render.KindEKFLatStd),
			pair("Longitude", render.KindEKFLon),
			pair("  std", render.KindEKFLonStd),
			pair("Altitude", render.KindEKFAlt),
			pair("  std", render.KindEKFAltStd),
		}},
	}
	for ch := 1; ch <= 2; ch++ {
		g := func(label, kind string) row { return row{label: label, slot: render.GNSSSlot(ch, kind, id)} }
		secs = append(secs, section{
			title:      fmt.Sprintf("GNSS %d", ch),
			status:     render.GNSSSlot(ch, render.KindGNSSStatus, id),
			visibility: render.GNSSSlot(ch, render.KindGNSSSection, id),
			rows: []row{
				g("Fix", render.KindGNSSPVTStatus),
				g("Latitude", render.KindGNSSLat),
				g("Longitude", render.KindGNSSLon),
				g("Height", render.KindGNSSAlt),
				g("Satellites", render.KindGNSSNumSv),
				g("Spoofing", render.KindGNSSSpoofing),
				g("Interference", render.KindGNSSInterference),
				g("OSNMA", render.KindGNSSOSNMA),
			},
		})
	}
	aiding := section{title: "Aiding"}
	for _, c := range render.Constituents {
		aiding.rows = append(aiding.rows, row{
			label:      c.Label,
			slot:       render.AidingSlot(c.Key, id),
			visibility: render.AidingRowSlot(c.Key, id),
		})
	}
	secs = append(secs, aiding, section{title: "Data logger", rows: []row{
		pair("Status", render.KindLoggerStatus),
		pair("Mode", render.KindLoggerMode),
		pair("Space", render.KindLoggerSpace),
	}})
	return secs
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case slotsMsg:
		for _, u := range msg {
			if !m.known[u.Slot] {
				continue
			}
			v := u.Value
			if u.KeepText {
				v.Text = m.slots[u.Slot].Text
			}
			m.slots[u.Slot] = v
		}
	case tracksMsg:
		for _, t := range msg {
			m.tracks[t.Unit] = t
		}
	}
	return m, nil
}

func (m Model) value(slot string) string {
	v, ok := m.slots[slot]
	if !ok || v.Text == "" {
		return helpStyle.Render(render.Placeholder)
	}
	return styleFor(v.Tag).Render(v.Text)
}

func (m Model) hidden(slot string) bool {
	return slot != "" && m.slots[slot].Hidden
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("INS Dashboard"))
	b.WriteString("  ")
	b.WriteString(m.value(render.SystemSlot))
	b.WriteString("\n")

	var panels []string
	for _, u := range m.units {
		panels = append(panels, panelStyle.Render(m.unitView(u)))
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, panels...)
	if m.width > 0 && lipgloss.Width(body) > m.width {
		body = lipgloss.JoinVertical(lipgloss.Left, panels...)
	}
	b.WriteString(body)
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("q: quit"))
	return b.String()
}

func (m Model) unitView(u Unit) string {
	var lines []string
	lines = append(lines, sectionStyle.Render(u.Name)+"  "+m.value(render.Slot(render.KindStatus, u.ID)))
	if errText := m.slots[render.Slot(render.KindError, u.ID)].Text; errText != "" {
		lines = append(lines, styleFor("error").Render(errText))
	}
	if t, ok := m.tracks[u.ID]; ok && t.Marker.Visible {
		lines = append(lines, labelStyle.Render("Track")+fmt.Sprintf("%.6f, %.6f (%d fixes)", t.Marker.Position.Lat(), t.Marker.Position.Lon(), len(t.Path)))
	}

	for _, s := range m.sections[u.ID] {
		title := sectionStyle.Render(s.title)
		if s.status != "" {
			title += " " + m.value(s.status)
		}
		lines = append(lines, "", title)
		if m.hidden(s.visibility) {
			continue
		}
		for _, r := range s.rows {
			if m.hidden(r.visibility) {
				continue
			}
			lines = append(lines, labelStyle.Render(r.label)+m.value(r.slot))
		}
	}
	return strings.Join(lines, "\n")
}

// Display forwards dashboard writes to a running program.
type Display struct {
	program *tea.Program
}

func NewDisplay(p *tea.Program) *Display {
	return &Display{program: p}
}

// ApplySlots implements render.Display.
func (d *Display) ApplySlots(updates []render.Update) {
	d.program.Send(slotsMsg(append([]render.Update(nil), updates...)))
}

// ApplyTracks implements render.Display.
func (d *Display) ApplyTracks(tracks []render.Track) {
	d.program.Send(tracksMsg(append([]render.Track(nil), tracks...)))
}
