package render

import "fmt"

// Summary is the system-wide status line.
type Summary struct {
	Online int  `json:"online"`
	Total  int  `json:"total"`
	Up     bool `json:"up"`
}

// Summarize computes the summary for one snapshot; the system is up iff at
// least one unit is online.
func Summarize(online, total int) Summary {
	return Summary{Online: online, Total: total, Up: online > 0}
}

func (s Summary) Update() Update {
	tag := "offline"
	if s.Up {
		tag = "online"
	}
	return Update{Slot: SystemSlot, Value: Value{Text: fmt.Sprintf("%d/%d online", s.Online, s.Total), Tag: tag}}
}

// UnreachableUpdate is written to the system slot when a poll fails.
func UnreachableUpdate() Update {
	return Update{Slot: SystemSlot, Value: Value{Text: "Backend unreachable", Tag: "offline"}}
}
