package render

import "sort"

// Cache remembers the last value written to every slot so each cycle only
// emits the slots whose value changed.
type Cache struct {
	values map[string]Value
}

func NewCache() *Cache {
	return &Cache{values: make(map[string]Value)}
}

// Diff records view and returns the subset of updates that differ from what
// was last written. Order is preserved.
func (c *Cache) Diff(view []Update) []Update {
	var out []Update
	for _, u := range view {
		if prev, ok := c.values[u.Slot]; ok && prev == u.Value {
			continue
		}
		c.values[u.Slot] = u.Value
		out = append(out, u)
	}
	return out
}

// Get returns the last value written to slot.
func (c *Cache) Get(slot string) (Value, bool) {
	v, ok := c.values[slot]
	return v, ok
}

// All returns every cached slot sorted by slot id.
func (c *Cache) All() []Update {
	out := make([]Update, 0, len(c.values))
	for slot, v := range c.values {
		out = append(out, Update{Slot: slot, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}
