package assistant

// Trace is the append-only log of pipeline steps executed for one turn.
// Entries can be added but never removed or reordered.
type Trace struct {
	entries []string
}

// Append records one marker.
func (t *Trace) Append(marker string) {
	t.entries = append(t.entries, marker)
}

// Entries returns a copy of the recorded markers in execution order.
func (t *Trace) Entries() []string {
	out := make([]string, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of recorded markers.
func (t *Trace) Len() int {
	return len(t.entries)
}

// Contains reports whether marker was recorded.
func (t *Trace) Contains(marker string) bool {
	for _, e := range t.entries {
		if e == marker {
			return true
		}
	}
	return false
}
