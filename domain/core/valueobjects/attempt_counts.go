package valueobjects

// AttemptCounts maps a fingerprinting detection-method group to the number of
// attempts observed for it. A nil map is the empty value.
type AttemptCounts map[string]int

// Clone returns an independent copy
func (a AttemptCounts) Clone() AttemptCounts {
	if len(a) == 0 {
		return nil
	}
	out := make(AttemptCounts, len(a))
	for group, count := range a {
		out[group] = count
	}
	return out
}

// IsEmpty reports whether no attempts are recorded
func (a AttemptCounts) IsEmpty() bool {
	return len(a) == 0
}

// Total returns the sum of all group counts
func (a AttemptCounts) Total() int {
	total := 0
	for _, count := range a {
		total += count
	}
	return total
}

// Add combines two attempt maps elementwise. Combining with an empty map
// returns the other map unchanged; two non-empty maps are expected to share
// the same key set and are combined over the key union.
func (a AttemptCounts) Add(other AttemptCounts) AttemptCounts {
	return combine(a, other, true)
}

// Subtract removes other's counts elementwise, with the same empty-operand
// rule as Add: an empty operand yields the other map unchanged
func (a AttemptCounts) Subtract(other AttemptCounts) AttemptCounts {
	return combine(a, other, false)
}

func combine(a, b AttemptCounts, add bool) AttemptCounts {
	// If one side is empty, return the other as-is
	if a.IsEmpty() {
		return b.Clone()
	}
	if b.IsEmpty() {
		return a.Clone()
	}

	out := make(AttemptCounts, len(a))
	for group := range union(a, b) {
		if add {
			out[group] = a[group] + b[group]
		} else {
			out[group] = a[group] - b[group]
		}
	}
	return out
}

func union(a, b AttemptCounts) map[string]struct{} {
	keys := make(map[string]struct{}, len(a)+len(b))
	for group := range a {
		keys[group] = struct{}{}
	}
	for group := range b {
		keys[group] = struct{}{}
	}
	return keys
}
