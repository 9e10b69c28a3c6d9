package incremental

// Diff classifies job ids from one snapshot against the store's known-open
// set. The three sets are pairwise disjoint: New ∪ StillActive covers the
// snapshot, StillActive ∪ Missing covers the known-open set.
type Diff struct {
	New         map[string]struct{} // in snapshot, not in store
	StillActive map[string]struct{} // in both
	Missing     map[string]struct{} // in store, not in snapshot
}

// CalculateDiff is pure set arithmetic; empty inputs yield empty outputs.
func CalculateDiff(current, knownOpen map[string]struct{}) Diff {
	d := Diff{
		New:         make(map[string]struct{}),
		StillActive: make(map[string]struct{}),
		Missing:     make(map[string]struct{}),
	}

	for id := range current {
		if _, ok := knownOpen[id]; ok {
			d.StillActive[id] = struct{}{}
		} else {
			d.New[id] = struct{}{}
		}
	}
	for id := range knownOpen {
		if _, ok := current[id]; !ok {
			d.Missing[id] = struct{}{}
		}
	}
	return d
}
