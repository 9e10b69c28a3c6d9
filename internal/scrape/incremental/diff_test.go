package incremental

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func set(ids ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func TestCalculateDiff(t *testing.T) {
	tests := []struct {
		name      string
		current   map[string]struct{}
		knownOpen map[string]struct{}
		newIDs    map[string]struct{}
		active    map[string]struct{}
		missing   map[string]struct{}
	}{
		{
			name:      "mixed",
			current:   set("a", "b", "c"),
			knownOpen: set("b", "c", "d"),
			newIDs:    set("a"),
			active:    set("b", "c"),
			missing:   set("d"),
		},
		{
			name:      "everything new on empty store",
			current:   set("a", "b"),
			knownOpen: set(),
			newIDs:    set("a", "b"),
			active:    set(),
			missing:   set(),
		},
		{
			name:      "empty snapshot marks all known open as missing",
			current:   set(),
			knownOpen: set("a", "b"),
			newIDs:    set(),
			active:    set(),
			missing:   set("a", "b"),
		},
		{
			name:      "identical sets",
			current:   set("a", "b"),
			knownOpen: set("a", "b"),
			newIDs:    set(),
			active:    set("a", "b"),
			missing:   set(),
		},
		{
			name:      "disjoint sets",
			current:   set("a"),
			knownOpen: set("z"),
			newIDs:    set("a"),
			active:    set(),
			missing:   set("z"),
		},
		{
			name:      "both empty",
			current:   set(),
			knownOpen: set(),
			newIDs:    set(),
			active:    set(),
			missing:   set(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CalculateDiff(tt.current, tt.knownOpen)
			require.Equal(t, tt.newIDs, d.New)
			require.Equal(t, tt.active, d.StillActive)
			require.Equal(t, tt.missing, d.Missing)
		})
	}
}

func TestCalculateDiffPartitions(t *testing.T) {
	current := set("a", "b", "c", "d")
	knownOpen := set("c", "d", "e", "f")
	d := CalculateDiff(current, knownOpen)

	// pairwise disjoint
	for id := range d.New {
		require.NotContains(t, d.StillActive, id)
		require.NotContains(t, d.Missing, id)
	}
	for id := range d.StillActive {
		require.NotContains(t, d.Missing, id)
	}

	// New ∪ StillActive covers the snapshot
	require.Len(t, d.New, len(current)-len(d.StillActive))
	for id := range current {
		_, isNew := d.New[id]
		_, isActive := d.StillActive[id]
		require.True(t, isNew || isActive, "snapshot id %s unclassified", id)
	}

	// StillActive ∪ Missing covers the known-open set
	for id := range knownOpen {
		_, isActive := d.StillActive[id]
		_, isMissing := d.Missing[id]
		require.True(t, isActive || isMissing, "known-open id %s unclassified", id)
	}
}
