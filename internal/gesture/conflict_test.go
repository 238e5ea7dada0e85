package gesture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(name string, priority int, value float64, target AudioControlTarget, activatedAt time.Time) activeResult {
	m := testMapping(name)
	m.Arbitration = ArbitrationDescriptor{Priority: priority, ExclusiveGroup: "group"}
	m.Target = target
	m.UpdatedAt = activatedAt
	mapping := m
	return activeResult{mapping: &mapping, value: value, activatedAt: activatedAt}
}

func TestResolveGroupSingleCandidateNotContended(t *testing.T) {
	now := time.Now()
	a := candidate("solo", 1, 0.4, crossfaderTarget(), now)

	updates, conflict, err := resolveGroup("group", ResolvePriority, []activeResult{a}, now)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, 0.4, updates[0].Value)
	assert.False(t, conflict.Contended)
	assert.Equal(t, a.mapping.ID, conflict.WinnerID)
	assert.Equal(t, []MappingID{a.mapping.ID}, conflict.MappingIDs)
}

func TestResolveGroupPriority(t *testing.T) {
	now := time.Now()
	low := candidate("low", 1, 0.2, crossfaderTarget(), now)
	high := candidate("high", 9, 0.8, crossfaderTarget(), now)

	updates, conflict, err := resolveGroup("group", ResolvePriority, []activeResult{low, high}, now)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, 0.8, updates[0].Value)
	assert.Equal(t, high.mapping.ID, updates[0].MappingID)

	assert.True(t, conflict.Contended)
	assert.Equal(t, high.mapping.ID, conflict.WinnerID)
	assert.ElementsMatch(t, []MappingID{low.mapping.ID, high.mapping.ID}, conflict.MappingIDs)
}

func TestResolveGroupPriorityTieBreaksOnRecency(t *testing.T) {
	now := time.Now()
	older := candidate("older", 5, 0.2, crossfaderTarget(), now.Add(-time.Minute))
	newer := candidate("newer", 5, 0.8, crossfaderTarget(), now)

	updates, conflict, err := resolveGroup("group", ResolvePriority, []activeResult{older, newer}, now)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, newer.mapping.ID, conflict.WinnerID)
	assert.Equal(t, 0.8, updates[0].Value)
}

func TestResolveGroupLatest(t *testing.T) {
	now := time.Now()
	early := candidate("early", 9, 0.2, crossfaderTarget(), now.Add(-time.Second))
	late := candidate("late", 1, 0.8, crossfaderTarget(), now)

	updates, conflict, err := resolveGroup("group", ResolveLatest, []activeResult{early, late}, now)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, late.mapping.ID, conflict.WinnerID, "activation recency wins regardless of priority")
	assert.Equal(t, 0.8, updates[0].Value)
}

func TestResolveGroupAverageSameTarget(t *testing.T) {
	now := time.Now()
	a := candidate("a", 1, 0.2, crossfaderTarget(), now)
	b := candidate("b", 1, 0.6, crossfaderTarget(), now)

	updates, conflict, err := resolveGroup("group", ResolveAverage, []activeResult{a, b}, now)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.InDelta(t, 0.4, updates[0].Value, 1e-12)
	assert.Empty(t, updates[0].MappingID, "blended output has no single source mapping")
	assert.True(t, conflict.Contended)
	assert.False(t, conflict.Fallback)
}

func TestResolveGroupAverageMixedTargetsFallsBack(t *testing.T) {
	now := time.Now()
	a := candidate("a", 1, 0.2, crossfaderTarget(), now)
	b := candidate("b", 1, 0.6, deckVolumeTarget(0), now)

	updates, conflict, err := resolveGroup("group", ResolveAverage, []activeResult{a, b}, now)
	assert.ErrorIs(t, err, ErrMixedTargets)
	require.Len(t, updates, 2, "mismatched targets dispatch independently")
	assert.True(t, conflict.Fallback)
	assert.True(t, conflict.Contended)
	assert.Empty(t, conflict.WinnerID)
}
