package replica

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/strangergwenn/orbital"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func leo(alt, phase float64) orbital.Orbit {
	return orbital.NewOrbit(orbital.NewCircularGeometry(orbital.Earth, alt, phase), epoch)
}

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

// assertIndexed checks that every object maps to the entry listing it.
func assertIndexed[P any](t *testing.T, tbl *Table[P]) {
	t.Helper()
	count := 0
	for _, e := range tbl.Entries() {
		for _, id := range e.IDs {
			got, ok := tbl.Get(id)
			require.True(t, ok, "%s not indexed", id)
			assert.Equal(t, e.Key, got.Key)
			count++
		}
	}
	assert.Equal(t, count, len(tbl.index))
}

func TestTableAddGet(t *testing.T) {
	tbl := NewTable[orbital.Orbit]("orbits", true)
	group := ids(3)
	key, err := tbl.Add(leo(300, 0), group)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, uint64(1), tbl.Version())
	for _, id := range group {
		e, ok := tbl.Get(id)
		require.True(t, ok)
		assert.Equal(t, key, e.Key)
		assert.Equal(t, 300.0, e.Payload.Geometry.StartAltitude)
	}
	_, ok := tbl.Get(uuid.New())
	assert.False(t, ok)
	assertIndexed(t, tbl)
}

func TestTableGetReturnsCopy(t *testing.T) {
	tbl := NewTable[orbital.Orbit]("orbits", true)
	id := uuid.New()
	_, err := tbl.Add(leo(300, 0), []uuid.UUID{id})
	require.NoError(t, err)
	e, _ := tbl.Get(id)
	e.Payload.Geometry.StartAltitude = 1000
	e.IDs[0] = uuid.New()
	again, _ := tbl.Get(id)
	assert.Equal(t, 300.0, again.Payload.Geometry.StartAltitude)
	assert.Equal(t, id, again.IDs[0])
}

func TestTableAddMovesObjects(t *testing.T) {
	tbl := NewTable[orbital.Orbit]("orbits", true)
	group := ids(2)
	first, err := tbl.Add(leo(300, 0), group)
	require.NoError(t, err)
	second, err := tbl.Add(leo(400, 0), group[:1])
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, tbl.Len())

	e, _ := tbl.Get(group[0])
	assert.Equal(t, second, e.Key)
	e, _ = tbl.Get(group[1])
	assert.Equal(t, first, e.Key)
	assert.Equal(t, []uuid.UUID{group[1]}, e.IDs)

	// Moving the last object deletes the emptied entry.
	_, err = tbl.Add(leo(500, 0), group[1:])
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assertIndexed(t, tbl)
}

func TestTableAddDuplicates(t *testing.T) {
	tbl := NewTable[orbital.Orbit]("orbits", true)
	id := uuid.New()
	_, err := tbl.Add(leo(300, 0), []uuid.UUID{id, id})
	require.NoError(t, err)
	e, _ := tbl.Get(id)
	assert.Len(t, e.IDs, 1)
	_, err = tbl.Add(leo(300, 0), nil)
	assert.Error(t, err)
}

func TestTableRemove(t *testing.T) {
	tbl := NewTable[orbital.Orbit]("orbits", true)
	a, b := ids(2), ids(1)
	_, err := tbl.Add(leo(300, 0), a)
	require.NoError(t, err)
	_, err = tbl.Add(leo(400, 0), b)
	require.NoError(t, err)

	n, err := tbl.Remove(a[0], uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, tbl.Len())
	assert.False(t, tbl.Contains(a[0]))
	assert.True(t, tbl.Contains(a[1]))

	version := tbl.Version()
	n, err = tbl.Remove(uuid.New())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, version, tbl.Version(), "no-op removal must not bump the version")

	n, err = tbl.Remove(a[1])
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, tbl.Len())
	// The surviving entry moved in the array: the index follows it.
	e, ok := tbl.Get(b[0])
	require.True(t, ok)
	assert.Equal(t, 400.0, e.Payload.Geometry.StartAltitude)
	assertIndexed(t, tbl)
}

func TestTableRebuildIndexIdempotent(t *testing.T) {
	tbl := NewTable[orbital.Orbit]("orbits", true)
	for i := 0; i < 5; i++ {
		_, err := tbl.Add(leo(300+float64(i)*10, 0), ids(2))
		require.NoError(t, err)
	}
	before := make(map[uuid.UUID]int, len(tbl.index))
	for k, v := range tbl.index {
		before[k] = v
	}
	tbl.RebuildIndex()
	tbl.RebuildIndex()
	assert.Equal(t, before, tbl.index)
}

func TestTableObserverRejectsWrites(t *testing.T) {
	tbl := NewTable[orbital.Orbit]("orbits", false)
	_, err := tbl.Add(leo(300, 0), ids(1))
	assert.ErrorIs(t, err, ErrNotAuthority)
	_, err = tbl.Remove(uuid.New())
	assert.ErrorIs(t, err, ErrNotAuthority)

	auth := NewTable[orbital.Orbit]("orbits", true)
	assert.ErrorIs(t, auth.ApplyDelta(Delta[orbital.Orbit]{Table: "orbits"}), ErrNotAuthority)
}

func TestTableDeltaConverges(t *testing.T) {
	auth := NewTable[orbital.Orbit]("orbits", true)
	obs := NewTable[orbital.Orbit]("orbits", false)
	a, b := ids(2), ids(2)

	_, err := auth.Add(leo(300, 0), a)
	require.NoError(t, err)
	_, err = auth.Add(leo(400, 90), b)
	require.NoError(t, err)
	require.NoError(t, obs.ApplyDelta(auth.Delta(obs.Version())))
	assert.Equal(t, auth.Entries(), obs.Entries())
	assert.Equal(t, auth.Version(), obs.Version())

	seen := obs.Version()
	_, err = auth.Remove(a...)
	require.NoError(t, err)
	_, err = auth.Add(leo(500, 180), b[:1])
	require.NoError(t, err)

	d := auth.Delta(seen)
	assert.False(t, d.Reset)
	assert.Len(t, d.Removals, 1)
	require.NoError(t, obs.ApplyDelta(d))
	assert.Equal(t, auth.Entries(), obs.Entries())
	assertIndexed(t, obs)

	// Replaying is harmless.
	require.NoError(t, obs.ApplyDelta(d))
	assert.Equal(t, auth.Entries(), obs.Entries())

	assert.True(t, auth.Delta(auth.Version()).Empty())
}

func TestTableStaleDeltaIgnored(t *testing.T) {
	auth := NewTable[orbital.Orbit]("orbits", true)
	obs := NewTable[orbital.Orbit]("orbits", false)
	id := uuid.New()
	_, err := auth.Add(leo(300, 0), []uuid.UUID{id})
	require.NoError(t, err)
	d1 := auth.Delta(0)
	_, err = auth.Remove(id)
	require.NoError(t, err)
	d2 := auth.Delta(d1.To)

	require.NoError(t, obs.ApplyDelta(d1))
	require.NoError(t, obs.ApplyDelta(d2))
	require.NoError(t, obs.ApplyDelta(d1))
	assert.False(t, obs.Contains(id), "removed entry came back")
	assert.Zero(t, obs.Len())
	assert.Equal(t, auth.Version(), obs.Version())

	// A batch reaching past the local version still skips entries removed since.
	other := uuid.New()
	_, err = auth.Add(leo(400, 0), []uuid.UUID{other})
	require.NoError(t, err)
	overlap := auth.Delta(d2.To)
	overlap.From = d1.From
	overlap.Upserts = append(d1.Upserts, overlap.Upserts...)
	require.NoError(t, obs.ApplyDelta(overlap))
	assert.False(t, obs.Contains(id), "removed entry came back")
	assert.True(t, obs.Contains(other))
	assert.Equal(t, auth.Entries(), obs.Entries())
	assertIndexed(t, obs)
}

func TestTableDeltaGapAndReset(t *testing.T) {
	auth := NewTable[orbital.Orbit]("orbits", true)
	obs := NewTable[orbital.Orbit]("orbits", false)
	_, err := auth.Add(leo(300, 0), ids(1))
	require.NoError(t, err)
	mid := auth.Version()
	_, err = auth.Add(leo(400, 0), ids(1))
	require.NoError(t, err)

	err = obs.ApplyDelta(auth.Delta(mid))
	assert.ErrorIs(t, err, ErrDeltaGap)
	assert.Zero(t, obs.Len())

	err = obs.ApplyDelta(Delta[orbital.Orbit]{Table: "trajectories"})
	assert.ErrorIs(t, err, ErrUnknownTable)

	// Tombstones older than the horizon are gone: stale receivers get a reset.
	first := auth.Entries()[0].IDs
	_, err = auth.Remove(first...)
	require.NoError(t, err)
	auth.Compact(auth.Version())
	d := auth.Delta(mid)
	assert.True(t, d.Reset)
	require.NoError(t, obs.ApplyDelta(d))
	assert.Equal(t, auth.Entries(), obs.Entries())
	assert.Equal(t, auth.Version(), obs.Version())
}
