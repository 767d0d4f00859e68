// Package replica holds the replicated databases of who is on what orbit or
// trajectory. Only the authoritative side mutates them; observers apply the
// versioned deltas it produces.
package replica

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/brunoga/deep"
	"github.com/google/uuid"
	"github.com/strangergwenn/orbital"
)

var (
	// ErrNotAuthority is returned when an observer tries to mutate a table, or the authority to apply a delta.
	ErrNotAuthority = errors.New("not the authority")
	// ErrDeltaGap is returned when a delta starts after the local version: a reset is required.
	ErrDeltaGap = errors.New("delta gap")
	// ErrUnknownTable is returned when a delta targets another table.
	ErrUnknownTable = errors.New("unknown table")
)

// EntryKey identifies an entry on every replica.
type EntryKey uint64

// Entry is a payload and the objects which share it.
type Entry[P any] struct {
	Key     EntryKey    `json:"key"`
	Version uint64      `json:"version"` // Table version of the last change of this entry.
	Payload P           `json:"payload"`
	IDs     []uuid.UUID `json:"identifiers"`
}

// Removal is the tombstone of a removed entry.
type Removal struct {
	Key     EntryKey `json:"key"`
	Version uint64   `json:"version"`
}

// Delta is a batch of changes between two versions of a table.
type Delta[P any] struct {
	Table    string     `json:"table"`
	From     uint64     `json:"from"`
	To       uint64     `json:"to"`
	Reset    bool       `json:"reset,omitempty"` // Upserts hold the whole table.
	Upserts  []Entry[P] `json:"upserts,omitempty"`
	Removals []Removal  `json:"removals,omitempty"`
}

// Empty returns whether this delta changes nothing.
func (d Delta[P]) Empty() bool {
	return !d.Reset && len(d.Upserts) == 0 && len(d.Removals) == 0
}

// Table is an array of entries indexed by object identifier.
// The index is rebuilt after every structural change of the array.
type Table[P any] struct {
	name       string
	authority  bool
	entries    []Entry[P]
	index      map[uuid.UUID]int
	version    uint64
	nextKey    EntryKey
	tombstones map[EntryKey]uint64
	horizon    uint64 // Tombstones up to this version were compacted.
}

// OrbitTable stores objects parked on stable orbits.
type OrbitTable = Table[orbital.Orbit]

// TrajectoryTable stores objects executing a trajectory.
type TrajectoryTable = Table[orbital.Trajectory]

// NewTable returns an empty table.
func NewTable[P any](name string, authority bool) *Table[P] {
	return &Table[P]{
		name:       name,
		authority:  authority,
		index:      make(map[uuid.UUID]int),
		nextKey:    1,
		tombstones: make(map[EntryKey]uint64),
	}
}

// Name returns the name of this table.
func (t *Table[P]) Name() string {
	return t.name
}

// Authority returns whether this replica may be mutated locally.
func (t *Table[P]) Authority() bool {
	return t.authority
}

// Version returns the current version.
func (t *Table[P]) Version() uint64 {
	return t.version
}

// Len returns the number of entries.
func (t *Table[P]) Len() int {
	return len(t.entries)
}

// Add adds an entry for the provided objects, after removing them from
// whichever entry of this table they were in.
func (t *Table[P]) Add(payload P, ids []uuid.UUID) (EntryKey, error) {
	if !t.authority {
		return 0, fmt.Errorf("%s: add: %w", t.name, ErrNotAuthority)
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("%s: add: no identifiers", t.name)
	}
	version := t.version + 1
	t.remove(ids, version)
	entry := Entry[P]{
		Key:     t.nextKey,
		Version: version,
		Payload: deep.MustCopy(payload),
		IDs:     dedup(ids),
	}
	t.nextKey++
	t.entries = append(t.entries, entry)
	t.version = version
	t.RebuildIndex()
	return entry.Key, nil
}

// Remove removes the provided objects. Entries left without objects are deleted.
// It returns the number of objects which were found.
func (t *Table[P]) Remove(ids ...uuid.UUID) (int, error) {
	if !t.authority {
		return 0, fmt.Errorf("%s: remove: %w", t.name, ErrNotAuthority)
	}
	version := t.version + 1
	removed := t.remove(ids, version)
	if removed > 0 {
		t.version = version
		t.RebuildIndex()
	}
	return removed, nil
}

func (t *Table[P]) remove(ids []uuid.UUID, version uint64) int {
	removed := 0
	for _, id := range ids {
		pos, ok := t.index[id]
		if !ok {
			continue
		}
		entry := &t.entries[pos]
		entry.IDs = slices.DeleteFunc(entry.IDs, func(o uuid.UUID) bool { return o == id })
		entry.Version = version
		delete(t.index, id)
		removed++
	}
	if removed == 0 {
		return 0
	}
	t.entries = slices.DeleteFunc(t.entries, func(e Entry[P]) bool {
		if len(e.IDs) > 0 {
			return false
		}
		t.tombstones[e.Key] = version
		return true
	})
	return removed
}

// RebuildIndex rebuilds the identifier index from the entries.
func (t *Table[P]) RebuildIndex() {
	index := make(map[uuid.UUID]int, len(t.index))
	for pos, e := range t.entries {
		for _, id := range e.IDs {
			index[id] = pos
		}
	}
	t.index = index
}

// Get returns a copy of the entry holding the provided object.
func (t *Table[P]) Get(id uuid.UUID) (Entry[P], bool) {
	pos, ok := t.index[id]
	if !ok {
		return Entry[P]{}, false
	}
	return deep.MustCopy(t.entries[pos]), true
}

// Contains returns whether the provided object is in this table.
func (t *Table[P]) Contains(id uuid.UUID) bool {
	_, ok := t.index[id]
	return ok
}

// Entries returns a copy of all entries.
func (t *Table[P]) Entries() []Entry[P] {
	return deep.MustCopy(t.entries)
}

// Range calls fn on every entry in order until it returns false. The entry
// is shared with the table and must not be modified.
func (t *Table[P]) Range(fn func(e *Entry[P]) bool) {
	for i := range t.entries {
		if !fn(&t.entries[i]) {
			return
		}
	}
}

// Delta returns the changes since the provided version. Receivers older than
// the compaction horizon get a reset.
func (t *Table[P]) Delta(since uint64) Delta[P] {
	d := Delta[P]{Table: t.name, From: since, To: t.version}
	if since > t.version || (since < t.horizon) {
		d.From = 0
		d.Reset = true
		d.Upserts = t.Entries()
		return d
	}
	for _, e := range t.entries {
		if e.Version > since {
			d.Upserts = append(d.Upserts, deep.MustCopy(e))
		}
	}
	for key, version := range t.tombstones {
		if version > since {
			d.Removals = append(d.Removals, Removal{key, version})
		}
	}
	sort.Slice(d.Removals, func(i, j int) bool { return d.Removals[i].Key < d.Removals[j].Key })
	return d
}

// Compact forgets the tombstones up to the provided version.
func (t *Table[P]) Compact(upTo uint64) {
	if upTo > t.version {
		upTo = t.version
	}
	for key, version := range t.tombstones {
		if version <= upTo {
			delete(t.tombstones, key)
		}
	}
	if upTo > t.horizon {
		t.horizon = upTo
	}
}

// ApplyDelta applies a delta from the authority. For every entry, the most
// recent version wins. Entries are kept sorted by key.
func (t *Table[P]) ApplyDelta(d Delta[P]) error {
	if err := t.checkDelta(d); err != nil {
		return err
	}
	if d.Reset {
		t.entries = t.entries[:0]
		t.version = 0
	} else if d.To <= t.version {
		// Everything in the batch has been seen already.
		return nil
	}

	positions := make(map[EntryKey]int, len(t.entries))
	for pos, e := range t.entries {
		positions[e.Key] = pos
	}
	for _, up := range d.Upserts {
		pos, ok := positions[up.Key]
		if !ok {
			if up.Version <= t.version {
				// Keys are never reused: this entry was removed since.
				continue
			}
			positions[up.Key] = len(t.entries)
			t.entries = append(t.entries, deep.MustCopy(up))
			continue
		}
		if t.entries[pos].Version < up.Version {
			t.entries[pos] = deep.MustCopy(up)
		}
	}
	removed := make(map[EntryKey]bool, len(d.Removals))
	for _, r := range d.Removals {
		if pos, ok := positions[r.Key]; ok && t.entries[pos].Version <= r.Version {
			removed[r.Key] = true
		}
	}
	t.entries = slices.DeleteFunc(t.entries, func(e Entry[P]) bool { return removed[e.Key] })
	sort.Slice(t.entries, func(i, j int) bool { return t.entries[i].Key < t.entries[j].Key })
	if d.To > t.version {
		t.version = d.To
	}
	t.RebuildIndex()
	return nil
}

// checkDelta returns why the delta cannot be applied to this table, if anything.
func (t *Table[P]) checkDelta(d Delta[P]) error {
	if t.authority {
		return fmt.Errorf("%s: apply delta: %w", t.name, ErrNotAuthority)
	}
	if d.Table != t.name {
		return fmt.Errorf("%w: %s delta applied to %s", ErrUnknownTable, d.Table, t.name)
	}
	if !d.Reset && d.From > t.version {
		return fmt.Errorf("%s: %w: delta from %d, local version %d", t.name, ErrDeltaGap, d.From, t.version)
	}
	return nil
}

// dedup returns a copy of ids without duplicates, in order.
func dedup(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
