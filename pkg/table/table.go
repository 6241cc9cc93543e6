// Package table implements the open-addressed hash table used for VM
// globals, class method tables, instance field tables, and the interned
// string set.
//
// Keys are always interned *value.ObjString pointers; comparison is always
// pointer identity except FindString, the one operation interning itself
// uses, which compares by length + hash + byte content.
package table

import "github.com/kristofer/smog/pkg/value"

const maxLoad = 0.75

type entry struct {
	key   *value.ObjString
	val   value.Value
	tomb  bool // entry was deleted; key/val are ignored, slot stays probed-through
	inUse bool // entry currently holds a live key (not empty, not tombstone)
}

// Table is an open-addressed hash map with linear probing, power-of-two
// capacity, and tombstone deletion.
type Table struct {
	entries []entry
	count   int // live entries + tombstones, used against the load factor
}

// New returns an empty table. Capacity is allocated lazily on first Set.
func New() *Table { return &Table{} }

// Len reports the number of live (non-tombstone) entries.
func (t *Table) Len() int {
	n := 0
	for _, e := range t.entries {
		if e.inUse {
			n++
		}
	}
	return n
}

// Get looks up key, returning its value and whether it was found.
func (t *Table) Get(key *value.ObjString) (value.Value, bool) {
	if len(t.entries) == 0 {
		return value.NilValue, false
	}
	e := t.find(key)
	if e.key == nil {
		return value.NilValue, false
	}
	return e.val, true
}

// Set inserts or overwrites key's value, growing the table first if the
// load factor would exceed 0.75. Returns true if key was not already
// present.
func (t *Table) Set(key *value.ObjString, v value.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoad {
		t.grow()
	}
	idx := t.findIndex(t.entries, key)
	e := &t.entries[idx]
	isNew := e.key == nil
	if isNew && !e.tomb {
		t.count++
	}
	e.key = key
	e.val = v
	e.tomb = false
	e.inUse = true
	return isNew
}

// Delete converts key's entry into a tombstone, preserving the probe chain
// for any keys that hashed past it. Returns false if key was not present.
func (t *Table) Delete(key *value.ObjString) bool {
	if len(t.entries) == 0 {
		return false
	}
	idx := t.findIndex(t.entries, key)
	e := &t.entries[idx]
	if e.key == nil {
		return false
	}
	e.key = nil
	e.val = value.BoolValue(true)
	e.tomb = true
	e.inUse = false
	return true
}

// Each calls fn for every live entry, in table order. Iteration order is
// not stable across growth and must not be relied on by callers other than
// the GC, which only needs every live key/value visited once.
func (t *Table) Each(fn func(key *value.ObjString, v value.Value)) {
	for _, e := range t.entries {
		if e.inUse {
			fn(e.key, e.val)
		}
	}
}

// FindString is the only content-comparing operation on a Table: it probes
// for a key with matching length, hash, and bytes, used exclusively by the
// interner to decide whether a byte sequence already has a canonical
// ObjString.
func (t *Table) FindString(chars string, hash uint32) *value.ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	cap := len(t.entries)
	idx := int(hash) % cap
	for {
		e := &t.entries[idx]
		if e.key == nil {
			if !e.tomb {
				return nil
			}
		} else if e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		idx = (idx + 1) % cap
	}
}

// find locates key's entry (live or the terminating empty slot) without
// mutating the table.
func (t *Table) find(key *value.ObjString) *entry {
	idx := t.findIndex(t.entries, key)
	return &t.entries[idx]
}

// findIndex implements the probe sequence: walk linearly from
// hash%capacity; remember the first tombstone seen; stop at the key
// (pointer match) or at a true empty slot, in which case the remembered
// tombstone (if any) is reused instead.
func (t *Table) findIndex(entries []entry, key *value.ObjString) int {
	cap := len(entries)
	idx := int(key.Hash) % cap
	tombstone := -1
	for {
		e := &entries[idx]
		if e.key == nil {
			if !e.tomb {
				if tombstone != -1 {
					return tombstone
				}
				return idx
			}
			if tombstone == -1 {
				tombstone = idx
			}
		} else if e.key == key {
			return idx
		}
		idx = (idx + 1) % cap
	}
}

// grow doubles capacity (from zero to 8 on first use) and reinserts every
// live entry into the fresh array; tombstones are dropped and the count is
// rebuilt from scratch.
func (t *Table) grow() {
	newCap := 8
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	fresh := make([]entry, newCap)
	newCount := 0
	for _, e := range t.entries {
		if !e.inUse {
			continue
		}
		idx := t.findIndex(fresh, e.key)
		fresh[idx] = e
		newCount++
	}
	t.entries = fresh
	t.count = newCount
}
