// Directory Transfer Area table
// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package dta implements the fixed-pool hash table of in-flight
// directory-enumeration sessions keyed by the target-side DTA address.
package dta

import (
	"errors"
	"io/fs"
)

// DefaultPoolSize is the fixed number of DTA nodes the table can hold
// concurrently.
const DefaultPoolSize = 32

// ErrPoolExhausted is returned by Insert when no free node remains.
var ErrPoolExhausted = errors.New("dta: pool exhausted")

// Entry is a single directory-enumeration session: the attribute filter
// the target requested, its owned copy of the search pattern, the open
// directory iterator, and the last materialized name record.
type Entry struct {
	Key     uint32
	AttrMask byte
	Pattern string

	dir     []fs.DirEntry
	dirPos  int

	// Record is the materialized name record consumed on the next
	// enumeration step (populated by the caller between Fsfirst/Fsnext
	// calls; dta only manages the entry's lifetime, not its contents).
	Record interface{}
}

// SetIterator installs a directory listing as the entry's iterator,
// discarding any previous one.
func (e *Entry) SetIterator(entries []fs.DirEntry) {
	e.dir = entries
	e.dirPos = 0
}

// Next returns the next directory entry in the iterator, or (nil, false)
// on exhaustion.
func (e *Entry) Next() (fs.DirEntry, bool) {
	if e.dirPos >= len(e.dir) {
		return nil, false
	}

	d := e.dir[e.dirPos]
	e.dirPos++

	return d, true
}

// Pos returns the zero-based directory position of the entry most
// recently returned by Next, for callers that mirror it into a
// target-facing directory-offset field.
func (e *Entry) Pos() int {
	return e.dirPos - 1
}

type node struct {
	entry Entry
	used  bool
	next  *node
}

// Table is an open-addressed hash table over 32-bit DTA keys with
// separate chaining, backed by a fixed pool of nodes.
type Table struct {
	buckets []*node
	pool    []node
	free    []*node
	count   int
}

// NewTable allocates a Table with the given fixed pool size, rounded up
// to the next power of two for bucket-count masking.
func NewTable(poolSize int) *Table {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}

	bucketCount := nextPowerOfTwo(poolSize)

	t := &Table{
		buckets: make([]*node, bucketCount),
		pool:    make([]node, poolSize),
	}

	t.free = make([]*node, 0, poolSize)
	for i := range t.pool {
		t.free = append(t.free, &t.pool[i])
	}

	return t
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func hash(key uint32) uint32 {
	key ^= key << 13
	key ^= key >> 17
	key ^= key << 5
	return key * 2654435761
}

func (t *Table) bucket(key uint32) int {
	return int(hash(key)) & (len(t.buckets) - 1)
}

// Insert allocates a node for key, initializing its attribute mask to
// all-ones and clearing its owned directory handle and pattern. Returns
// ErrPoolExhausted if the fixed pool has no free node left.
func (t *Table) Insert(key uint32) (*Entry, error) {
	if e, ok := t.Lookup(key); ok {
		return e, nil
	}

	if len(t.free) == 0 {
		return nil, ErrPoolExhausted
	}

	n := t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]

	n.used = true
	n.entry = Entry{Key: key, AttrMask: 0xFF}

	b := t.bucket(key)
	n.next = t.buckets[b]
	t.buckets[b] = n

	t.count++

	return &n.entry, nil
}

// Lookup returns the entry for key, if present.
func (t *Table) Lookup(key uint32) (*Entry, bool) {
	for n := t.buckets[t.bucket(key)]; n != nil; n = n.next {
		if n.used && n.entry.Key == key {
			return &n.entry, true
		}
	}

	return nil, false
}

// Release unlinks the node for key, frees its owned directory iterator
// and pattern copy, and returns it to the free list. It is a no-op if
// key is not present.
func (t *Table) Release(key uint32) {
	b := t.bucket(key)

	var prev *node
	for n := t.buckets[b]; n != nil; n = n.next {
		if n.used && n.entry.Key == key {
			if prev == nil {
				t.buckets[b] = n.next
			} else {
				prev.next = n.next
			}

			n.used = false
			n.entry = Entry{}
			n.next = nil

			t.free = append(t.free, n)
			t.count--

			return
		}

		prev = n
	}
}

// Clear releases every bucket and node in the table.
func (t *Table) Clear() {
	for i := range t.buckets {
		t.buckets[i] = nil
	}

	t.free = t.free[:0]
	for i := range t.pool {
		t.pool[i] = node{}
		t.free = append(t.free, &t.pool[i])
	}

	t.count = 0
}

// Count scans all buckets and returns the number of live entries.
func (t *Table) Count() int {
	n := 0
	for _, b := range t.buckets {
		for cur := b; cur != nil; cur = cur.next {
			if cur.used {
				n++
			}
		}
	}
	return n
}
