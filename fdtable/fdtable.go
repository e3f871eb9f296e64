// File descriptor table
// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package fdtable implements the responder's table of open file
// descriptors: a singly-linked list keyed by a numeric descriptor chosen
// above a fixed base, to avoid collision with the target OS's own low
// handle range.
package fdtable

// File is the subset of storage.File the table needs; declared locally
// to avoid an import cycle back into the storage package.
type File interface {
	ReadAt(buf []byte, offset int64) (int, error)
	WriteAt(buf []byte, offset int64) (int, error)
	Size() int64
	Close() error
}

// Base is the lowest numeric descriptor this table ever hands out.
const Base = 16384

// Entry is one open file: its bounded path, the underlying library
// handle, and the logical seek offset the responder tracks (seeks are
// applied lazily at the next read or write).
type Entry struct {
	FD     int
	Path   string
	File   File
	Offset int64

	// ReadWrite records whether the file was opened for writing, since
	// write-buffer requires it and Fopen's three modes collapse to a
	// single library open flag set.
	ReadWrite bool
}

type node struct {
	entry Entry
	next  *node
}

// Table is a singly-linked list of open Entry records.
type Table struct {
	head *node
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{}
}

// Add inserts a new entry at the head of the table. Callers must have already
// obtained fd via FirstAvailableFD.
func (t *Table) Add(fd int, path string, file File, readWrite bool) *Entry {
	n := &node{entry: Entry{FD: fd, Path: path, File: file, ReadWrite: readWrite}}
	n.next = t.head
	t.head = n

	return &n.entry
}

// FindByPath returns the first entry whose Path matches, if any.
func (t *Table) FindByPath(path string) (*Entry, bool) {
	for n := t.head; n != nil; n = n.next {
		if n.entry.Path == path {
			return &n.entry, true
		}
	}

	return nil, false
}

// FindByFD returns the entry for the given descriptor, if present.
func (t *Table) FindByFD(fd int) (*Entry, bool) {
	for n := t.head; n != nil; n = n.next {
		if n.entry.FD == fd {
			return &n.entry, true
		}
	}

	return nil, false
}

// DeleteByFD removes the entry for fd, if present, without closing its
// underlying file; callers are expected to close before deleting.
func (t *Table) DeleteByFD(fd int) {
	var prev *node

	for n := t.head; n != nil; n = n.next {
		if n.entry.FD == fd {
			if prev == nil {
				t.head = n.next
			} else {
				prev.next = n.next
			}

			return
		}

		prev = n
	}
}

// FirstAvailableFD returns the smallest unused descriptor ≥ Base.
func (t *Table) FirstAvailableFD() int {
	for fd := Base; ; fd++ {
		if _, ok := t.FindByFD(fd); !ok {
			return fd
		}
	}
}

// ClearAll closes every underlying file handle and empties the table.
func (t *Table) ClearAll() {
	for n := t.head; n != nil; n = n.next {
		if n.entry.File != nil {
			n.entry.File.Close()
		}
	}

	t.head = nil
}

// Count returns the number of open entries, for tests and diagnostics.
func (t *Table) Count() int {
	n := 0
	for cur := t.head; cur != nil; cur = cur.next {
		n++
	}
	return n
}
