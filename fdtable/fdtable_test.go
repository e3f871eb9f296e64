// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package fdtable

import "testing"

func TestFirstAvailableFDStartsAtBase(t *testing.T) {
	tbl := NewTable()

	fd := tbl.FirstAvailableFD()
	if fd != Base {
		t.Errorf("FirstAvailableFD = %d, want %d", fd, Base)
	}
}

func TestAddFindDelete(t *testing.T) {
	tbl := NewTable()

	fd := tbl.FirstAvailableFD()
	tbl.Add(fd, "/sd/c/FILE.TXT", nil, false)

	if _, ok := tbl.FindByFD(fd); !ok {
		t.Fatalf("FindByFD(%d) failed after Add", fd)
	}

	if _, ok := tbl.FindByPath("/sd/c/FILE.TXT"); !ok {
		t.Fatal("FindByPath failed after Add")
	}

	tbl.DeleteByFD(fd)

	if _, ok := tbl.FindByFD(fd); ok {
		t.Fatalf("FindByFD(%d) succeeded after DeleteByFD", fd)
	}
}

func TestAllocationStableAcrossCloses(t *testing.T) {
	tbl := NewTable()

	fd1 := tbl.FirstAvailableFD()
	tbl.Add(fd1, "a", nil, false)

	fd2 := tbl.FirstAvailableFD()
	tbl.Add(fd2, "b", nil, false)

	if fd2 != fd1+1 {
		t.Fatalf("fd2 = %d, want %d", fd2, fd1+1)
	}

	tbl.DeleteByFD(fd1)

	// the lowest unused descriptor is now fd1 again, not a new high
	// watermark.
	fd3 := tbl.FirstAvailableFD()
	if fd3 != fd1 {
		t.Errorf("fd3 = %d, want reused %d", fd3, fd1)
	}
}

func TestNoDuplicateDescriptors(t *testing.T) {
	tbl := NewTable()

	seen := map[int]bool{}

	for i := 0; i < 10; i++ {
		fd := tbl.FirstAvailableFD()

		if seen[fd] {
			t.Fatalf("descriptor %d allocated twice", fd)
		}

		seen[fd] = true
		tbl.Add(fd, "path", nil, false)
	}

	if tbl.Count() != 10 {
		t.Errorf("Count = %d, want 10", tbl.Count())
	}
}

func TestClearAll(t *testing.T) {
	tbl := NewTable()

	tbl.Add(tbl.FirstAvailableFD(), "a", nil, false)
	tbl.Add(tbl.FirstAvailableFD(), "b", nil, false)

	tbl.ClearAll()

	if tbl.Count() != 0 {
		t.Errorf("Count = %d, want 0 after ClearAll", tbl.Count())
	}
}
