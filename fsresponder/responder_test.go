// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package fsresponder

import (
	"testing"

	"github.com/usbarmory/tamago-cartbridge/abi"
	"github.com/usbarmory/tamago-cartbridge/storage"
)

func newTestResponder() (*Responder, *storage.MemFS) {
	fsys := storage.NewMemFS()
	win := abi.NewTestWindow(SubsystemSize + RequestAreaSize + 4096)

	return NewResponder(fsys, win, 0, "", 'C', false), fsys
}

func TestFsfirstFsnextEnumeration(t *testing.T) {
	r, fsys := newTestResponder()

	fsys.Seed("A.TXT", []byte("a"))
	fsys.Seed("B.TXT", []byte("b"))
	fsys.Seed("HELLO.DOC", []byte("c"))

	const key = 0xAABBCCDD

	if status := r.Fsfirst(key, 0xFF, "*.TXT"); status != StatusOK {
		t.Fatalf("Fsfirst = %v, want StatusOK", status)
	}

	longName := readCString(r.Win.Slice(r.Base+offDTATransfer+dtaLongName, 14))
	if longName != "A.TXT" {
		t.Errorf("DTA long filename = %q, want %q", longName, "A.TXT")
	}

	if off := r.Win.ReadSwappedLongword(r.Base + offDTATransfer + dtaOffset); off != 0 {
		t.Errorf("DTA directory offset = %d, want 0 for the first entry", off)
	}

	startCount := 0

	if status := r.Fsnext(key); status != StatusOK {
		t.Fatalf("second Fsnext = %v, want StatusOK", status)
	}

	longName = readCString(r.Win.Slice(r.Base+offDTATransfer+dtaLongName, 14))
	if longName != "B.TXT" {
		t.Errorf("DTA long filename after Fsnext = %q, want %q", longName, "B.TXT")
	}

	if off := r.Win.ReadSwappedLongword(r.Base + offDTATransfer + dtaOffset); off != 1 {
		t.Errorf("DTA directory offset after Fsnext = %d, want 1", off)
	}

	if status := r.Fsnext(key); status != StatusNoMoreFiles {
		t.Fatalf("third Fsnext = %v, want StatusNoMoreFiles", status)
	}

	if count := r.dtaTable.Count(); count != startCount {
		t.Errorf("dta count after exhaustion = %d, want %d", count, startCount)
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	r, _ := newTestResponder()

	fd, status := r.Fcreate("PATTERN.BIN", 0)
	if status != StatusOK {
		t.Fatalf("Fcreate = %v", status)
	}

	pattern := []byte{0x01, 0x02, 0x03, 0x04}
	swapped := []byte{0x02, 0x01, 0x04, 0x03}

	n, status := r.WriteBuffer(fd, len(pattern), swapped)
	if status != StatusOK || n != len(pattern) {
		t.Fatalf("WriteBuffer = (%d, %v)", n, status)
	}

	if status := r.WriteBufferCheck(fd, n); status != StatusOK {
		t.Fatalf("WriteBufferCheck = %v", status)
	}

	if status := r.Fclose(fd); status != StatusOK {
		t.Fatalf("Fclose = %v", status)
	}

	fd2, status := r.Fopen("PATTERN.BIN", ModeRead)
	if status != StatusOK {
		t.Fatalf("Fopen = %v", status)
	}

	n2, status := r.ReadBuffer(fd2, len(pattern))
	if status != StatusOK || n2 != len(pattern) {
		t.Fatalf("ReadBuffer = (%d, %v)", n2, status)
	}

	got := r.Win.Slice(r.Base+offReadBuffer, n2)

	for i := range swapped {
		if got[i] != swapped[i] {
			t.Fatalf("byte-swapped read buffer = %#x, want %#x", got, swapped)
		}
	}
}

func TestFopenAllocatesFDAboveBase(t *testing.T) {
	r, fsys := newTestResponder()
	fsys.Seed("A.TXT", []byte("hi"))

	fd, status := r.Fopen("A.TXT", ModeRead)
	if status != StatusOK {
		t.Fatalf("Fopen = %v", status)
	}

	if fd < 16384 {
		t.Errorf("fd = %d, want >= 16384", fd)
	}

	if _, ok := r.fdTable.FindByFD(fd); !ok {
		t.Fatal("expected fd present in table after Fopen")
	}

	if status := r.Fclose(fd); status != StatusOK {
		t.Fatalf("Fclose = %v", status)
	}

	if _, ok := r.fdTable.FindByFD(fd); ok {
		t.Fatal("expected fd gone from table after Fclose")
	}
}

func TestFdeleteFileNotFoundIsOK(t *testing.T) {
	r, _ := newTestResponder()

	if status := r.Fdelete("MISSING.TXT"); status != StatusOK {
		t.Errorf("Fdelete(missing) = %v, want StatusOK (observed atypical behavior)", status)
	}
}

func TestFdeleteRefusesOpenFD(t *testing.T) {
	r, fsys := newTestResponder()
	fsys.Seed("A.TXT", []byte("hi"))

	fd, status := r.Fopen("A.TXT", ModeRead)
	if status != StatusOK {
		t.Fatalf("Fopen = %v", status)
	}
	defer r.Fclose(fd)

	if status := r.Fdelete("A.TXT"); status != StatusAccessDenied {
		t.Errorf("Fdelete(open file) = %v, want StatusAccessDenied", status)
	}
}

func TestResetClearsTables(t *testing.T) {
	r, fsys := newTestResponder()
	fsys.Seed("A.TXT", []byte("hi"))

	fd, _ := r.Fopen("A.TXT", ModeRead)
	r.dtaTable.Insert(1)

	r.Reset()

	if _, ok := r.fdTable.FindByFD(fd); ok {
		t.Error("expected FD table cleared after Reset")
	}

	if r.dtaTable.Count() != 0 {
		t.Error("expected DTA table cleared after Reset")
	}
}
