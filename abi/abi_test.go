// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package abi

import (
	"testing"
)

// newTestWindow builds a Window over a plain byte slice, bypassing
// dma.Region allocation, for use in non-tamago unit tests.
func newTestWindow(size int) *Window {
	return &Window{buf: make([]byte, size)}
}

func TestWriteReadWord(t *testing.T) {
	w := newTestWindow(16)

	w.WriteWord(4, 0xCAFE)

	if got := w.ReadWord(4); got != 0xCAFE {
		t.Errorf("ReadWord = %#x, want 0xcafe", got)
	}
}

func TestSwappedLongwordRoundTrip(t *testing.T) {
	w := newTestWindow(16)

	w.WriteSwappedLongword(0, 0x11223344)

	if got := w.ReadSwappedLongword(0); got != 0x11223344 {
		t.Errorf("ReadSwappedLongword = %#x, want 0x11223344", got)
	}

	// the most-significant word must land first in the window.
	if w.buf[0] != 0x11 || w.buf[1] != 0x22 {
		t.Errorf("high word bytes = %#x %#x, want 0x11 0x22", w.buf[0], w.buf[1])
	}
}

func TestChangeEndiannessBlock16InPlace(t *testing.T) {
	w := newTestWindow(8)

	copy(w.buf, []byte{0x01, 0x02, 0x03, 0x04})

	w.ChangeEndiannessBlock16(0, 4)

	want := []byte{0x02, 0x01, 0x04, 0x03}
	for i := range want {
		if w.buf[i] != want[i] {
			t.Fatalf("buf = %#x, want %#x", w.buf[:4], want)
		}
	}
}

func TestChangeEndiannessBlock16OddLengthRoundsUp(t *testing.T) {
	w := newTestWindow(8)

	copy(w.buf, []byte{0x01, 0x02, 0x03})

	w.ChangeEndiannessBlock16(0, 3)

	if w.buf[0] != 0x02 || w.buf[1] != 0x01 {
		t.Fatalf("buf = %#x, want first swapped pair 0x02 0x01", w.buf[:2])
	}
}

func TestCopyAndChangeEndiannessBlock16(t *testing.T) {
	w := newTestWindow(8)

	src := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	w.CopyAndChangeEndiannessBlock16(src, 2, 4)

	want := []byte{0xBB, 0xAA, 0xDD, 0xCC}
	for i := range want {
		if w.buf[2+i] != want[i] {
			t.Fatalf("dest = %#x, want %#x", w.buf[2:6], want)
		}
	}

	if src[0] != 0xAA {
		t.Error("source buffer must not be modified")
	}
}

func TestSharedVarRoundTrip(t *testing.T) {
	w := newTestWindow(64)

	w.SetSharedVar(16, 2, 0xDEADBEEF)

	if got := w.SharedVar(16, 2); got != 0xDEADBEEF {
		t.Errorf("SharedVar = %#x, want 0xdeadbeef", got)
	}
}

func TestSharedPrivateVarBit(t *testing.T) {
	w := newTestWindow(64)

	w.SetSharedVar(0, 0, 0)
	w.SetSharedPrivateVarBit(0, 0, 3, true)

	if !w.SharedPrivateVarBit(0, 0, 3) {
		t.Fatal("expected bit 3 to be set")
	}

	if w.SharedPrivateVarBit(0, 0, 2) {
		t.Fatal("expected bit 2 to remain clear")
	}

	w.SetSharedPrivateVarBit(0, 0, 3, false)

	if w.SharedPrivateVarBit(0, 0, 3) {
		t.Fatal("expected bit 3 to be cleared")
	}
}
