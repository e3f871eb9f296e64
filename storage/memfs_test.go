// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package storage

import "testing"

var _ FS = (*MemFS)(nil)

func TestMemFSCreateWriteReadRoundTrip(t *testing.T) {
	m := NewMemFS()

	f, err := m.Create("FILE.TXT")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	pattern := []byte{0x01, 0x02, 0x03, 0x04}

	if _, err := f.WriteAt(pattern, 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}

	f.Close()

	opened, err := m.Open("FILE.TXT", false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer opened.Close()

	got := make([]byte, len(pattern))
	if _, err := opened.ReadAt(got, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}

	for i := range pattern {
		if got[i] != pattern[i] {
			t.Fatalf("round trip mismatch at %d: got %#x want %#x", i, got[i], pattern[i])
		}
	}
}

func TestMemFSRemoveAndRename(t *testing.T) {
	m := NewMemFS()

	m.Seed("A.TXT", []byte("hello"))

	if err := m.Rename("A.TXT", "B.TXT"); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	if _, err := m.Stat("A.TXT"); err == nil {
		t.Fatal("expected A.TXT to be gone after Rename")
	}

	if _, err := m.Stat("B.TXT"); err != nil {
		t.Fatalf("Stat(B.TXT): %v", err)
	}

	if err := m.Remove("B.TXT"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if _, err := m.Stat("B.TXT"); err == nil {
		t.Fatal("expected B.TXT to be gone after Remove")
	}
}

func TestMemFSReadDirEnumeratesImmediateChildrenOnly(t *testing.T) {
	m := NewMemFS()

	m.Seed("dir/A.TXT", []byte("a"))
	m.Seed("dir/B.TXT", []byte("b"))
	m.Seed("dir/sub/C.TXT", []byte("c"))

	entries, err := m.ReadDir("dir")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 (sub/C.TXT must not be listed)", len(entries))
	}

	if entries[0].Name() != "A.TXT" || entries[1].Name() != "B.TXT" {
		t.Fatalf("entries = %v, want [A.TXT B.TXT]", entries)
	}
}

func TestMemFSChmod(t *testing.T) {
	m := NewMemFS()
	m.Seed("A.TXT", []byte("x"))

	if err := m.Chmod("A.TXT", true, true, false); err != nil {
		t.Fatalf("Chmod: %v", err)
	}

	d := m.files["A.TXT"]
	if !d.readOnly || !d.hidden || d.system {
		t.Errorf("attrs = readOnly=%v hidden=%v system=%v, want true true false", d.readOnly, d.hidden, d.system)
	}
}
