// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dta

import "testing"

func TestInsertLookupRelease(t *testing.T) {
	tbl := NewTable(4)

	e, err := tbl.Insert(0x1000)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if e.AttrMask != 0xFF {
		t.Errorf("AttrMask = %#x, want 0xff", e.AttrMask)
	}

	got, ok := tbl.Lookup(0x1000)
	if !ok || got.Key != 0x1000 {
		t.Fatalf("Lookup failed after Insert")
	}

	tbl.Release(0x1000)

	if _, ok := tbl.Lookup(0x1000); ok {
		t.Fatal("expected entry to be gone after Release")
	}

	if tbl.Count() != 0 {
		t.Errorf("Count = %d, want 0 after release", tbl.Count())
	}
}

func TestInsertIdempotent(t *testing.T) {
	tbl := NewTable(4)

	e1, _ := tbl.Insert(0x2000)
	e1.Pattern = "*.TXT"

	e2, err := tbl.Insert(0x2000)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if e2.Pattern != "*.TXT" {
		t.Error("expected re-insert of an existing key to return the same entry")
	}

	if tbl.Count() != 1 {
		t.Errorf("Count = %d, want 1", tbl.Count())
	}
}

func TestPoolExhaustion(t *testing.T) {
	tbl := NewTable(2)

	if _, err := tbl.Insert(1); err != nil {
		t.Fatalf("Insert(1): %v", err)
	}

	if _, err := tbl.Insert(2); err != nil {
		t.Fatalf("Insert(2): %v", err)
	}

	if _, err := tbl.Insert(3); err != ErrPoolExhausted {
		t.Fatalf("Insert(3) err = %v, want ErrPoolExhausted", err)
	}
}

func TestClear(t *testing.T) {
	tbl := NewTable(4)

	tbl.Insert(1)
	tbl.Insert(2)
	tbl.Insert(3)

	tbl.Clear()

	if tbl.Count() != 0 {
		t.Errorf("Count = %d, want 0 after Clear", tbl.Count())
	}

	for i := uint32(1); i <= 4; i++ {
		if _, err := tbl.Insert(i); err != nil {
			t.Fatalf("Insert(%d) after Clear: %v", i, err)
		}
	}
}

func TestHashCollisionChaining(t *testing.T) {
	tbl := NewTable(8)

	// keys chosen to likely collide in an 8-bucket table; chaining must
	// still keep them independently addressable.
	keys := []uint32{0x10, 0x810, 0x1010, 0x1810}

	for _, k := range keys {
		if _, err := tbl.Insert(k); err != nil {
			t.Fatalf("Insert(%#x): %v", k, err)
		}
	}

	for _, k := range keys {
		if _, ok := tbl.Lookup(k); !ok {
			t.Errorf("Lookup(%#x) failed", k)
		}
	}

	if tbl.Count() != len(keys) {
		t.Errorf("Count = %d, want %d", tbl.Count(), len(keys))
	}
}
