// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package floppy

import (
	"bytes"
	"testing"

	"github.com/usbarmory/tamago-cartbridge/abi"
	"github.com/usbarmory/tamago-cartbridge/storage"
)

func newTestEngine() (*Engine, *storage.MemFS) {
	fsys := storage.NewMemFS()
	win := abi.NewTestWindow(4096)

	return NewEngine(fsys, win, 0, ""), fsys
}

func blankBootSector(sectorsPerTrack, sides uint16) []byte {
	sector := make([]byte, sectorSize)

	put16 := func(off int, v uint16) {
		sector[off] = byte(v)
		sector[off+1] = byte(v >> 8)
	}

	put16(11, sectorSize)
	sector[13] = 2   // sectors per cluster
	put16(14, 1)     // reserved sectors
	sector[16] = 2   // number of FATs
	put16(17, 112)   // root dir entries
	put16(19, 1440)  // total sectors (an 80-track DD image)
	sector[21] = 0xF9
	put16(22, 5) // sectors per FAT
	put16(24, sectorsPerTrack)
	put16(26, sides)

	return sector
}

func TestMountSynthesizesBPBAndWritesSharedWindow(t *testing.T) {
	e, fsys := newTestEngine()

	img := make([]byte, 1440*sectorSize)
	copy(img, blankBootSector(9, 2))
	fsys.Seed("DISK0.ST.rw", img)

	if err := e.Mount(0, "DISK0.ST.rw"); err != nil {
		t.Fatalf("Mount = %v", err)
	}

	d := e.Drives[0]

	if d.State != MountedRW {
		t.Fatalf("drive state = %v, want MountedRW", d.State)
	}

	if d.BPB.BytesPerSector != sectorSize {
		t.Errorf("BytesPerSector = %d, want %d", d.BPB.BytesPerSector, sectorSize)
	}

	if d.BPB.SectorsPerTrack != 9 {
		t.Errorf("SectorsPerTrack = %d, want 9", d.BPB.SectorsPerTrack)
	}

	if d.BPB.Sides != 2 {
		t.Errorf("Sides = %d, want 2", d.BPB.Sides)
	}

	got := e.Win.ReadWord(e.bpbOffset(0))
	if got != sectorSize {
		t.Errorf("shared BPB bytes-per-sector = %d, want %d", got, sectorSize)
	}

	if !e.Win.SharedPrivateVarBit(e.Base, emulationModeIndex, 0) {
		t.Error("expected drive 0 emulation bit set after mount")
	}
}

func TestMountReadOnlyWithoutRWSuffix(t *testing.T) {
	e, fsys := newTestEngine()

	img := make([]byte, 1440*sectorSize)
	copy(img, blankBootSector(9, 2))
	fsys.Seed("DISK0.ST", img)

	if err := e.Mount(0, "DISK0.ST"); err != nil {
		t.Fatalf("Mount = %v", err)
	}

	if e.Drives[0].State != MountedRO {
		t.Fatalf("drive state = %v, want MountedRO", e.Drives[0].State)
	}

	if err := e.SectorWrite(0, 10, []byte{1, 2, 3, 4}); err == nil {
		t.Error("expected SectorWrite to fail on read-only drive")
	}
}

func TestMountEmptyFilenameMarksError(t *testing.T) {
	e, _ := newTestEngine()

	if err := e.Mount(1, ""); err != nil {
		t.Fatalf("Mount(empty) returned error: %v", err)
	}

	if e.Drives[1].State != Error {
		t.Fatalf("drive state = %v, want Error", e.Drives[1].State)
	}
}

func TestSectorReadWriteRoundTrip(t *testing.T) {
	e, fsys := newTestEngine()

	img := make([]byte, 1440*sectorSize)
	copy(img, blankBootSector(9, 2))
	fsys.Seed("DISK0.ST.rw", img)

	if err := e.Mount(0, "DISK0.ST.rw"); err != nil {
		t.Fatalf("Mount = %v", err)
	}

	native := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if err := e.SectorWrite(0, 20, native); err != nil {
		t.Fatalf("SectorWrite = %v", err)
	}

	if err := e.SectorRead(0, 20, 512); err != nil {
		t.Fatalf("SectorRead = %v", err)
	}

	want := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	got := e.Win.Slice(512, 4)

	if !bytes.Equal(got, want) {
		t.Errorf("read-back bytes = %#x, want %#x", got, want)
	}
}

func TestFormatThenMountProducesConsistentBPB(t *testing.T) {
	fsys := storage.NewMemFS()
	win := abi.NewTestWindow(4096)
	e := NewEngine(fsys, win, 0, "")

	if err := Format(fsys, "", "BLANK.ST", 80, 9, 2, "VOLNAME", true, 0x123456); err != nil {
		t.Fatalf("Format = %v", err)
	}

	if err := e.Mount(0, "BLANK.ST.rw"); err == nil {
		t.Fatal("expected Mount to fail for an .rw filename that was not formatted")
	}

	// the formatted name has no .rw suffix: mount read-only to inspect it.
	if err := e.Mount(0, "BLANK.ST"); err != nil {
		t.Fatalf("Mount(BLANK.ST) = %v", err)
	}

	if e.Drives[0].BPB.SectorsPerTrack != 9 {
		t.Errorf("SectorsPerTrack = %d, want 9", e.Drives[0].BPB.SectorsPerTrack)
	}

	if e.Drives[0].BPB.Sides != 2 {
		t.Errorf("Sides = %d, want 2", e.Drives[0].BPB.Sides)
	}

	info, err := fsys.Stat("BLANK.ST")
	if err != nil {
		t.Fatalf("Stat = %v", err)
	}

	wantSize := int64(80) * 9 * 2 * sectorSize
	if info.Size() != wantSize {
		t.Errorf("formatted image size = %d, want %d", info.Size(), wantSize)
	}
}

func TestDecompressMinimalNonCompressedTrack(t *testing.T) {
	// spec.md scenario 6: SPT=9, sides=0 (single side), start=end=0, a
	// single non-compressed (length == trackBytes) track.
	const spt = 9
	trackBytes := spt * sectorSize

	src := make([]byte, 0, 10+2+trackBytes)

	putU16 := func(v uint16) {
		src = append(src, byte(v>>8), byte(v))
	}

	putU16(compressedMagic)
	putU16(spt)
	putU16(0) // sides - 1 => one side
	putU16(0) // start track
	putU16(0) // end track

	track := make([]byte, trackBytes)
	for i := range track {
		track[i] = byte(i)
	}

	putU16(uint16(trackBytes))
	src = append(src, track...)

	fsys := storage.NewMemFS()
	dst, err := fsys.Create("OUT.ST")
	if err != nil {
		t.Fatalf("Create = %v", err)
	}
	defer dst.Close()

	if err := Decompress(src, dst); err != nil {
		t.Fatalf("Decompress = %v", err)
	}

	if dst.Size() != int64(trackBytes) {
		t.Fatalf("output size = %d, want %d", dst.Size(), trackBytes)
	}

	got := make([]byte, trackBytes)
	if _, err := dst.ReadAt(got, 0); err != nil {
		t.Fatalf("ReadAt = %v", err)
	}

	if !bytes.Equal(got, track) {
		t.Error("decompressed bytes do not match input track")
	}
}

func TestDecompressRejectsBadMagic(t *testing.T) {
	src := make([]byte, 12)
	src[0], src[1] = 0xFF, 0xFF

	fsys := storage.NewMemFS()
	dst, _ := fsys.Create("BAD.ST")
	defer dst.Close()

	if err := Decompress(src, dst); err != ErrBadHeader {
		t.Errorf("Decompress(bad magic) = %v, want ErrBadHeader", err)
	}
}

func TestDecodeRLEExpandsRun(t *testing.T) {
	src := []byte{0x01, rleEscape, 0xAA, 0x00, 0x03, 0x02}
	dst := make([]byte, 6)

	produced, consumed, err := decodeRLE(src, dst)
	if err != nil {
		t.Fatalf("decodeRLE = %v", err)
	}

	want := []byte{0x01, 0xAA, 0xAA, 0xAA, 0x02, 0x00}
	if produced != 5 {
		t.Fatalf("produced = %d, want 5", produced)
	}

	if !bytes.Equal(dst, want) {
		t.Errorf("dst = %#x, want %#x", dst, want)
	}

	if consumed != len(src) {
		t.Errorf("consumed = %d, want %d", consumed, len(src))
	}
}

func TestApplyHardwarePatchWritesNops(t *testing.T) {
	e, _ := newTestEngine()

	e.ApplyHardwarePatch(0, 100, 200, false)

	if got := e.Win.ReadSwappedLongword(100); got != nopOpcode {
		t.Errorf("patched longword at start = %#x, want %#x", got, nopOpcode)
	}

	if got := e.Win.ReadSwappedLongword(200); got != nopOpcode {
		t.Errorf("patched longword at end = %#x, want %#x", got, nopOpcode)
	}
}

func TestApplyHardwarePatchSkippedWhenToggleNeeded(t *testing.T) {
	e, _ := newTestEngine()
	e.Win.WriteSwappedLongword(100, 0)

	e.ApplyHardwarePatch(1, 100, 200, true)

	if got := e.Win.ReadSwappedLongword(100); got != 0 {
		t.Errorf("expected untouched longword, got %#x", got)
	}
}

func TestSectorReadRetriesMountAfterError(t *testing.T) {
	e, fsys := newTestEngine()

	img := make([]byte, 1440*sectorSize)
	copy(img, blankBootSector(9, 2))
	fsys.Seed("DISK0.ST.rw", img)

	if err := e.Mount(0, "DISK0.ST.rw"); err != nil {
		t.Fatalf("Mount = %v", err)
	}

	// simulate the drive having faulted (e.g. a prior I/O error) without
	// clearing its remembered image path.
	e.Drives[0].State = Error

	if err := e.SectorRead(0, 0, 0); err != nil {
		t.Fatalf("SectorRead after fault = %v, want a transparent re-mount", err)
	}

	if e.Drives[0].State != MountedRW {
		t.Fatalf("drive state after re-mount = %v, want MountedRW", e.Drives[0].State)
	}
}

func TestSectorWriteRetriesMountAfterError(t *testing.T) {
	e, fsys := newTestEngine()

	img := make([]byte, 1440*sectorSize)
	copy(img, blankBootSector(9, 2))
	fsys.Seed("DISK0.ST.rw", img)

	if err := e.Mount(0, "DISK0.ST.rw"); err != nil {
		t.Fatalf("Mount = %v", err)
	}

	e.Drives[0].State = Error

	if err := e.SectorWrite(0, 20, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("SectorWrite after fault = %v, want a transparent re-mount", err)
	}

	if e.Drives[0].State != MountedRW {
		t.Fatalf("drive state after re-mount = %v, want MountedRW", e.Drives[0].State)
	}
}

func TestEnsureMountedWithoutPriorMountFails(t *testing.T) {
	e, _ := newTestEngine()

	if err := e.SectorRead(0, 0, 0); err == nil {
		t.Fatal("expected SectorRead to fail when the drive was never mounted")
	}
}

func TestResetClearsDriveStates(t *testing.T) {
	e, fsys := newTestEngine()

	img := make([]byte, 1440*sectorSize)
	copy(img, blankBootSector(9, 2))
	fsys.Seed("DISK0.ST.rw", img)

	e.Mount(0, "DISK0.ST.rw")
	e.Reset()

	if e.Drives[0].State != Unmounted {
		t.Errorf("drive state after Reset = %v, want Unmounted", e.Drives[0].State)
	}
}
