// Floppy image engine
// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package floppy emulates two virtual floppy drives over disk-image
// files: per-drive mount lifecycle, BPB synthesis from sector zero,
// sector read/write with endianness adaptation, blank-image formatting,
// and decompression of the compressed image format to the raw format.
package floppy

import (
	"strconv"
	"strings"

	"github.com/usbarmory/tamago-cartbridge/abi"
	"github.com/usbarmory/tamago-cartbridge/storage"
	"github.com/usbarmory/tamago-cartbridge/transport"
)

// Tag is the application tag this engine answers to.
const Tag = 0x02

// Operation codes for the floppy application tag.
const (
	opSaveVectors    = 0x00
	opReadSectors    = 0x01
	opWriteSectors   = 0x02
	opSaveHardware   = 0x04
	opSetSharedVar   = 0x05
	opReset          = 0x06
	opSaveBIOSVector = 0x07
	opShowVectorCall = 0x0B
	opDebug          = 0x0C
)

// DriveState is a floppy drive's mount lifecycle state.
type DriveState int

const (
	Unmounted DriveState = iota
	MountedRW
	MountedRO
	Error
	Unknown
)

const sectorSize = 512

// BPB holds the boot-sector-derived geometry and layout for a mounted
// image.
type BPB struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootDirEntries    uint16
	TotalSectors      uint16
	MediaByte         byte
	SectorsPerFAT     uint16
	SectorsPerTrack   uint16
	Sides             uint16

	ClusterSizeBytes int
	FATSector        uint32
	SecondFATSector  uint32
	FirstDataSector  uint32
	DataClusters     uint32
}

// Drive is the mutable state of a single virtual floppy drive.
type Drive struct {
	State     DriveState
	File      storage.File
	ImagePath string
	BPB       BPB

	readWrite bool
}

// Engine owns drives A and B, reading images from a storage.FS rooted
// at a configured folder.
type Engine struct {
	FS     storage.FS
	Win    *abi.Window
	Base   int
	Folder string

	Drives [2]Drive
}

// NewEngine constructs an Engine over fs, with shared-memory fields at
// base within win, and images resolved relative to folder.
func NewEngine(fsys storage.FS, win *abi.Window, base int, folder string) *Engine {
	return &Engine{FS: fsys, Win: win, Base: base, Folder: folder}
}

// HandleFrame implements dispatch.Handler.
func (e *Engine) HandleFrame(frame *transport.Frame, token uint32, payload []uint16) {
	if byte(frame.CommandID>>8) != Tag {
		return
	}

	op := byte(frame.CommandID)

	switch op {
	case opReset:
		e.Reset()
	case opReadSectors:
		e.handleReadSectors(payload)
	case opWriteSectors:
		e.handleWriteSectors(payload)
	case opSaveHardware:
		e.handleHardwarePatch(payload)
	case opSaveVectors, opSaveBIOSVector, opSetSharedVar, opShowVectorCall, opDebug:
		// telemetry / vector bookkeeping only.
	default:
		// unknown op: no state mutation.
	}
}

// Reset marks every drive unmounted; the engine re-mounts lazily on the
// next sector access, from each drive's last mounted image path.
func (e *Engine) Reset() {
	for i := range e.Drives {
		d := e.Drives[i]
		if d.File != nil {
			d.File.Close()
		}

		e.Drives[i] = Drive{ImagePath: d.ImagePath, readWrite: d.readWrite}
	}
}

// imagePath prefixes filename with the engine's image folder, if any.
func (e *Engine) imagePath(filename string) string {
	if e.Folder == "" {
		return filename
	}

	return e.Folder + "/" + filename
}

// readWriteFromSuffix derives read/write mode from the image filename:
// a trailing ".rw" after the primary extension yields RW, otherwise RO.
func readWriteFromSuffix(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".rw")
}

// Mount opens drive i's configured image file and synthesizes its BPB.
// An empty filename marks the drive erred-out (ejected). Existing
// open handles are closed before a remount.
func (e *Engine) Mount(i int, filename string) error {
	if filename == "" {
		e.Drives[i] = Drive{State: Error}
		return nil
	}

	if e.Drives[i].File != nil {
		e.Drives[i].File.Close()
	}

	path := e.imagePath(filename)
	rw := readWriteFromSuffix(filename)

	return e.openImage(i, path, rw)
}

// openImage opens path at the given read/write mode, synthesizes the BPB
// from sector zero, and installs the resulting Drive. It is shared between
// Mount and ensureMounted's re-try-open-on-failure path, so both leave the
// drive in the same state on success or failure.
func (e *Engine) openImage(i int, path string, rw bool) error {
	f, err := e.FS.Open(path, rw)
	if err != nil {
		e.Drives[i] = Drive{State: Error, ImagePath: path, readWrite: rw}
		return err
	}

	header := make([]byte, sectorSize)
	if _, err := f.ReadAt(header, 0); err != nil {
		f.Close()
		e.Drives[i] = Drive{State: Error, ImagePath: path, readWrite: rw}
		return err
	}

	bpb := synthesizeBPB(header)

	state := MountedRO
	if rw {
		state = MountedRW
	}

	e.Drives[i] = Drive{
		State:     state,
		File:      f,
		ImagePath: path,
		BPB:       bpb,
		readWrite: rw,
	}

	e.writeBPB(i, bpb)
	e.setEmulationBit(i, true)

	return nil
}

// synthesizeBPB extracts little-endian fields from a DOS 3.x boot
// sector and derives cluster/data sector geometry.
func synthesizeBPB(sector []byte) BPB {
	u16 := func(off int) uint16 {
		return uint16(sector[off]) | uint16(sector[off+1])<<8
	}

	var bpb BPB

	bpb.BytesPerSector = u16(11)
	bpb.SectorsPerCluster = sector[13]
	bpb.ReservedSectors = u16(14)
	bpb.NumFATs = sector[16]
	bpb.RootDirEntries = u16(17)
	bpb.TotalSectors = u16(19)
	bpb.MediaByte = sector[21]
	bpb.SectorsPerFAT = u16(22)
	bpb.SectorsPerTrack = u16(24)
	bpb.Sides = u16(26)

	if bpb.BytesPerSector == 0 {
		bpb.BytesPerSector = sectorSize
	}

	bpb.ClusterSizeBytes = int(bpb.BytesPerSector) * int(bpb.SectorsPerCluster)
	bpb.FATSector = uint32(bpb.ReservedSectors)
	bpb.SecondFATSector = bpb.FATSector + uint32(bpb.SectorsPerFAT)

	rootDirSectors := (uint32(bpb.RootDirEntries)*32 + uint32(bpb.BytesPerSector) - 1) / uint32(bpb.BytesPerSector)
	bpb.FirstDataSector = bpb.SecondFATSector + uint32(bpb.NumFATs-1)*uint32(bpb.SectorsPerFAT) + rootDirSectors

	if bpb.SectorsPerCluster > 0 {
		dataSectors := uint32(bpb.TotalSectors) - bpb.FirstDataSector
		bpb.DataClusters = dataSectors / uint32(bpb.SectorsPerCluster)
	}

	return bpb
}

// bpbSlotSize is the per-drive BPB shared-memory footprint (spec.md §6:
// "BPB-A (40 bytes), BPB-B (40 bytes)").
const bpbSlotSize = 40

func (e *Engine) bpbOffset(i int) int {
	return e.Base + i*bpbSlotSize
}

func (e *Engine) writeBPB(i int, bpb BPB) {
	off := e.bpbOffset(i)

	e.Win.WriteWord(off+0, bpb.BytesPerSector)
	e.Win.Bytes()[off+2] = bpb.SectorsPerCluster
	e.Win.WriteWord(off+4, bpb.ReservedSectors)
	e.Win.Bytes()[off+6] = bpb.NumFATs
	e.Win.WriteWord(off+8, bpb.RootDirEntries)
	e.Win.WriteWord(off+10, bpb.TotalSectors)
	e.Win.Bytes()[off+12] = bpb.MediaByte
	e.Win.WriteWord(off+14, bpb.SectorsPerFAT)
	e.Win.WriteWord(off+16, bpb.SectorsPerTrack)
	e.Win.WriteWord(off+18, bpb.Sides)
	e.Win.WriteSwappedLongword(off+20, bpb.FATSector)
	e.Win.WriteSwappedLongword(off+24, bpb.SecondFATSector)
	e.Win.WriteSwappedLongword(off+28, bpb.FirstDataSector)
	e.Win.WriteSwappedLongword(off+32, bpb.DataClusters)
}

// emulationModeIndex is the shared-variable slot toggled per drive to
// signal the target which floppies are under emulation.
const emulationModeIndex = 0

func (e *Engine) setEmulationBit(drive int, on bool) {
	e.Win.SetSharedPrivateVarBit(e.Base, emulationModeIndex, drive, on)
}

// ensureMounted re-tries Mount when a drive is not currently in a usable
// state, following Mount/SectorRead/SectorWrite's "re-try open on
// failure" contract. The re-try re-opens the drive's last-known image
// path at its last-known read/write mode; a drive that was never mounted
// (no ImagePath on record) has nothing to re-try and fails immediately.
func (e *Engine) ensureMounted(i int, wantWrite bool) error {
	d := &e.Drives[i]

	switch d.State {
	case MountedRW:
		return nil
	case MountedRO:
		if !wantWrite {
			return nil
		}
	}

	if d.ImagePath == "" {
		return errNotMounted
	}

	rw := d.readWrite

	if err := e.openImage(i, d.ImagePath, rw); err != nil {
		return err
	}

	d = &e.Drives[i]

	if wantWrite && d.State != MountedRW {
		return errNotMounted
	}

	return nil
}

var errNotMounted = &mountError{"drive not mounted"}

type mountError struct{ msg string }

func (e *mountError) Error() string { return e.msg }

// SectorRead reads logical sector into the window's image transfer
// buffer, byte-swapped in 16-bit units.
func (e *Engine) SectorRead(drive int, logicalSector uint32, destOffset int) error {
	if err := e.ensureMounted(drive, false); err != nil {
		return err
	}

	d := &e.Drives[drive]

	buf := make([]byte, sectorSize)
	if _, err := d.File.ReadAt(buf, int64(logicalSector)*sectorSize); err != nil {
		d.State = Error
		return err
	}

	e.Win.CopyAndChangeEndiannessBlock16(buf, destOffset, sectorSize)

	return nil
}

func (e *Engine) handleReadSectors(payload []uint16) {
	if len(payload) < 4 {
		return
	}

	drive := int(payload[0])
	sector := wordsToU32(payload[1], payload[2])
	destOffset := int(payload[3])

	e.SectorRead(drive, sector, destOffset)
}

// SectorWrite requires the drive to be Mounted-RW, byte-swaps a copy of
// the payload (payload itself is left unchanged), and writes it to
// logicalSector.
func (e *Engine) SectorWrite(drive int, logicalSector uint32, payload []byte) error {
	if err := e.ensureMounted(drive, true); err != nil {
		e.Drives[drive].State = Error
		return err
	}

	d := &e.Drives[drive]

	buf := make([]byte, sectorSize)
	n := copy(buf, payload)
	changeEndiannessInPlace(buf[:n])

	if _, err := d.File.WriteAt(buf, int64(logicalSector)*sectorSize); err != nil {
		d.State = Error
		return err
	}

	return nil
}

func changeEndiannessInPlace(buf []byte) {
	for i := 0; i+1 < len(buf); i += 2 {
		buf[i], buf[i+1] = buf[i+1], buf[i]
	}
}

func (e *Engine) handleWriteSectors(payload []uint16) {
	if len(payload) < 4 {
		return
	}

	drive := int(payload[0])
	sector := wordsToU32(payload[1], payload[2])

	rest := payload[3:]
	buf := make([]byte, len(rest)*2)
	for i, w := range rest {
		buf[2*i] = byte(w >> 8)
		buf[2*i+1] = byte(w)
	}

	e.SectorWrite(drive, sector, buf)
}

func wordsToU32(lo, hi uint16) uint32 {
	return uint32(hi)<<16 | uint32(lo)
}

// nopOpcode is the 68000 no-op instruction written over the
// hardware-specific patch window.
const nopOpcode = 0x4E71

// ApplyHardwarePatch overwrites a small window at each address with the
// no-op opcode, unless the running machine is the one needing
// cache/speed toggling: 8 copies at functionStart, 2 at functionEnd.
func (e *Engine) ApplyHardwarePatch(machine, functionStart, functionEnd uint32, needsToggle bool) {
	if needsToggle {
		return
	}

	for i := 0; i < 8; i++ {
		e.Win.WriteSwappedLongword(int(functionStart)+i*4, nopOpcode)
	}

	for i := 0; i < 2; i++ {
		e.Win.WriteSwappedLongword(int(functionEnd)+i*4, nopOpcode)
	}
}

func (e *Engine) handleHardwarePatch(payload []uint16) {
	if len(payload) < 6 {
		return
	}

	machine := wordsToU32(payload[0], payload[1])
	start := wordsToU32(payload[2], payload[3])
	end := wordsToU32(payload[4], payload[5])

	const targetMachine = 1 // the one machine that does not need the patch

	e.ApplyHardwarePatch(machine, start, end, machine == targetMachine)
}

// rootDirEntriesForGeometry returns the conventional DOS root-directory
// entry count for a given track/side geometry.
func rootDirEntriesForGeometry(tracks int, sides int) uint16 {
	switch {
	case tracks <= 40 && sides == 1:
		return 64
	case tracks <= 40 && sides == 2, tracks > 40 && sides == 1:
		return 112
	default:
		return 224
	}
}

// formatSerial is a stand-in for a random 24-bit volume serial; callers
// that need a fresh value per format should pass one in rather than
// rely on package state (bare-metal Go has no time-seeded global RNG
// here).
func formatSerial(seed uint32) [3]byte {
	return [3]byte{byte(seed), byte(seed >> 8), byte(seed >> 16)}
}

// Format writes a blank FAT image of the given geometry to name within
// folder, optionally labeled, refusing to overwrite an existing file
// unless overwrite is set. Sides is forced to 2 when sectorsPerTrack is
// at least 18, per the original firmware's high-density convention.
func Format(fsys storage.FS, folder, name string, tracks, sectorsPerTrack, sides int, label string, overwrite bool, serialSeed uint32) error {
	if sectorsPerTrack >= 18 {
		sides = 2
	}

	path := name
	if folder != "" {
		path = folder + "/" + name
	}

	if !overwrite {
		if _, err := fsys.Stat(path); err == nil {
			return errExists
		}
	}

	const spfMax = 9

	spc := byte(2)
	if tracks <= 40 && sides == 1 {
		spc = 1
	}

	spf := uint16(2)
	switch {
	case tracks <= 40:
		spf = 2
	default:
		spf = spfMax
	}

	totalSectors := uint16(tracks * sectorsPerTrack * sides)
	rootEntries := rootDirEntriesForGeometry(tracks, sides)

	headerSize := 2 * (1 + spfMax) * sectorSize
	header := make([]byte, headerSize)

	header[0] = 0xE9
	for i := 2; i <= 7; i++ {
		header[i] = 0x4E
	}

	serial := formatSerial(serialSeed)
	copy(header[8:11], serial[:])

	putU16 := func(off int, v uint16) {
		header[off] = byte(v)
		header[off+1] = byte(v >> 8)
	}

	putU16(11, sectorSize)
	header[13] = spc
	putU16(14, 1)
	header[16] = 2
	putU16(17, rootEntries)
	putU16(19, totalSectors)
	header[21] = mediaByteForGeometry(tracks, sides)
	putU16(22, spf)
	putU16(24, uint16(sectorsPerTrack))
	putU16(26, uint16(sides))
	putU16(28, 0)

	fat1 := sectorSize
	header[fat1+0] = header[21]
	header[fat1+1] = 0xFF
	header[fat1+2] = 0xFF

	fat2 := sectorSize + int(spf)*sectorSize
	if fat2+3 <= len(header) {
		header[fat2+0] = header[21]
		header[fat2+1] = 0xFF
		header[fat2+2] = 0xFF
	}

	if label != "" {
		rootStart := sectorSize + 2*int(spf)*sectorSize
		if rootStart+11 <= len(header) {
			labelField := make([]byte, 11)
			copy(labelField, []byte(strings.ToUpper(label)))
			for i := len(label); i < 11; i++ {
				if labelField[i] == 0 {
					labelField[i] = ' '
				}
			}
			copy(header[rootStart:rootStart+11], labelField)
			header[rootStart+11] = 0x08 // volume-label attribute
		}
	}

	f, err := fsys.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteAt(header, 0); err != nil {
		return err
	}

	totalSize := int64(tracks) * int64(sectorsPerTrack) * int64(sides) * sectorSize

	zero := make([]byte, sectorSize)
	for off := int64(len(header)); off < totalSize; off += sectorSize {
		n := sectorSize
		if off+int64(n) > totalSize {
			n = int(totalSize - off)
		}

		if _, err := f.WriteAt(zero[:n], off); err != nil {
			return err
		}
	}

	return nil
}

func mediaByteForGeometry(tracks, sides int) byte {
	switch {
	case tracks <= 40 && sides == 1:
		return 0xFC
	case tracks <= 40 && sides == 2:
		return 0xFD
	case sides == 1:
		return 0xF9
	default:
		return 0xF0
	}
}

var errExists = &mountError{"image already exists"}

// maxTrack, maxSectorsPerTrack, maxSides bound the decompressor's
// header validation.
const (
	maxTrack           = 86
	maxSectorsPerTrack = 56
	maxSides           = 1

	compressedMagic = 0x0E0F
	rleEscape       = 0xE5
)

// ErrBadHeader is returned by Decompress when the compressed image
// header fails validation.
var ErrBadHeader = &mountError{"bad compressed image header"}

// ErrUnderflow is returned by Decompress when the declared input runs
// out before every track is decoded.
var ErrUnderflow = &mountError{"compressed image underflow"}

// Decompress reads a compressed image from src and writes the raw
// sector-concatenated form to dst, validating the header and bounding
// every RLE run to the track buffer.
func Decompress(src []byte, dst storage.File) error {
	if len(src) < 10 {
		return ErrBadHeader
	}

	magic := beU16(src[0:2])
	sectorsPerTrack := beU16(src[2:4])
	sidesMinusOne := beU16(src[4:6])
	startTrack := beU16(src[6:8])
	endTrack := beU16(src[8:10])

	if magic != compressedMagic ||
		endTrack > maxTrack ||
		startTrack > endTrack ||
		sectorsPerTrack > maxSectorsPerTrack ||
		sidesMinusOne > maxSides ||
		len(src) <= 10 {
		return ErrBadHeader
	}

	trackBytes := int(sectorsPerTrack) * sectorSize
	pos := 10
	writeOffset := int64(0)
	bytesLeft := int64(len(src) - 10)

	for track := startTrack; track <= endTrack; track++ {
		for side := uint16(0); side <= sidesMinusOne; side++ {
			if pos+2 > len(src) {
				return ErrUnderflow
			}

			length := int(beU16(src[pos : pos+2]))
			pos += 2
			bytesLeft -= 2

			trackBuf := make([]byte, trackBytes)

			if length == trackBytes {
				if pos+length > len(src) {
					return ErrUnderflow
				}

				copy(trackBuf, src[pos:pos+length])
				pos += length
				bytesLeft -= int64(length)
			} else {
				n, consumed, err := decodeRLE(src[pos:], trackBuf)
				if err != nil {
					return err
				}

				_ = n
				pos += consumed
				bytesLeft -= int64(consumed)
			}

			if bytesLeft < 0 {
				return ErrUnderflow
			}

			if _, err := dst.WriteAt(trackBuf, writeOffset); err != nil {
				return err
			}

			writeOffset += int64(trackBytes)
		}
	}

	return nil
}

// decodeRLE scans src byte-at-a-time, emitting literal bytes and
// expanding 0xE5-escaped runs, into dst, until dst is full. It returns
// the number of bytes produced and the number of input bytes consumed.
func decodeRLE(src []byte, dst []byte) (produced, consumed int, err error) {
	i := 0
	o := 0

	for o < len(dst) && i < len(src) {
		b := src[i]
		i++

		if b != rleEscape {
			dst[o] = b
			o++
			continue
		}

		if i+2 >= len(src) {
			return o, i, ErrUnderflow
		}

		data := src[i]
		i++

		n := int(beU16(src[i : i+2]))
		i += 2

		if o+n > len(dst) {
			n = len(dst) - o
		}

		for k := 0; k < n; k++ {
			dst[o] = data
			o++
		}
	}

	return o, i, nil
}

func beU16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

// parseTrackCount is a small helper for board glue that derives a track
// count from a configuration string (e.g. "80").
func parseTrackCount(s string) (int, error) {
	return strconv.Atoi(s)
}
