// Shared-memory calling convention
// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package abi implements the byte-swapped shared-memory window shared
// between the microcontroller and the target CPU: a contiguous region,
// backed by a dma.Region allocation, through which the target places
// request fields and the responder writes result fields.
//
// Every multi-byte value placed in the window for the target's
// consumption is stored byte-swapped relative to the microcontroller's
// native endianness, so the target reads it without further conversion.
// Internal representations elsewhere in this module stay native; the
// swap happens only at this boundary.
package abi

import (
	"encoding/binary"

	"github.com/usbarmory/tamago-cartbridge/dma"
)

// Window is a typed view over a byte buffer allocated in a dma.Region. It
// has no concept of subsystem layout; fsresponder and floppy each own
// their own offset constants into the same Window.
type Window struct {
	region *dma.Region
	addr   uint32
	buf    []byte
}

// NewWindow reserves size bytes in region and returns a Window over them.
func NewWindow(region *dma.Region, size int) *Window {
	addr, buf := region.Reserve(size, 0)

	return &Window{
		region: region,
		addr:   addr,
		buf:    buf,
	}
}

// NewTestWindow returns a Window over a plain Go byte slice, with no
// backing dma.Region. For use in package tests run off-target, where no
// DMA-capable allocator is available.
func NewTestWindow(size int) *Window {
	return &Window{buf: make([]byte, size)}
}

// Addr returns the window's base address, as seen by DMA-capable
// peripherals.
func (w *Window) Addr() uint32 {
	return w.addr
}

// Len returns the window size in bytes.
func (w *Window) Len() int {
	return len(w.buf)
}

// Bytes returns the raw backing buffer. Callers outside this package
// should prefer the typed accessors below; Bytes exists for the floppy
// engine's sector-sized bulk transfers.
func (w *Window) Bytes() []byte {
	return w.buf
}

// Slice returns a sub-slice of the window of the given length at offset.
func (w *Window) Slice(offset, length int) []byte {
	return w.buf[offset : offset+length]
}

// WriteWord stores a 16-bit value at offset in the window's fixed wire
// byte order.
func (w *Window) WriteWord(offset int, value uint16) {
	binary.BigEndian.PutUint16(w.buf[offset:], value)
}

// ReadWord is the inverse of WriteWord.
func (w *Window) ReadWord(offset int) uint16 {
	return binary.BigEndian.Uint16(w.buf[offset:])
}

// WriteSwappedLongword stores a 32-bit value with its two 16-bit halves
// swapped, so the most-significant word lands first in target memory
// (the target's native longword layout).
func (w *Window) WriteSwappedLongword(offset int, value uint32) {
	hi := uint16(value >> 16)
	lo := uint16(value)

	binary.BigEndian.PutUint16(w.buf[offset:], hi)
	binary.BigEndian.PutUint16(w.buf[offset+2:], lo)
}

// ReadSwappedLongword is the inverse of WriteSwappedLongword.
func (w *Window) ReadSwappedLongword(offset int) uint32 {
	hi := binary.BigEndian.Uint16(w.buf[offset:])
	lo := binary.BigEndian.Uint16(w.buf[offset+2:])

	return uint32(hi)<<16 | uint32(lo)
}

// ChangeEndiannessBlock16 byte-swaps each 16-bit word of the byteCount
// bytes starting at base, in place. byteCount is rounded up to even.
func (w *Window) ChangeEndiannessBlock16(base, byteCount int) {
	if byteCount%2 != 0 {
		byteCount++
	}

	changeEndianness16(w.buf[base:base+byteCount], w.buf[base:base+byteCount])
}

// CopyAndChangeEndiannessBlock16 byte-swaps each 16-bit word of an
// arbitrary source buffer into the window at offset dest, out of place.
// Used for string transfer (e.g. Dgetpath) where source and destination
// must not alias.
func (w *Window) CopyAndChangeEndiannessBlock16(source []byte, dest int, byteCount int) {
	if byteCount%2 != 0 {
		byteCount++
	}

	if len(source) < byteCount {
		padded := make([]byte, byteCount)
		copy(padded, source)
		source = padded
	}

	changeEndianness16(source[:byteCount], w.buf[dest:dest+byteCount])
}

// changeEndianness16 swaps each pair of bytes from src into dst, which
// may alias src (in-place swap) or be a distinct buffer.
func changeEndianness16(src, dst []byte) {
	for i := 0; i+1 < len(src); i += 2 {
		a, b := src[i], src[i+1]
		dst[i], dst[i+1] = b, a
	}
}

// sharedVarStride is the byte width of a single shared-variable slot.
const sharedVarStride = 4

// SetSharedVar writes a 32-bit indexed shared variable, byte-swapped.
func (w *Window) SetSharedVar(base, index int, value uint32) {
	w.WriteSwappedLongword(base+index*sharedVarStride, value)
}

// SharedVar reads an indexed shared variable back.
func (w *Window) SharedVar(base, index int) uint32 {
	return w.ReadSwappedLongword(base + index*sharedVarStride)
}

// SetSharedPrivateVarBit sets or clears a single bit within an indexed
// shared variable, leaving the rest of the word untouched.
func (w *Window) SetSharedPrivateVarBit(base, index, bit int, value bool) {
	v := w.SharedVar(base, index)

	if value {
		v |= 1 << uint(bit)
	} else {
		v &^= 1 << uint(bit)
	}

	w.SetSharedVar(base, index, v)
}

// SharedPrivateVarBit reads a single bit within an indexed shared
// variable.
func (w *Window) SharedPrivateVarBit(base, index, bit int) bool {
	return w.SharedVar(base, index)&(1<<uint(bit)) != 0
}
