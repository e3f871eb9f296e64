// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package transport

import (
	"testing"
	"time"
)

func feedAll(p *Parser, words []uint16) {
	now := time.Now()
	for _, w := range words {
		p.Feed(now, w)
	}
}

func TestFrameParsing(t *testing.T) {
	var got *Frame
	var gotErr *Frame

	p := NewParser(
		func(f *Frame) { cp := *f; got = &cp },
		func(f *Frame) { cp := *f; gotErr = &cp },
	)

	sum := uint32(Header&0 + 0x0401 + 0x0004 + 0xDEAD + 0xBEEF)
	checksum := uint16(sum & 0xFFFF)

	feedAll(p, []uint16{Header, 0x0401, 0x0004, 0xDEAD, 0xBEEF, checksum})

	if got == nil {
		t.Fatal("expected success callback")
	}

	if gotErr != nil {
		t.Fatal("unexpected checksum error callback")
	}

	if got.CommandID != 0x0401 {
		t.Errorf("command id = %#x, want 0x0401", got.CommandID)
	}

	if got.Size != 4 {
		t.Errorf("size = %d, want 4", got.Size)
	}

	if got.Payload[0] != 0xDEAD || got.Payload[1] != 0xBEEF {
		t.Errorf("payload = %#x %#x, want 0xdead 0xbeef", got.Payload[0], got.Payload[1])
	}
}

func TestChecksumError(t *testing.T) {
	var got *Frame
	var gotErr *Frame

	p := NewParser(
		func(f *Frame) { cp := *f; got = &cp },
		func(f *Frame) { cp := *f; gotErr = &cp },
	)

	sum := uint32(0x0401 + 0x0004 + 0xDEAD + 0xBEEF)
	badChecksum := uint16(sum&0xFFFF) - 1

	feedAll(p, []uint16{Header, 0x0401, 0x0004, 0xDEAD, 0xBEEF, badChecksum})

	if got != nil {
		t.Fatal("unexpected success callback on bad checksum")
	}

	if gotErr == nil {
		t.Fatal("expected checksum error callback")
	}
}

func TestZeroPayload(t *testing.T) {
	var got *Frame

	p := NewParser(func(f *Frame) { cp := *f; got = &cp }, nil)

	feedAll(p, []uint16{Header, 0x0200, 0x0000, 0x0200})

	if got == nil {
		t.Fatal("expected success callback for zero-payload frame")
	}

	if got.Size != 0 {
		t.Errorf("size = %d, want 0", got.Size)
	}
}

func TestWatchdogResetsTornFrame(t *testing.T) {
	var got *Frame

	p := NewParser(func(f *Frame) { cp := *f; got = &cp }, nil)

	base := time.Now()
	p.Feed(base, Header)
	p.Feed(base, 0x0401)

	// torn frame: silence exceeds the watchdog threshold before the
	// payload size word arrives.
	p.Feed(base.Add(20*time.Millisecond), Header)
	p.Feed(base.Add(20*time.Millisecond), 0x0401)
	p.Feed(base.Add(20*time.Millisecond), 0x0000)
	p.Feed(base.Add(20*time.Millisecond), 0x0401)

	if got == nil {
		t.Fatal("expected the recovered frame to parse successfully")
	}

	if got.CommandID != 0x0401 {
		t.Errorf("command id = %#x, want 0x0401", got.CommandID)
	}
}
