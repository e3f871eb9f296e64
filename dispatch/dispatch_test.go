// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dispatch

import (
	"testing"

	"github.com/usbarmory/tamago-cartbridge/transport"
)

type recorder struct {
	counter uint32
	token   uint32
}

func (r *recorder) WriteRandomToken(counter, token uint32) {
	r.counter = counter
	r.token = token
}

func frameWithToken(id uint16, token uint32, extra ...uint16) *transport.Frame {
	f := &transport.Frame{CommandID: id}
	f.Payload[0] = uint16(token)
	f.Payload[1] = uint16(token >> 16)

	for i, w := range extra {
		f.Payload[2+i] = w
	}

	f.Size = uint16((2 + len(extra)) * 2)
	return f
}

func TestInterruptDrop(t *testing.T) {
	d := New(nil)

	first := frameWithToken(0x0401, 0x11223344)
	second := frameWithToken(0x0402, 0x55667788)

	d.OnFrame(first)
	d.OnFrame(second)

	got, ok := d.LastFrame()
	if !ok {
		t.Fatal("expected a frame to be held")
	}

	if got.CommandID != first.CommandID {
		t.Errorf("last_frame.command_id = %#x, want %#x (second frame must be dropped)", got.CommandID, first.CommandID)
	}
}

func TestOnFrameDropInvokesOnDrop(t *testing.T) {
	d := New(nil)

	var dropped *transport.Frame
	d.OnDrop = func(f *transport.Frame) { cp := *f; dropped = &cp }

	d.gate.held = true
	f := frameWithToken(0x0401, 1)
	d.OnFrame(f)

	if dropped == nil {
		t.Fatal("expected OnDrop to be invoked when the gate is already held")
	}
}

func TestLoopOnceFansOutInRegistrationOrder(t *testing.T) {
	var order []int

	d := New(nil)
	d.Register(HandlerFunc(func(f *transport.Frame, token uint32, payload []uint16) {
		order = append(order, 1)
	}))
	d.Register(HandlerFunc(func(f *transport.Frame, token uint32, payload []uint16) {
		order = append(order, 2)
	}))

	d.OnFrame(frameWithToken(0x0401, 0xCAFEBABE, 0x1111, 0x2222))
	d.LoopOnce()

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("handler order = %v, want [1 2]", order)
	}
}

func TestLoopOnceDecodesTokenAndWritesRotation(t *testing.T) {
	rec := &recorder{}
	d := New(rec)

	var gotToken uint32
	var gotPayload []uint16

	d.Register(HandlerFunc(func(f *transport.Frame, token uint32, payload []uint16) {
		gotToken = token
		gotPayload = payload
	}))

	d.OnFrame(frameWithToken(0x0401, 0xCAFEBABE, 0x1111, 0x2222))
	d.LoopOnce()

	if gotToken != 0xCAFEBABE {
		t.Errorf("token = %#x, want 0xcafebabe", gotToken)
	}

	if len(gotPayload) != 2 || gotPayload[0] != 0x1111 || gotPayload[1] != 0x2222 {
		t.Errorf("payload = %#x, want [0x1111 0x2222]", gotPayload)
	}

	if rec.counter != 1 {
		t.Errorf("counter = %d, want 1", rec.counter)
	}

	if rec.token != 0xCAFEBABE {
		t.Errorf("written token = %#x, want 0xcafebabe", rec.token)
	}
}

func TestLoopOnceNoFrameIsANoop(t *testing.T) {
	rec := &recorder{}
	d := New(rec)

	d.LoopOnce()

	if rec.counter != 0 {
		t.Errorf("counter = %d, want 0 when no frame was pending", rec.counter)
	}
}
