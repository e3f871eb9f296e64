// Command dispatcher
// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package dispatch hands frames from bus interrupt context to the main
// loop through a single-slot gate, and fans completed frames out to
// registered handlers in registration order.
package dispatch

import (
	"sync"

	"github.com/usbarmory/tamago-cartbridge/transport"
)

// Handler processes a dispatched frame. token is the random token read from
// the start of the frame's payload; payload points past it, matching the
// "(last_frame, payload_pointer_past_token)" contract of spec.md §4.2.
//
// A handler that is not the addressee of a command must check the high
// byte of the command identifier and return quickly without side effects.
type Handler interface {
	HandleFrame(frame *transport.Frame, token uint32, payload []uint16)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(frame *transport.Frame, token uint32, payload []uint16)

func (f HandlerFunc) HandleFrame(frame *transport.Frame, token uint32, payload []uint16) {
	f(frame, token, payload)
}

// Gate is a binary semaphore with initial count 1, modeling the "at most
// one in-flight frame" invariant of spec.md §5.
type Gate struct {
	mu  sync.Mutex
	held bool
}

// TryAcquire attempts a non-blocking acquire, for use from bus interrupt
// context. It never waits.
func (g *Gate) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.held {
		return false
	}

	g.held = true
	return true
}

// Release frees the gate.
func (g *Gate) Release() {
	g.mu.Lock()
	g.held = false
	g.mu.Unlock()
}

// OnDrop is invoked, from interrupt context, whenever a frame is dropped
// because the gate is already held.
type OnDrop func(frame *transport.Frame)

// RandomTokenWriter writes the 64-bit random-token slot of the shared
// window: upper 32 bits the monotonically increasing command counter,
// lower 32 bits the echoed token (spec.md §4.2).
type RandomTokenWriter interface {
	WriteRandomToken(counter uint32, token uint32)
}

// Dispatcher implements the single-slot handoff and handler fan-out
// described in spec.md §4.2.
type Dispatcher struct {
	gate Gate

	lastFrame transport.Frame
	hasFrame  bool

	handlers []Handler

	counter uint32
	tokens  RandomTokenWriter

	OnDrop OnDrop
}

// New returns a Dispatcher that writes its random-token/counter pair
// through tokens after every loop_once fan-out.
func New(tokens RandomTokenWriter) *Dispatcher {
	return &Dispatcher{tokens: tokens}
}

// Register appends a handler to the ordered handler list. Only safe to
// call during subsystem initialization, before OnFrame/LoopOnce run.
func (d *Dispatcher) Register(h Handler) {
	d.handlers = append(d.handlers, h)
}

// OnFrame is the transport success callback: it must be invoked only from
// bus interrupt context. A successful TryAcquire leaves the gate held until
// LoopOnce consumes and releases it; a second frame arriving before that
// happens is dropped and OnDrop is invoked, leaving last_frame unchanged
// per spec.md's testable property.
func (d *Dispatcher) OnFrame(f *transport.Frame) {
	if !d.gate.TryAcquire() {
		if d.OnDrop != nil {
			d.OnDrop(f)
		}
		return
	}

	d.lastFrame = *f
	d.hasFrame = true
}

// LastFrame returns a copy of the most recently accepted frame, for tests
// and diagnostics.
func (d *Dispatcher) LastFrame() (transport.Frame, bool) {
	return d.lastFrame, d.hasFrame
}

// LoopOnce runs one main-loop dispatch cycle. If no frame is pending it is a
// no-op: the gate is only held between a successful OnFrame and the LoopOnce
// call that drains it, so there is nothing to acquire here. Otherwise it
// reads the random token from the payload, invokes every registered handler
// in registration order, rotates the random-token/counter pair, and finally
// releases the gate, re-arming OnFrame to accept the next frame.
//
// Result buffers written by handlers MUST be flushed to the shared window
// before LoopOnce returns, since the random-token rotation it performs last
// is the fence the target waits on (spec.md §5).
func (d *Dispatcher) LoopOnce() {
	if !d.hasFrame {
		return
	}

	defer d.gate.Release()

	frame := d.lastFrame
	d.hasFrame = false

	token := decodeToken(frame.Payload[0], frame.Payload[1])
	words := transport.PayloadWords(frame.Size)

	var payload []uint16
	if words > 2 {
		payload = frame.Payload[2:words]
	}

	for _, h := range d.handlers {
		h.HandleFrame(&frame, token, payload)
	}

	d.counter++

	if d.tokens != nil {
		d.tokens.WriteRandomToken(d.counter, token)
	}
}

// decodeToken reassembles the 32-bit random token from the two leading
// payload words (little-endian word order, as laid out on the wire).
func decodeToken(lo, hi uint16) uint32 {
	return uint32(hi)<<16 | uint32(lo)
}
