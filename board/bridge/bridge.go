// Cartridge-bridge board initialization glue
// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package bridge wires the cartridge-bus transport, command dispatcher,
// shared-memory window, and the file-system and floppy subsystems
// together into a single running bridge, reading its feature flags from
// a config.Store.
package bridge

import (
	"time"

	"github.com/usbarmory/tamago-cartbridge/abi"
	"github.com/usbarmory/tamago-cartbridge/config"
	"github.com/usbarmory/tamago-cartbridge/dispatch"
	"github.com/usbarmory/tamago-cartbridge/dma"
	"github.com/usbarmory/tamago-cartbridge/floppy"
	"github.com/usbarmory/tamago-cartbridge/fsresponder"
	"github.com/usbarmory/tamago-cartbridge/internal/debug"
	"github.com/usbarmory/tamago-cartbridge/soc/nxp/usdhc"
	"github.com/usbarmory/tamago-cartbridge/storage"
	"github.com/usbarmory/tamago-cartbridge/transport"
)

// tokenSlotOffset and seedSlotOffset are the random-token rotation
// fence's offsets within the shared window (spec.md §3: "Random token
// (32 bits), random-token-next-seed (32 bits)", the first two fields of
// the window).
const (
	tokenSlotOffset = 0
	seedSlotOffset  = 4

	// commonPrivateVarsOffset is where hardware-type/version/buffer-type
	// private variables begin, immediately after the rotation fence.
	commonPrivateVarsOffset = 8
	commonPrivateVarsSize   = 16

	fsResponderBase = commonPrivateVarsOffset + commonPrivateVarsSize
)

// sectorSize is the uSDHC block device's native sector size, used to
// size the FAT adapter.
const sectorSize = 512

// Bridge owns every subsystem needed to answer cartridge-bus commands:
// the frame parser, the dispatcher, the shared window, and the
// file-system and floppy responders registered with it.
type Bridge struct {
	Config config.Store

	Window     *abi.Window
	Parser     *transport.Parser
	Dispatcher *dispatch.Dispatcher

	Store     storage.FS
	Responder *fsresponder.Responder
	Floppy    *floppy.Engine
}

// windowTokens adapts a Bridge's Window to dispatch.RandomTokenWriter.
type windowTokens struct {
	win *abi.Window
}

func (t windowTokens) WriteRandomToken(counter uint32, token uint32) {
	t.win.WriteSwappedLongword(tokenSlotOffset, counter)
	t.win.WriteSwappedLongword(seedSlotOffset, token)
}

// New builds a Bridge from cfg, allocating its shared window from
// region and backing the file-system subsystem with card. It registers
// the file-system responder and floppy engine with the dispatcher in
// that order, matching the original firmware's trap-priority ordering,
// and mounts configured floppy images before returning.
//
// sharedWindowSize must be large enough for the fixed fence/private-var
// header, the file-system subsystem (fsresponder.SubsystemSize plus
// fsresponder.RequestAreaSize), and the floppy engine's per-drive BPB
// slots; New does not validate this beyond what abi.NewWindow itself
// enforces.
func New(cfg config.Store, region *dma.Region, card *usdhc.USDHC, sharedWindowSize int) (*Bridge, error) {
	win := abi.NewWindow(region, sharedWindowSize)

	b := &Bridge{
		Config: cfg,
		Window: win,
	}

	b.Dispatcher = dispatch.New(windowTokens{win: win})
	b.Parser = transport.NewParser(b.Dispatcher.OnFrame, nil)

	fsEnabled := cfg.GetBool(config.FileSystemEnabled)
	floppyEnabled := cfg.GetBool(config.FloppyEnabled)

	if fsEnabled || floppyEnabled {
		dev := &storage.USDHCBlockDevice{Card: card}

		store, err := storage.NewFATStore(dev, sectorSize, cfg.GetString(config.FileSystemRoot))
		if err != nil {
			return nil, err
		}

		b.Store = store
	}

	if fsEnabled {
		b.initFileSystem()
		b.Dispatcher.Register(b.Responder)
	}

	if floppyEnabled {
		floppyBase := fsResponderBase
		if b.Responder != nil {
			floppyBase += fsresponder.SubsystemSize + fsresponder.RequestAreaSize
		}

		b.Floppy = floppy.NewEngine(b.Store, win, floppyBase, cfg.GetString(config.FloppyFolder))
		b.Dispatcher.Register(b.Floppy)

		if err := b.mountConfiguredFloppies(); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// initFileSystem constructs the file-system responder atop the already
// built storage layer.
func (b *Bridge) initFileSystem() {
	driveLetter := byte('C')
	if s := b.Config.GetString(config.FileSystemDriveLetter); s != "" {
		driveLetter = s[0]
	}

	b.Responder = fsresponder.NewResponder(
		b.Store,
		b.Window,
		fsResponderBase,
		b.Config.GetString(config.FileSystemRoot),
		driveLetter,
		b.Config.GetBool(config.FileSystemReadOnly),
	)
}

// mountConfiguredFloppies mounts the drive-A and drive-B image filenames
// named in configuration, if any. A blank filename leaves the drive
// ejected/erred, matching floppy.Engine.Mount's own convention.
func (b *Bridge) mountConfiguredFloppies() error {
	names := [2]string{
		b.Config.GetString(config.FloppyDriveA),
		b.Config.GetString(config.FloppyDriveB),
	}

	for i, name := range names {
		if name == "" {
			b.Floppy.Mount(i, "")
			continue
		}

		if err := b.Floppy.Mount(i, name); err != nil {
			debug.Printf("bridge: mount drive %d (%s): %v", i, name, err)
			return err
		}

		debug.Printf("bridge: mounted drive %d from %s", i, name)
	}

	return nil
}

// Reset clears both subsystems' transient state. The reset op code of
// each application tag is handled by that subsystem's own HandleFrame and
// resets only that subsystem.
func (b *Bridge) Reset() {
	debug.Printf("bridge: reset")

	if b.Responder != nil {
		b.Responder.Reset()
	}

	if b.Floppy != nil {
		b.Floppy.Reset()
	}
}

// Feed pushes one 16-bit word lifted from a bus cycle into the frame
// parser, for use from bus interrupt context.
func (b *Bridge) Feed(now time.Time, word uint16) {
	b.Parser.Feed(now, word)
}

// LoopOnce runs one main-loop dispatch cycle. Call it from the main
// polling loop, never from interrupt context.
func (b *Bridge) LoopOnce() {
	b.Dispatcher.LoopOnce()
}
