// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package fsresponder

// Tag is the application tag this responder answers to: the high byte
// of every command identifier it handles.
const Tag = 0x04

// Operation codes, the low byte of the command identifier, for the
// file-system application tag.
const (
	opReset          = 0x00
	opSaveVectors    = 0x01
	opShowVectorCall = 0x02
	opReentryLock    = 0x03
	opReentryUnlock  = 0x04
	opDgetdrv        = 0x19
	opFsetdta        = 0x1A
	opDfree          = 0x36
	opDcreate        = 0x39
	opDdelete        = 0x3A
	opDsetpath       = 0x3B
	opFcreate        = 0x3C
	opFopen          = 0x3D
	opFclose         = 0x3E
	opFdelete        = 0x41
	opFseek          = 0x42
	opFattrib        = 0x43
	opDgetpath       = 0x47
	opFsfirst        = 0x4E
	opFsnext         = 0x4F
	opPexec          = 0x4B
	opFrename        = 0x56
	opFdatetime      = 0x57
	opReadBuffer     = 0x81
	opDebug          = 0x82
	opSaveBasepage   = 0x83
	opSaveExecHeader = 0x84
	opSetSharedVar   = 0x87
	opWriteBuffer    = 0x88
	opWriteBufferCheck = 0x89
	opDTAExist       = 0x8A
	opDTARelease     = 0x8B
)
