// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package fsresponder

// Shared-memory layout, offsets relative to the file-system subsystem's
// base within the shared window (spec.md §6). Sized generously and kept
// in one place so a board package can relocate the whole subsystem by
// changing a single base offset.
const (
	offReentryFlag = 0
	offOldVectors  = offReentryFlag + 4
	offDefaultPath = offOldVectors + 4 // 128 bytes
	offDTAFound    = offDefaultPath + 128
	offDTATransfer = offDTAFound + 4 // 44 bytes
	offDTAExist    = offDTATransfer + 44
	offDTARelease  = offDTAExist + 4
	offSetPathStatus = offDTARelease + 4
	offFopenHandle   = offSetPathStatus + 4
	offReadBytes     = offFopenHandle + 4
	offReadBuffer    = offReadBytes + 4 // >= 4096 bytes
	offWriteBytes    = offReadBuffer + readBufferSize
	offWriteCheck    = offWriteBytes + 4
	offWriteConfirm  = offWriteCheck + 4
	offFcloseStatus  = offWriteConfirm + 4
	offDcreateStatus = offFcloseStatus + 4
	offDdeleteStatus = offDcreateStatus + 4
	offExecHeader    = offDdeleteStatus + 4 // 32 bytes
	offFcreateHandle = offExecHeader + 32
	offFdeleteStatus = offFcreateHandle + 4
	offFseekStatus   = offFdeleteStatus + 4
	offFattribStatus = offFseekStatus + 4
	offFrenameStatus = offFattribStatus + 4
	offFdatetimeDate   = offFrenameStatus + 4
	offFdatetimeTime   = offFdatetimeDate + 4
	offFdatetimeStatus = offFdatetimeTime + 4
	offDfreeStatus   = offFdatetimeStatus + 4
	offDfreeStruct   = offDfreeStatus + 4 // 16 bytes
	offPexecMode     = offDfreeStruct + 16
	offPexecStack    = offPexecMode + 4
	offPexecFname    = offPexecStack + 4
	offPexecCmdline  = offPexecFname + 4
	offPexecEnvstr   = offPexecCmdline + 4
	offBasepage      = offPexecEnvstr + 4 // 256 bytes

	readBufferSize  = 4096
	writeBufferSize = 1024

	// SubsystemSize is the total span this subsystem occupies within
	// the shared window, for callers sizing the overall window.
	SubsystemSize = offBasepage + 256
)

// DTA transfer record field offsets within the 44-byte record at
// offDTATransfer, matching the original firmware's on-target DTA layout
// (gemdrive.h's "DTA" struct): short name, directory offset, current
// cluster, attribute bits (twice), time, date, length, then the long
// (original) filename.
const (
	dtaShortName = 0  // 12 bytes, 8.3 without separating NUL
	dtaOffset    = 12 // 4 bytes, directory enumeration position
	dtaCurByte   = 16 // 2 bytes, byte pointer within the current cluster
	dtaCluster   = 18 // 2 bytes, FAT cluster backing the directory position
	dtaAttr      = 20
	dtaAttrib    = 21
	dtaTime      = 22
	dtaDate      = 24
	dtaSize      = 26 // 4 bytes
	dtaLongName  = 30 // 14 bytes, original filename + NUL
)

// Request-side string staging areas: the target places the path or
// pattern it is operating on here before triggering the bus cycle,
// mirroring the way the default-path and DTA-transfer areas are laid
// out on the response side.
const (
	reqPathSize    = 256
	reqPath        = SubsystemSize
	reqRenameDest  = reqPath + reqPathSize

	// RequestAreaSize is the additional span needed past SubsystemSize
	// for request-side string staging.
	RequestAreaSize = reqPathSize * 2
)
