// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package fsresponder

import (
	"errors"
	"io/fs"
)

// Status is the target-facing error taxonomy, written into a result
// status word by every responder handler.
type Status int16

const (
	StatusOK                 Status = 0
	StatusGeneric            Status = -1
	StatusDriveNotReady       Status = -2
	StatusUnknownCommand      Status = -3
	StatusCRC                 Status = -4
	StatusBadRequest          Status = -5
	StatusSeek                Status = -6
	StatusUnknownMedia        Status = -7
	StatusSectorNotFound      Status = -8
	StatusWriteFault          Status = -9
	StatusReadFault           Status = -10
	StatusWriteProtected      Status = -11
	StatusMediaChanged        Status = -12
	StatusUnknownDevice       Status = -13
	StatusInvalidFunction     Status = -14
	StatusFileNotFound        Status = -33
	StatusPathNotFound        Status = -34
	StatusNoMoreHandles       Status = -35
	StatusAccessDenied        Status = -36
	StatusInvalidHandle       Status = -37
	StatusInsufficientMemory  Status = -39
	StatusInvalidDrive        Status = -46
	StatusCrossDeviceRename   Status = -48
	StatusNoMoreFiles         Status = -49
	StatusLocked              Status = -58
	StatusLockRemoval         Status = -59
	StatusRange               Status = -64
	StatusInternal            Status = -65
	StatusLoadFormat          Status = -66
	StatusGrowthFailure       Status = -67
)

// mapFSError applies the single-boundary library-error mapping policy:
// fs.ErrNotExist -> StatusFileNotFound, fs.ErrExist -> StatusAccessDenied,
// fs.ErrInvalid -> StatusInvalidHandle, everything else -> StatusInternal.
// It never yields a path-not-found or file-exists status.
func mapFSError(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, fs.ErrNotExist):
		return StatusFileNotFound
	case errors.Is(err, fs.ErrExist):
		return StatusAccessDenied
	case errors.Is(err, fs.ErrInvalid):
		return StatusInvalidHandle
	default:
		return StatusInternal
	}
}
