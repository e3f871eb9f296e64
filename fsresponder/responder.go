// File-system trap responder
// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package fsresponder implements the target OS's file-system traps
// against a storage.FS collaborator: open/close/read/write/seek/attrib/
// rename/datetime, directory create/delete/enumerate/set-path,
// free-space queries, and process-exec bookkeeping.
//
// Every exported method here is the typed, directly testable form of a
// single trap; HandleFrame is the wire-level glue that decodes a
// transport frame into these calls and writes results back into the
// shared window.
package fsresponder

import (
	"io/fs"
	"time"

	"github.com/usbarmory/tamago-cartbridge/abi"
	"github.com/usbarmory/tamago-cartbridge/dta"
	"github.com/usbarmory/tamago-cartbridge/fdtable"
	"github.com/usbarmory/tamago-cartbridge/fsname"
	"github.com/usbarmory/tamago-cartbridge/internal/debug"
	"github.com/usbarmory/tamago-cartbridge/storage"
	"github.com/usbarmory/tamago-cartbridge/transport"
)

// maxWildcardRecursion bounds Fsfirst/Fsnext pattern-match cost.
const maxWildcardRecursion = 8

// maxPathSegments bounds Dsetpath/Compose normalization cost.
const maxPathSegments = 64

// Responder implements the file-system subsystem. It is registered with
// a dispatcher as a dispatch.Handler.
type Responder struct {
	FS   storage.FS
	Win  *abi.Window
	Base int // offset of this subsystem's layout within Win

	Root        string
	DriveLetter byte
	ReadOnly    bool

	defaultPath string

	dtaTable *dta.Table
	fdTable  *fdtable.Table

	reentryLocked bool

	pexecMode    uint32
	pexecStack   uint32
	pexecFname   uint32
	pexecCmdline uint32
	pexecEnvstr  uint32
}

// NewResponder constructs a Responder over fs, rooted at root, answering
// to driveLetter, with its shared-memory fields living at base within
// win.
func NewResponder(fsys storage.FS, win *abi.Window, base int, root string, driveLetter byte, readOnly bool) *Responder {
	return &Responder{
		FS:          fsys,
		Win:         win,
		Base:        base,
		Root:        root,
		DriveLetter: driveLetter,
		ReadOnly:    readOnly,
		dtaTable:    dta.NewTable(dta.DefaultPoolSize),
		fdTable:     fdtable.NewTable(),
	}
}

// HandleFrame implements dispatch.Handler. It returns immediately,
// without side effects, for any frame not tagged for this subsystem.
func (r *Responder) HandleFrame(frame *transport.Frame, token uint32, payload []uint16) {
	if byte(frame.CommandID>>8) != Tag {
		return
	}

	op := byte(frame.CommandID)

	switch op {
	case opReset:
		r.Reset()
	case opSaveVectors:
		if len(payload) >= 2 {
			r.SaveVectors(wordsToU32(payload[0], payload[1]))
		}
	case opSaveBasepage:
		r.saveWords(offBasepage, 256, payload)
	case opSaveExecHeader:
		r.saveWords(offExecHeader, 32, payload)
	case opReentryLock:
		r.SetReentryLock(true)
	case opReentryUnlock:
		r.SetReentryLock(false)
	case opDfree:
		r.handleDfree()
	case opDgetpath:
		r.handleDgetpath()
	case opDsetpath:
		r.handleDsetpath()
	case opDcreate:
		r.handleDcreate()
	case opDdelete:
		r.handleDdelete()
	case opFsetdta:
		r.handleFsetdta(payload)
	case opDTAExist:
		r.handleDTAExist(payload)
	case opDTARelease:
		r.handleDTARelease(payload)
	case opFsfirst:
		r.handleFsfirst(payload)
	case opFsnext:
		r.handleFsnext(payload)
	case opFopen:
		r.handleFopen(payload)
	case opFcreate:
		r.handleFcreate(payload)
	case opFclose:
		r.handleFclose(payload)
	case opFdelete:
		r.handleFdelete()
	case opFseek:
		r.handleFseek(payload)
	case opFattrib:
		r.handleFattrib(payload)
	case opFrename:
		r.handleFrename()
	case opFdatetime:
		r.handleFdatetime(payload)
	case opReadBuffer:
		r.handleReadBuffer(payload)
	case opWriteBuffer:
		r.handleWriteBuffer(payload)
	case opWriteBufferCheck:
		r.handleWriteBufferCheck(payload)
	case opPexec:
		r.handlePexec(payload)
	case opShowVectorCall, opDgetdrv, opDebug, opSetSharedVar:
		// telemetry only: no state mutation.
	default:
		// unknown command identifier: log and do not mutate state.
		debug.Printf("fsresponder: unknown command %#04x", frame.CommandID)
	}
}

// path reads the request-side path staging area and normalizes slashes.
func (r *Responder) path() string {
	return fsname.NormalizeSlashes(readCString(r.Win.Slice(reqPath, reqPathSize)))
}

func (r *Responder) renameDest() string {
	return fsname.NormalizeSlashes(readCString(r.Win.Slice(reqRenameDest, reqPathSize)))
}

func readCString(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

func writeCString(buf []byte, s string) {
	n := copy(buf, s)
	if n < len(buf) {
		buf[n] = 0
	}
}

func (r *Responder) writeStatus(off int, status Status) {
	r.Win.WriteSwappedLongword(r.Base+off, uint32(int32(status)))
}

// Reset clears the DTA table and FD table, and signals the target
// display to continue boot (modeled as clearing the reentry flag).
func (r *Responder) Reset() {
	r.dtaTable.Clear()
	r.fdTable.ClearAll()
	r.fdTable = fdtable.NewTable()
	r.SetReentryLock(false)
}

// saveWords copies payload words, byte-swapped, into an area bytes long
// at offset, truncating the copy to whichever is smaller.
func (r *Responder) saveWords(offset, bytes int, payload []uint16) {
	n := bytes / 2
	if n > len(payload) {
		n = len(payload)
	}

	for i := 0; i < n; i++ {
		r.Win.WriteWord(r.Base+offset+i*2, payload[i])
	}
}

// SaveVectors writes the supplied old vector value, byte-swapped, into
// the designated XBRA chain location so the target's trap linking is
// correct.
func (r *Responder) SaveVectors(oldVector uint32) {
	r.Win.WriteSwappedLongword(r.Base+offOldVectors, oldVector)
}

// SetReentryLock writes a nonzero or zero word to the reentry flag.
func (r *Responder) SetReentryLock(locked bool) {
	r.reentryLocked = locked

	v := uint32(0)
	if locked {
		v = 1
	}

	r.Win.WriteSwappedLongword(r.Base+offReentryFlag, v)
}

// Dfree queries free-cluster count on the emulated volume and writes
// {free clusters, total clusters, bytes per sector, sectors per
// cluster} plus an overall status.
func (r *Responder) Dfree() (free, total uint32, bytesPerSector uint16, sectorsPerCluster uint8, status Status) {
	f, t, bps, spc, err := r.FS.Free()
	if err != nil {
		return 0, 0, 0, 0, StatusGeneric
	}

	return f, t, bps, spc, StatusOK
}

func (r *Responder) handleDfree() {
	free, total, bps, spc, status := r.Dfree()

	r.Win.WriteSwappedLongword(r.Base+offDfreeStruct+0, free)
	r.Win.WriteSwappedLongword(r.Base+offDfreeStruct+4, total)
	r.Win.WriteWord(r.Base+offDfreeStruct+8, bps)
	r.Win.Bytes()[r.Base+offDfreeStruct+10] = spc

	r.writeStatus(offDfreeStatus, status)
}

// Dgetpath returns the cached default-path string, post slash-forward
// conversion.
func (r *Responder) Dgetpath() string {
	return r.defaultPath
}

func (r *Responder) handleDgetpath() {
	path := r.Dgetpath()
	r.Win.CopyAndChangeEndiannessBlock16([]byte(path+"\x00"), r.Base+offDefaultPath, len(path)+1)
}

// Dsetpath strips any drive prefix, resolves a relative incoming path
// against the current default path, normalizes, composes with the
// root, and verifies existence and directory-ness before committing.
func (r *Responder) Dsetpath(incoming string) Status {
	incoming = fsname.NormalizeSlashes(incoming)
	incoming = fsname.StripDrivePrefix(incoming)

	var combined string
	if fsname.IsAbsolute(incoming) {
		combined = incoming
	} else {
		combined = r.defaultPath + "/" + incoming
	}

	combined = fsname.Normalize(combined, maxPathSegments)
	full := fsname.CollapseSlashes(r.Root + "/" + combined)

	info, err := r.FS.Stat(full)
	if err != nil || !info.IsDir() {
		return StatusPathNotFound
	}

	r.defaultPath = combined

	return StatusOK
}

func (r *Responder) handleDsetpath() {
	status := r.Dsetpath(r.path())
	r.writeStatus(offSetPathStatus, status)
}

// Dcreate creates a directory.
func (r *Responder) Dcreate(path string) Status {
	full := r.composePath(path)

	if err := r.FS.Mkdir(full); err != nil {
		return mapFSError(err)
	}

	return StatusOK
}

func (r *Responder) handleDcreate() {
	r.writeStatus(offDcreateStatus, r.Dcreate(r.path()))
}

// Ddelete removes a directory. A non-empty directory is refused with
// StatusAccessDenied, the same status as a generic access failure; no
// separate folder-not-empty status is returned.
func (r *Responder) Ddelete(path string) Status {
	full := r.composePath(path)

	entries, err := r.FS.ReadDir(full)
	if err == nil && len(entries) > 0 {
		return StatusAccessDenied
	}

	if err := r.FS.Remove(full); err != nil {
		return mapFSError(err)
	}

	return StatusOK
}

func (r *Responder) handleDdelete() {
	r.writeStatus(offDdeleteStatus, r.Ddelete(r.path()))
}

func (r *Responder) composePath(request string) string {
	return fsname.Compose(r.Root, r.defaultPath, r.DriveLetter, request)
}

// Fsetdta inserts a DTA node keyed by key if none exists; idempotent.
func (r *Responder) Fsetdta(key uint32) {
	r.dtaTable.Insert(key)
}

func (r *Responder) handleFsetdta(payload []uint16) {
	if len(payload) < 2 {
		return
	}
	r.Fsetdta(wordsToU32(payload[0], payload[1]))
}

// DTAExist reports whether a DTA node is present for key.
func (r *Responder) DTAExist(key uint32) bool {
	_, ok := r.dtaTable.Lookup(key)
	return ok
}

func (r *Responder) handleDTAExist(payload []uint16) {
	if len(payload) < 2 {
		return
	}

	v := uint32(0)
	if r.DTAExist(wordsToU32(payload[0], payload[1])) {
		v = 1
	}

	r.Win.WriteSwappedLongword(r.Base+offDTAExist, v)
}

// DTARelease releases the DTA node for key, if present.
func (r *Responder) DTARelease(key uint32) {
	r.dtaTable.Release(key)
}

func (r *Responder) handleDTARelease(payload []uint16) {
	if len(payload) < 2 {
		return
	}

	r.dtaTable.Release(wordsToU32(payload[0], payload[1]))
	r.Win.WriteSwappedLongword(r.Base+offDTARelease, 0)
}

func wordsToU32(lo, hi uint16) uint32 {
	return uint32(hi)<<16 | uint32(lo)
}

// Fsfirst begins a directory enumeration for a DTA keyed by key, over
// an attribute filter and glob pattern matched against the directory
// derived from spec.
func (r *Responder) Fsfirst(key uint32, attrMask byte, searchSpec string) Status {
	searchSpec = fsname.NormalizeSlashes(searchSpec)
	searchSpec = fsname.StripDrivePrefix(searchSpec)

	if !fsname.IsAbsolute(searchSpec) {
		searchSpec = r.defaultPath + "/" + searchSpec
	}

	dir, pattern := splitDirPattern(searchSpec)

	entry, err := r.dtaTable.Insert(key)
	if err != nil {
		return StatusInternal
	}

	entry.AttrMask = attrMask
	entry.Pattern = pattern

	full := fsname.CollapseSlashes(r.Root + "/" + dir)

	listing, err := r.FS.ReadDir(full)
	if err != nil {
		r.dtaTable.Release(key)
		return StatusPathNotFound
	}

	entry.SetIterator(listing)

	return r.advanceDTA(entry, key)
}

func splitDirPattern(path string) (dir, pattern string) {
	i := lastIndexByte(path, '/')
	if i < 0 {
		return "", path
	}

	return path[:i], path[i+1:]
}

func lastIndexByte(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// Fsnext continues the enumeration started by Fsfirst over the same DTA
// key.
func (r *Responder) Fsnext(key uint32) Status {
	entry, ok := r.dtaTable.Lookup(key)
	if !ok {
		return StatusNoMoreFiles
	}

	return r.advanceDTA(entry, key)
}

// advanceDTA scans the DTA's directory iterator for the next entry
// matching both the skip rules (dotfiles) and the glob pattern, writes
// the DTA transfer record on a match, or releases the node and reports
// no-more-files on exhaustion.
func (r *Responder) advanceDTA(entry *dta.Entry, key uint32) Status {
	for {
		d, ok := entry.Next()
		if !ok {
			r.dtaTable.Release(key)
			return StatusNoMoreFiles
		}

		name := d.Name()

		if len(name) > 0 && name[0] == '.' {
			continue
		}

		if !fsname.MatchPattern(entry.Pattern, name, maxWildcardRecursion) {
			continue
		}

		info, err := d.Info()
		if err != nil {
			continue
		}

		attr := fsname.ToTargetAttr(info.Mode(), false, false, false)
		if attr&entry.AttrMask == 0 && attr != 0 {
			continue
		}

		r.writeDTATransfer(entry, name, info)

		return StatusOK
	}
}

// writeDTATransfer populates the 44-byte DTA transfer record with the
// full field set of the original firmware's on-target DTA struct: short
// name, directory offset, FAT cluster, attribute bits, DOS time/date,
// length, and the original (long) filename.
func (r *Responder) writeDTATransfer(entry *dta.Entry, name string, info fs.FileInfo) {
	short := fsname.ShortName(name)
	writeCString(r.Win.Slice(r.Base+offDTATransfer+dtaShortName, 12), short)

	r.Win.WriteSwappedLongword(r.Base+offDTATransfer+dtaOffset, uint32(entry.Pos()))

	// The storage.FS abstraction exposes directory entries through
	// fs.DirEntry/fs.FileInfo, with no portable way to recover the
	// backing FAT cluster across FATStore and MemFS; left zero (see
	// DESIGN.md).
	r.Win.WriteWord(r.Base+offDTATransfer+dtaCurByte, 0)
	r.Win.WriteWord(r.Base+offDTATransfer+dtaCluster, 0)

	attr := fsname.ToTargetAttr(info.Mode(), false, false, false)
	r.Win.Bytes()[r.Base+offDTATransfer+dtaAttr] = attr
	r.Win.Bytes()[r.Base+offDTATransfer+dtaAttrib] = attr

	date, t := dosDateTime(info.ModTime())
	r.Win.WriteWord(r.Base+offDTATransfer+dtaDate, date)
	r.Win.WriteWord(r.Base+offDTATransfer+dtaTime, t)

	r.Win.WriteSwappedLongword(r.Base+offDTATransfer+dtaSize, uint32(info.Size()))

	writeCString(r.Win.Slice(r.Base+offDTATransfer+dtaLongName, 14), name)
}

func (r *Responder) handleFsfirst(payload []uint16) {
	if len(payload) < 3 {
		return
	}

	key := wordsToU32(payload[0], payload[1])
	attrMask := byte(payload[2])

	status := r.Fsfirst(key, attrMask, r.path())
	r.writeStatus(offDTAFound, status)
}

func (r *Responder) handleFsnext(payload []uint16) {
	if len(payload) < 2 {
		return
	}

	key := wordsToU32(payload[0], payload[1])
	status := r.Fsnext(key)
	r.writeStatus(offDTAFound, status)
}

// Fopen modes.
const (
	ModeRead      = 0
	ModeWrite     = 1
	ModeReadWrite = 2
)

// Fopen translates the target's open mode, opens the file, and on
// success allocates and returns the next FD.
func (r *Responder) Fopen(path string, mode int) (fd int, status Status) {
	if mode < ModeRead || mode > ModeReadWrite {
		return 0, StatusAccessDenied
	}

	full := r.composePath(path)

	f, err := r.FS.Open(full, mode != ModeRead)
	if err != nil {
		return 0, StatusFileNotFound
	}

	fd = r.fdTable.FirstAvailableFD()
	r.fdTable.Add(fd, full, f, mode != ModeRead)

	return fd, StatusOK
}

func (r *Responder) handleFopen(payload []uint16) {
	if len(payload) < 1 {
		return
	}

	mode := int(payload[0])
	fd, status := r.Fopen(r.path(), mode)

	if status != StatusOK {
		r.writeStatus(offFopenHandle, status)
		return
	}

	r.Win.WriteSwappedLongword(r.Base+offFopenHandle, uint32(fd))
}

// Fcreate always creates-or-truncates with read+write, then applies the
// requested attribute bits (limited to read-only/hidden/system).
func (r *Responder) Fcreate(path string, attr byte) (fd int, status Status) {
	full := r.composePath(path)

	f, err := r.FS.Create(full)
	if err != nil {
		return 0, mapFSError(err)
	}

	if err := r.FS.Chmod(full, fsname.IsReadOnly(attr), fsname.IsHidden(attr), fsname.IsSystem(attr)); err != nil {
		f.Close()
		return 0, StatusInternal
	}

	fd = r.fdTable.FirstAvailableFD()
	r.fdTable.Add(fd, full, f, true)

	return fd, StatusOK
}

func (r *Responder) handleFcreate(payload []uint16) {
	if len(payload) < 1 {
		return
	}

	attr := byte(payload[0])
	fd, status := r.Fcreate(r.path(), attr)

	if status != StatusOK {
		r.writeStatus(offFcreateHandle, status)
		return
	}

	r.Win.WriteSwappedLongword(r.Base+offFcreateHandle, uint32(fd))
}

// Fclose looks up fd, closes the underlying handle, and removes the
// table node.
func (r *Responder) Fclose(fd int) Status {
	entry, ok := r.fdTable.FindByFD(fd)
	if !ok {
		return StatusInvalidHandle
	}

	if err := entry.File.Close(); err != nil {
		r.fdTable.DeleteByFD(fd)
		return StatusInternal
	}

	r.fdTable.DeleteByFD(fd)

	return StatusOK
}

func (r *Responder) handleFclose(payload []uint16) {
	if len(payload) < 2 {
		return
	}

	fd := int(wordsToU32(payload[0], payload[1]))
	r.writeStatus(offFcloseStatus, r.Fclose(fd))
}

// Fdelete refuses to remove a path with an open FD; otherwise unlinks.
// As in the original firmware, "file not found" is coerced to ok: an
// atypical mapping, preserved deliberately rather than "corrected".
func (r *Responder) Fdelete(path string) Status {
	full := r.composePath(path)

	if _, ok := r.fdTable.FindByPath(full); ok {
		return StatusAccessDenied
	}

	err := r.FS.Remove(full)
	if err == nil {
		return StatusOK
	}

	status := mapFSError(err)
	if status == StatusFileNotFound {
		return StatusOK
	}

	return status
}

func (r *Responder) handleFdelete() {
	r.writeStatus(offFdeleteStatus, r.Fdelete(r.path()))
}

// Fseek modes.
const (
	SeekSet     = 0
	SeekCurrent = 1
	SeekEnd     = 2
)

// Fseek clamps the FD's logical offset and stores it without issuing a
// library seek; the seek is applied lazily at the next read or write.
func (r *Responder) Fseek(fd int, mode int, offset int64) (newOffset int64, status Status) {
	entry, ok := r.fdTable.FindByFD(fd)
	if !ok {
		return 0, StatusInvalidHandle
	}

	size := entry.File.Size()

	var target int64

	switch mode {
	case SeekSet:
		target = offset
	case SeekCurrent:
		target = entry.Offset + offset
	case SeekEnd:
		target = size + offset
	default:
		return 0, StatusAccessDenied
	}

	if target < 0 {
		target = 0
	}

	if mode != SeekCurrent && target > size {
		target = size
	}

	entry.Offset = target

	return target, StatusOK
}

func (r *Responder) handleFseek(payload []uint16) {
	if len(payload) < 5 {
		return
	}

	fd := int(wordsToU32(payload[0], payload[1]))
	mode := int(payload[2])
	offset := int64(int32(wordsToU32(payload[3], payload[4])))

	newOffset, status := r.Fseek(fd, mode, offset)

	if status != StatusOK {
		r.writeStatus(offFseekStatus, status)
		return
	}

	r.Win.WriteSwappedLongword(r.Base+offFseekStatus, uint32(newOffset))
}

// FattribInquire reads and translates library attributes.
func (r *Responder) FattribInquire(path string) (attr byte, status Status) {
	full := r.composePath(path)

	info, err := r.FS.Stat(full)
	if err != nil {
		return 0, mapFSError(err)
	}

	return fsname.ToTargetAttr(info.Mode(), false, false, false), StatusOK
}

// FattribSet translates target bits to library bits and applies them,
// limited to read-only/hidden/system.
func (r *Responder) FattribSet(path string, attr byte) Status {
	full := r.composePath(path)

	if err := r.FS.Chmod(full, fsname.IsReadOnly(attr), fsname.IsHidden(attr), fsname.IsSystem(attr)); err != nil {
		return mapFSError(err)
	}

	return StatusOK
}

func (r *Responder) handleFattrib(payload []uint16) {
	if len(payload) < 1 {
		return
	}

	const modeInquire = 0

	if int16(payload[0]) == modeInquire {
		attr, status := r.FattribInquire(r.path())

		if status != StatusOK {
			r.writeStatus(offFattribStatus, status)
			return
		}

		r.Win.WriteSwappedLongword(r.Base+offFattribStatus, uint32(attr))

		return
	}

	attr := byte(payload[0])
	r.writeStatus(offFattribStatus, r.FattribSet(r.path(), attr))
}

// Frename refuses cross-drive renames, otherwise composes both absolute
// paths and invokes the library rename.
func (r *Responder) Frename(oldPath, newPath string) Status {
	oldDrive, hasOldDrive := driveOf(oldPath)
	newDrive, hasNewDrive := driveOf(newPath)

	if hasOldDrive && hasNewDrive && oldDrive != newDrive {
		return StatusPathNotFound
	}

	oldFull := r.composePath(oldPath)
	newFull := r.composePath(newPath)

	if err := r.FS.Rename(oldFull, newFull); err != nil {
		return mapFSError(err)
	}

	return StatusOK
}

func driveOf(path string) (byte, bool) {
	if len(path) >= 2 && path[1] == ':' {
		return path[0], true
	}
	return 0, false
}

func (r *Responder) handleFrename() {
	r.writeStatus(offFrenameStatus, r.Frename(r.path(), r.renameDest()))
}

// FdatetimeInquire stats the path owned by fd and returns its DOS
// date/time.
func (r *Responder) FdatetimeInquire(fd int) (date, t uint16, status Status) {
	entry, ok := r.fdTable.FindByFD(fd)
	if !ok {
		return 0, 0, StatusInvalidHandle
	}

	info, err := r.FS.Stat(entry.Path)
	if err != nil {
		return 0, 0, mapFSError(err)
	}

	d, tm := dosDateTime(info.ModTime())

	return d, tm, StatusOK
}

// FdatetimeSet applies a DOS date/time via a library utime-equivalent.
func (r *Responder) FdatetimeSet(fd int, date, t uint16) Status {
	entry, ok := r.fdTable.FindByFD(fd)
	if !ok {
		return StatusInvalidHandle
	}

	if err := r.FS.Chtimes(entry.Path, fromDOSDateTime(date, t)); err != nil {
		return mapFSError(err)
	}

	return StatusOK
}

func (r *Responder) handleFdatetime(payload []uint16) {
	if len(payload) < 3 {
		return
	}

	fd := int(wordsToU32(payload[0], payload[1]))
	const modeInquire = 0

	if int16(payload[2]) == modeInquire {
		date, t, status := r.FdatetimeInquire(fd)

		if status != StatusOK {
			r.writeStatus(offFdatetimeStatus, status)
			return
		}

		r.Win.WriteWord(r.Base+offFdatetimeDate, date)
		r.Win.WriteWord(r.Base+offFdatetimeTime, t)
		r.writeStatus(offFdatetimeStatus, StatusOK)

		return
	}

	if len(payload) < 5 {
		return
	}

	status := r.FdatetimeSet(fd, payload[3], payload[4])
	r.writeStatus(offFdatetimeStatus, status)
}

// dosDateTime packs a time.Time into DOS date/time words.
func dosDateTime(t time.Time) (date, clock uint16) {
	if t.Year() < 1980 {
		t = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	date = uint16((t.Year()-1980)<<9 | int(t.Month())<<5 | t.Day())
	clock = uint16(t.Hour()<<11 | t.Minute()<<5 | t.Second()/2)

	return date, clock
}

func fromDOSDateTime(date, clock uint16) time.Time {
	year := 1980 + int(date>>9)
	month := int((date >> 5) & 0x0F)
	day := int(date & 0x1F)

	hour := int(clock >> 11)
	minute := int((clock >> 5) & 0x3F)
	second := int(clock&0x1F) * 2

	if month == 0 {
		month = 1
	}
	if day == 0 {
		day = 1
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
}

// ReadBuffer seeks to fd's logical offset, reads up to readBufferSize
// of pending bytes, byte-swaps the result in the shared read buffer,
// advances the offset, and returns the actual byte count read.
func (r *Responder) ReadBuffer(fd int, pending int) (n int, status Status) {
	entry, ok := r.fdTable.FindByFD(fd)
	if !ok {
		return 0, StatusInvalidHandle
	}

	if pending > readBufferSize {
		pending = readBufferSize
	}

	buf := make([]byte, pending)

	n, err := entry.File.ReadAt(buf, entry.Offset)
	if err != nil && n == 0 {
		return 0, mapFSError(err)
	}

	r.Win.CopyAndChangeEndiannessBlock16(buf[:n], r.Base+offReadBuffer, n)

	entry.Offset += int64(n)

	return n, StatusOK
}

func (r *Responder) handleReadBuffer(payload []uint16) {
	if len(payload) < 3 {
		return
	}

	fd := int(wordsToU32(payload[0], payload[1]))
	pending := int(payload[2])

	n, status := r.ReadBuffer(fd, pending)

	if status != StatusOK {
		r.writeStatus(offReadBytes, status)
		return
	}

	r.Win.WriteSwappedLongword(r.Base+offReadBytes, uint32(n))
}

// WriteBuffer requires the FD to be writable, byte-swaps the incoming
// payload, writes up to writeBufferSize of pending bytes at the FD's
// logical offset, and returns the count written. The FD offset is NOT
// advanced here; WriteBufferCheck does that.
func (r *Responder) WriteBuffer(fd int, pending int, payload []byte) (n int, status Status) {
	entry, ok := r.fdTable.FindByFD(fd)
	if !ok {
		return 0, StatusInvalidHandle
	}

	if !entry.ReadWrite {
		return 0, StatusAccessDenied
	}

	if pending > writeBufferSize {
		pending = writeBufferSize
	}

	if pending > len(payload) {
		pending = len(payload)
	}

	swapped := make([]byte, pending)
	copy(swapped, payload[:pending])
	changeEndiannessInPlace(swapped)

	n, err := entry.File.WriteAt(swapped, entry.Offset)
	if err != nil {
		return n, StatusWriteFault
	}

	return n, StatusOK
}

func changeEndiannessInPlace(buf []byte) {
	for i := 0; i+1 < len(buf); i += 2 {
		buf[i], buf[i+1] = buf[i+1], buf[i]
	}
}

func (r *Responder) handleWriteBuffer(payload []uint16) {
	if len(payload) < 3 {
		return
	}

	fd := int(wordsToU32(payload[0], payload[1]))
	pending := int(payload[2])

	rest := payload[3:]
	buf := make([]byte, len(rest)*2)
	for i, w := range rest {
		buf[2*i] = byte(w >> 8)
		buf[2*i+1] = byte(w)
	}

	n, status := r.WriteBuffer(fd, pending, buf)

	if status != StatusOK {
		r.writeStatus(offWriteBytes, status)
		return
	}

	r.Win.WriteSwappedLongword(r.Base+offWriteBytes, uint32(n))
}

// WriteBufferCheck advances fd's logical offset by forward, completing
// the two-phase commit of the previous WriteBuffer round.
func (r *Responder) WriteBufferCheck(fd int, forward int) Status {
	entry, ok := r.fdTable.FindByFD(fd)
	if !ok {
		return StatusInvalidHandle
	}

	entry.Offset += int64(forward)

	return StatusOK
}

func (r *Responder) handleWriteBufferCheck(payload []uint16) {
	if len(payload) < 3 {
		return
	}

	fd := int(wordsToU32(payload[0], payload[1]))
	forward := int(payload[2])

	r.writeStatus(offWriteConfirm, r.WriteBufferCheck(fd, forward))
}

// Pexec records mode, stack address, and the filename/cmdline/envstr
// pointers into dedicated shared-memory fields for a subsequent
// save-basepage/save-exec-header snapshot.
func (r *Responder) Pexec(mode, stack, fname, cmdline, envstr uint32) {
	r.pexecMode = mode
	r.pexecStack = stack
	r.pexecFname = fname
	r.pexecCmdline = cmdline
	r.pexecEnvstr = envstr

	r.Win.WriteSwappedLongword(r.Base+offPexecMode, mode)
	r.Win.WriteSwappedLongword(r.Base+offPexecStack, stack)
	r.Win.WriteSwappedLongword(r.Base+offPexecFname, fname)
	r.Win.WriteSwappedLongword(r.Base+offPexecCmdline, cmdline)
	r.Win.WriteSwappedLongword(r.Base+offPexecEnvstr, envstr)
}

func (r *Responder) handlePexec(payload []uint16) {
	if len(payload) < 10 {
		return
	}

	mode := wordsToU32(payload[0], payload[1])
	stack := wordsToU32(payload[2], payload[3])
	fname := wordsToU32(payload[4], payload[5])
	cmdline := wordsToU32(payload[6], payload[7])
	envstr := wordsToU32(payload[8], payload[9])

	r.Pexec(mode, stack, fname, cmdline, envstr)
}
