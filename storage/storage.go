// Block-storage filesystem adapter
// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package storage narrows the responder's and floppy engine's storage
// needs to a small interface, and backs it with a FAT filesystem adapter
// over the microcontroller's microSD card.
package storage

import (
	"io/fs"
	"time"
)

// FS is the storage collaborator consumed by the file-system responder
// and the floppy engine. It is intentionally narrower than fs.FS: the
// responder needs create/remove/rename/chmod/utime in addition to open,
// none of which fs.FS itself exposes.
type FS interface {
	Open(name string, writable bool) (File, error)
	Create(name string) (File, error)
	Remove(name string) error
	Rename(oldName, newName string) error
	Stat(name string) (fs.FileInfo, error)
	Chmod(name string, readOnly, hidden, system bool) error
	Chtimes(name string, t time.Time) error
	ReadDir(name string) ([]fs.DirEntry, error)
	Mkdir(name string) error

	// Free returns the free and total cluster counts, plus volume
	// geometry, for Dfree.
	Free() (freeClusters, totalClusters uint32, bytesPerSector uint16, sectorsPerCluster uint8, err error)
}

// File is the subset of *os.File-like behavior the responder's
// read-buffer/write-buffer handlers need.
type File interface {
	ReadAt(buf []byte, offset int64) (int, error)
	WriteAt(buf []byte, offset int64) (int, error)
	Size() int64
	Close() error
}
