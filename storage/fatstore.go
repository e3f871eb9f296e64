// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package storage

import (
	"io"
	"io/fs"
	"time"

	"github.com/soypat/fat"
)

// FATStore implements FS over a soypat/fat volume mounted on a
// BlockDevice. It is the "microSD card hierarchy" collaborator of the
// file-system emulator: the responder and floppy engine never see the
// underlying FAT library directly.
type FATStore struct {
	fsys *fat.FS
	root string
}

// NewFATStore mounts dev as a FAT volume with the given sector size and
// returns a FATStore rooted at root (an already-existing directory path
// within the volume, typically the configured file-system root folder).
func NewFATStore(dev fat.BlockDevice, sectorSize uint16, root string) (*FATStore, error) {
	fsys, err := fat.Mount(dev, sectorSize)
	if err != nil {
		return nil, err
	}

	return &FATStore{fsys: fsys, root: root}, nil
}

func (s *FATStore) path(name string) string {
	if s.root == "" {
		return name
	}

	return s.root + "/" + name
}

// fatFile adapts a *fat.File into the storage.File interface via
// Seek-then-Read/Write, since the library exposes an os.File-shaped
// sequential API rather than ReadAt/WriteAt.
type fatFile struct {
	f    *fat.File
	size int64
}

func (f *fatFile) ReadAt(buf []byte, offset int64) (int, error) {
	if _, err := f.f.Seek(offset, io.SeekStart); err != nil {
		return 0, err
	}

	return f.f.Read(buf)
}

func (f *fatFile) WriteAt(buf []byte, offset int64) (int, error) {
	if _, err := f.f.Seek(offset, io.SeekStart); err != nil {
		return 0, err
	}

	n, err := f.f.Write(buf)
	if n > 0 && offset+int64(n) > f.size {
		f.size = offset + int64(n)
	}

	return n, err
}

func (f *fatFile) Size() int64 {
	return f.size
}

func (f *fatFile) Close() error {
	return f.f.Close()
}

func (s *FATStore) openMode(writable bool) fs.FileMode {
	if writable {
		return fs.FileMode(fat.ModeRead | fat.ModeWrite)
	}

	return fs.FileMode(fat.ModeRead)
}

// Open opens an existing file, for read or read/write access.
func (s *FATStore) Open(name string, writable bool) (File, error) {
	var f fat.File

	if err := s.fsys.OpenFile(&f, s.path(name), s.openMode(writable)); err != nil {
		return nil, err
	}

	info, err := s.fsys.Stat(s.path(name))
	if err != nil {
		f.Close()
		return nil, err
	}

	return &fatFile{f: &f, size: info.Size()}, nil
}

// Create creates or truncates name with read/write access.
func (s *FATStore) Create(name string) (File, error) {
	var f fat.File

	mode := fs.FileMode(fat.ModeRead | fat.ModeWrite | fat.ModeCreate | fat.ModeTruncate)

	if err := s.fsys.OpenFile(&f, s.path(name), mode); err != nil {
		return nil, err
	}

	return &fatFile{f: &f}, nil
}

func (s *FATStore) Remove(name string) error {
	return s.fsys.Remove(s.path(name))
}

func (s *FATStore) Rename(oldName, newName string) error {
	return s.fsys.Rename(s.path(oldName), s.path(newName))
}

func (s *FATStore) Stat(name string) (fs.FileInfo, error) {
	return s.fsys.Stat(s.path(name))
}

func (s *FATStore) Chmod(name string, readOnly, hidden, system bool) error {
	var mode fs.FileMode

	if readOnly {
		mode |= fat.AttrReadOnly
	}

	if hidden {
		mode |= fat.AttrHidden
	}

	if system {
		mode |= fat.AttrSystem
	}

	return s.fsys.Chmod(s.path(name), mode)
}

func (s *FATStore) Chtimes(name string, t time.Time) error {
	return s.fsys.Chtimes(s.path(name), t, t)
}

func (s *FATStore) ReadDir(name string) ([]fs.DirEntry, error) {
	return fs.ReadDir(s.fsys, s.path(name))
}

func (s *FATStore) Mkdir(name string) error {
	return s.fsys.Mkdir(s.path(name), 0)
}

func (s *FATStore) Free() (freeClusters, totalClusters uint32, bytesPerSector uint16, sectorsPerCluster uint8, err error) {
	info, err := s.fsys.Info()
	if err != nil {
		return 0, 0, 0, 0, err
	}

	return info.FreeClusters, info.TotalClusters, info.BytesPerSector, info.SectorsPerCluster, nil
}
