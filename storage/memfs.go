// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package storage

import (
	"io/fs"
	"sort"
	"strings"
	"time"
)

// MemFS is an in-memory FS implementation used by package tests that
// exercise the responder and floppy engine without real SD-card
// hardware.
type MemFS struct {
	files map[string]*memFileData
}

type memFileData struct {
	data     []byte
	modTime  time.Time
	readOnly bool
	hidden   bool
	system   bool
	isDir    bool
}

// NewMemFS returns an empty MemFS.
func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string]*memFileData)}
}

func clean(name string) string {
	return strings.TrimPrefix(name, "/")
}

// Seed installs a file with the given contents, for test setup.
func (m *MemFS) Seed(name string, data []byte) {
	m.files[clean(name)] = &memFileData{data: append([]byte(nil), data...), modTime: time.Unix(0, 0)}
}

// SeedDir installs a directory marker, for test setup.
func (m *MemFS) SeedDir(name string) {
	m.files[clean(name)] = &memFileData{isDir: true, modTime: time.Unix(0, 0)}
}

type memFile struct {
	d *memFileData
}

func (f *memFile) ReadAt(buf []byte, offset int64) (int, error) {
	if offset >= int64(len(f.d.data)) {
		return 0, nil
	}

	n := copy(buf, f.d.data[offset:])

	return n, nil
}

func (f *memFile) WriteAt(buf []byte, offset int64) (int, error) {
	end := offset + int64(len(buf))

	if end > int64(len(f.d.data)) {
		grown := make([]byte, end)
		copy(grown, f.d.data)
		f.d.data = grown
	}

	copy(f.d.data[offset:end], buf)

	return len(buf), nil
}

func (f *memFile) Size() int64 {
	return int64(len(f.d.data))
}

func (f *memFile) Close() error {
	return nil
}

func (m *MemFS) Open(name string, writable bool) (File, error) {
	d, ok := m.files[clean(name)]
	if !ok {
		return nil, fs.ErrNotExist
	}

	return &memFile{d: d}, nil
}

func (m *MemFS) Create(name string) (File, error) {
	d := &memFileData{modTime: time.Unix(0, 0)}
	m.files[clean(name)] = d

	return &memFile{d: d}, nil
}

func (m *MemFS) Remove(name string) error {
	if _, ok := m.files[clean(name)]; !ok {
		return fs.ErrNotExist
	}

	delete(m.files, clean(name))

	return nil
}

func (m *MemFS) Rename(oldName, newName string) error {
	d, ok := m.files[clean(oldName)]
	if !ok {
		return fs.ErrNotExist
	}

	m.files[clean(newName)] = d
	delete(m.files, clean(oldName))

	return nil
}

type memFileInfo struct {
	name string
	d    *memFileData
}

func (i *memFileInfo) Name() string { return i.name }
func (i *memFileInfo) Size() int64  { return int64(len(i.d.data)) }
func (i *memFileInfo) Mode() fs.FileMode {
	if i.d.isDir {
		return fs.ModeDir
	}
	return 0
}
func (i *memFileInfo) ModTime() time.Time { return i.d.modTime }
func (i *memFileInfo) IsDir() bool        { return i.d.isDir }
func (i *memFileInfo) Sys() interface{}   { return nil }

func (m *MemFS) Stat(name string) (fs.FileInfo, error) {
	d, ok := m.files[clean(name)]
	if !ok {
		return nil, fs.ErrNotExist
	}

	base := name
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		base = name[i+1:]
	}

	return &memFileInfo{name: base, d: d}, nil
}

func (m *MemFS) Chmod(name string, readOnly, hidden, system bool) error {
	d, ok := m.files[clean(name)]
	if !ok {
		return fs.ErrNotExist
	}

	d.readOnly = readOnly
	d.hidden = hidden
	d.system = system

	return nil
}

func (m *MemFS) Chtimes(name string, t time.Time) error {
	d, ok := m.files[clean(name)]
	if !ok {
		return fs.ErrNotExist
	}

	d.modTime = t

	return nil
}

type memDirEntry struct {
	info *memFileInfo
}

func (e *memDirEntry) Name() string               { return e.info.Name() }
func (e *memDirEntry) IsDir() bool                 { return e.info.IsDir() }
func (e *memDirEntry) Type() fs.FileMode           { return e.info.Mode().Type() }
func (e *memDirEntry) Info() (fs.FileInfo, error)  { return e.info, nil }

func (m *MemFS) ReadDir(name string) ([]fs.DirEntry, error) {
	prefix := clean(name)
	if prefix != "" {
		prefix += "/"
	}

	var entries []fs.DirEntry

	for path, d := range m.files {
		if !strings.HasPrefix(path, prefix) {
			continue
		}

		rest := path[len(prefix):]
		if rest == "" || strings.Contains(rest, "/") {
			continue
		}

		entries = append(entries, &memDirEntry{info: &memFileInfo{name: rest, d: d}})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	return entries, nil
}

func (m *MemFS) Mkdir(name string) error {
	m.files[clean(name)] = &memFileData{isDir: true, modTime: time.Unix(0, 0)}
	return nil
}

func (m *MemFS) Free() (freeClusters, totalClusters uint32, bytesPerSector uint16, sectorsPerCluster uint8, err error) {
	return 1000, 2000, 512, 4, nil
}
