// Configuration store
// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package config narrows the board's settings persistence collaborator
// to the small set of keys the file-system and floppy subsystems
// consume.
package config

// Recognized configuration keys.
const (
	FileSystemEnabled    = "file-system enabled"
	FileSystemRoot       = "file-system root folder"
	FileSystemDriveLetter = "file-system drive letter"
	FileSystemReadOnly   = "file-system read-only"

	FloppyEnabled       = "floppy enabled"
	FloppyFolder        = "floppy folder"
	FloppyDriveA        = "floppy drive A"
	FloppyDriveB        = "floppy drive B"
	FloppyBootEnabled   = "floppy boot enabled"
	FloppyXBIOSTrap     = "floppy XBIOS trap enabled"
)

// Store is the narrow settings-persistence interface the board init
// glue reads from. A production binary backs it with a real key/value
// store; Static below serves bring-up and tests.
type Store interface {
	GetBool(key string) bool
	GetString(key string) string
	GetInt(key string) int
}

// Static is a map-backed Store for bring-up and tests.
type Static struct {
	Bools   map[string]bool
	Strings map[string]string
	Ints    map[string]int
}

// NewStatic returns an empty Static store.
func NewStatic() *Static {
	return &Static{
		Bools:   make(map[string]bool),
		Strings: make(map[string]string),
		Ints:    make(map[string]int),
	}
}

func (s *Static) GetBool(key string) bool {
	return s.Bools[key]
}

func (s *Static) GetString(key string) string {
	return s.Strings[key]
}

func (s *Static) GetInt(key string) int {
	return s.Ints[key]
}
