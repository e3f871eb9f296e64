// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package config

import "testing"

func TestStaticDefaults(t *testing.T) {
	s := NewStatic()

	if s.GetBool(FileSystemEnabled) {
		t.Error("expected default false for an unset bool key")
	}

	if s.GetString(FileSystemRoot) != "" {
		t.Error("expected default empty string for an unset string key")
	}

	if s.GetInt(FloppyBootEnabled) != 0 {
		t.Error("expected default zero for an unset int key")
	}
}

func TestStaticSetAndGet(t *testing.T) {
	s := NewStatic()

	s.Bools[FileSystemEnabled] = true
	s.Strings[FileSystemRoot] = "/sd/c"
	s.Strings[FloppyDriveA] = "game.st.rw"

	if !s.GetBool(FileSystemEnabled) {
		t.Error("expected true after setting FileSystemEnabled")
	}

	if s.GetString(FileSystemRoot) != "/sd/c" {
		t.Errorf("got %q, want /sd/c", s.GetString(FileSystemRoot))
	}

	if s.GetString(FloppyDriveA) != "game.st.rw" {
		t.Errorf("got %q, want game.st.rw", s.GetString(FloppyDriveA))
	}
}
