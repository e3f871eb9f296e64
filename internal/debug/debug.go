// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package debug is a thin, disable-by-default wrapper around log, used
// by the bridge and subsystem packages for bring-up tracing. Bare-metal
// tamago binaries route log's default writer to the serial console.
package debug

import "log"

// Enabled gates Printf. Off by default; no package in this module sets
// it.
var Enabled bool

// Printf logs via the standard logger when Enabled is true, otherwise
// it is a no-op.
func Printf(format string, args ...any) {
	if !Enabled {
		return
	}

	log.Printf(format, args...)
}
