// Path and short-name translation
// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package fsname translates between the target's DOS-flavored path and
// attribute conventions and the microcontroller-side filesystem library's
// native ones: slash normalization, path composition, 8.3 short-name
// coercion, and attribute bit mapping.
package fsname

import (
	"io/fs"
	"strings"
)

// NormalizeSlashes converts every backslash to a forward slash.
func NormalizeSlashes(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

// DenormalizeSlashes is the inverse of NormalizeSlashes.
func DenormalizeSlashes(path string) string {
	return strings.ReplaceAll(path, "/", `\`)
}

// CollapseSlashes replaces every run of '/' with a single '/'.
func CollapseSlashes(path string) string {
	var b strings.Builder
	b.Grow(len(path))

	prevSlash := false

	for _, r := range path {
		if r == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}

		b.WriteRune(r)
	}

	return b.String()
}

// StripTrailingSlash removes a single trailing '/' or '\', if present.
func StripTrailingSlash(path string) string {
	if n := len(path); n > 0 && (path[n-1] == '/' || path[n-1] == '\\') {
		return path[:n-1]
	}

	return path
}

// HasDrivePrefix reports whether path starts with "X:" for the given
// drive letter, case-insensitive.
func HasDrivePrefix(path string, drive byte) bool {
	if len(path) < 2 || path[1] != ':' {
		return false
	}

	return toUpperByte(path[0]) == toUpperByte(drive)
}

// StripDrivePrefix removes a leading "X:" drive prefix, if present.
func StripDrivePrefix(path string) string {
	if len(path) >= 2 && path[1] == ':' {
		return path[2:]
	}

	return path
}

// IsAbsolute reports whether path is rooted: starts with '/' or '\', or
// carries a drive prefix.
func IsAbsolute(path string) bool {
	if len(path) == 0 {
		return false
	}

	if path[0] == '/' || path[0] == '\\' {
		return true
	}

	return len(path) >= 2 && path[1] == ':'
}

// Compose builds the microcontroller-side absolute path as
// root/defaultPath/request. The default-path segment is ignored when
// request is absolute or carries the given drive prefix. The result is
// collapsed and has no trailing slash.
func Compose(root, defaultPath string, drive byte, request string) string {
	request = NormalizeSlashes(request)

	var joined string

	switch {
	case HasDrivePrefix(request, drive):
		joined = root + "/" + StripDrivePrefix(request)
	case len(request) > 0 && request[0] == '/':
		joined = root + "/" + request
	default:
		joined = root + "/" + NormalizeSlashes(defaultPath) + "/" + request
	}

	joined = CollapseSlashes(joined)
	joined = StripTrailingSlash(joined)

	return joined
}

// Normalize resolves "." and ".." segments in path, bounded to at most
// maxSegments path components to guard against pathological input.
func Normalize(path string, maxSegments int) string {
	leadingSlash := strings.HasPrefix(path, "/")

	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))

	for i, p := range parts {
		if i >= maxSegments {
			break
		}

		switch p {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, p)
		}
	}

	result := strings.Join(out, "/")

	if leadingSlash {
		result = "/" + result
	}

	return result
}

// allowedPunctuation is the fixed punctuation set permitted in DOS names,
// beyond [A-Z0-9].
const allowedPunctuation = "!#$%&'()-@^_`{}~."

// FilterName drops every rune not in [A-Z0-9] (case-insensitive) or the
// fixed punctuation set.
func FilterName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune(allowedPunctuation, r):
			b.WriteRune(r)
		}
	}

	return b.String()
}

// UpperName uppercases the ASCII letters of name.
func UpperName(name string) string {
	return strings.ToUpper(name)
}

// ShortName coerces an arbitrary filename into DOS 8.3 short-name form:
// split on the last '.', truncate the base to 8 characters and the
// extension to 3, replace invalid characters with '_', trim trailing
// spaces and dots, and uppercase. A base truncated beyond 8 characters
// gets a "~1" suffix in its last two positions.
//
// ShortName is idempotent: ShortName(ShortName(x)) == ShortName(x).
func ShortName(name string) string {
	base, ext := splitExt(name)

	base = sanitize83(base)
	ext = sanitize83(ext)

	truncated := len(base) > 8

	if len(base) > 8 {
		base = base[:8]
	}

	if len(ext) > 3 {
		ext = ext[:3]
	}

	if truncated && len(base) >= 2 {
		base = base[:len(base)-2] + "~1"
	}

	base = strings.ToUpper(base)
	ext = strings.ToUpper(ext)

	if ext == "" {
		return base
	}

	return base + "." + ext
}

// splitExt splits name at its last '.', returning base and extension
// without the dot. A name with no dot has an empty extension.
func splitExt(name string) (base, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return name, ""
	}

	return name[:i], name[i+1:]
}

// sanitize83 replaces characters invalid in a DOS 8.3 component with '_'
// and trims trailing spaces and dots.
func sanitize83(s string) string {
	s = strings.TrimRight(s, " .")

	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune("!#$%&'()-@^_`{}~", r):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	return strings.TrimRight(b.String(), " .")
}

func toUpperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}

	return b
}

// Attribute bits as seen by the target OS.
const (
	AttrReadOnly = 1 << iota
	AttrHidden
	AttrSystem
	AttrVolumeLabel
	AttrDirectory
	AttrArchive
)

// ToTargetAttr translates a fs.FileMode into the target's attribute bit
// set. Unmapped bits (anything beyond R/H/S/D/A) are dropped.
func ToTargetAttr(mode fs.FileMode, readOnly, hidden, system bool) byte {
	var attr byte

	if readOnly {
		attr |= AttrReadOnly
	}

	if hidden {
		attr |= AttrHidden
	}

	if system {
		attr |= AttrSystem
	}

	if mode.IsDir() {
		attr |= AttrDirectory
	}

	if mode&(1<<9) != 0 {
		attr |= AttrArchive
	}

	return attr
}

// ArchiveBit reports whether the archive bit is set in a target
// attribute byte; used by callers that need to feed it back into a
// library chmod call alongside read-only/hidden/system.
func ArchiveBit(attr byte) bool {
	return attr&AttrArchive != 0
}

// IsReadOnly, IsHidden, IsSystem, IsDirectory, IsVolumeLabel report the
// individual target attribute bits.
func IsReadOnly(attr byte) bool    { return attr&AttrReadOnly != 0 }
func IsHidden(attr byte) bool      { return attr&AttrHidden != 0 }
func IsSystem(attr byte) bool      { return attr&AttrSystem != 0 }
func IsDirectory(attr byte) bool   { return attr&AttrDirectory != 0 }
func IsVolumeLabel(attr byte) bool { return attr&AttrVolumeLabel != 0 }

// AttrString renders the fixed 6-character "RHSLDA" human form, with a
// dash in place of every cleared bit, for logging.
func AttrString(attr byte) string {
	letters := [6]byte{'R', 'H', 'S', 'L', 'D', 'A'}
	bits := [6]byte{AttrReadOnly, AttrHidden, AttrSystem, AttrVolumeLabel, AttrDirectory, AttrArchive}

	out := make([]byte, 6)

	for i := range letters {
		if attr&bits[i] != 0 {
			out[i] = letters[i]
		} else {
			out[i] = '-'
		}
	}

	return string(out)
}

// MatchPattern reports whether name (case-insensitive) matches a DOS
// glob pattern using '?' (exactly one character) and '*' (any run,
// including empty). Recursion on '*' is bounded by maxWildcards to
// guard against pathological patterns.
func MatchPattern(pattern, name string, maxWildcards int) bool {
	return matchPattern(strings.ToUpper(pattern), strings.ToUpper(name), maxWildcards)
}

func matchPattern(pattern, name string, budget int) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			if budget <= 0 {
				return false
			}

			// try every possible split point; '*' may match zero
			// characters.
			for i := 0; i <= len(name); i++ {
				if matchPattern(pattern[1:], name[i:], budget-1) {
					return true
				}
			}

			return false

		case '?':
			if len(name) == 0 {
				return false
			}

			pattern = pattern[1:]
			name = name[1:]

		default:
			if len(name) == 0 || pattern[0] != name[0] {
				return false
			}

			pattern = pattern[1:]
			name = name[1:]
		}
	}

	return len(name) == 0
}
