// https://github.com/usbarmory/tamago-cartbridge
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package fsname

import "testing"

func TestCollapseSlashesIdempotentAndNonIncreasing(t *testing.T) {
	cases := []string{"a//b", "a///b//c", "//", "a/b/c", ""}

	for _, c := range cases {
		once := CollapseSlashes(c)
		twice := CollapseSlashes(once)

		if once != twice {
			t.Errorf("CollapseSlashes(%q) not idempotent: %q then %q", c, once, twice)
		}

		if len(once) > len(c) {
			t.Errorf("CollapseSlashes(%q) grew: %q", c, once)
		}
	}
}

func TestStripTrailingSlash(t *testing.T) {
	if got := StripTrailingSlash("/a/b/"); got != "/a/b" {
		t.Errorf("got %q, want /a/b", got)
	}

	if got := StripTrailingSlash(`a\b\`); got != `a\b` {
		t.Errorf("got %q, want a\\b", got)
	}

	if got := StripTrailingSlash("a/b"); got != "a/b" {
		t.Errorf("got %q, want a/b unchanged", got)
	}
}

func TestComposeAbsoluteIgnoresDefaultPath(t *testing.T) {
	got := Compose("/sd/c", "games/current", 'C', "/DATA/FILE.TXT")
	want := "/sd/c/DATA/FILE.TXT"

	if got != want {
		t.Errorf("Compose = %q, want %q", got, want)
	}
}

func TestComposeDrivePrefixIgnoresDefaultPath(t *testing.T) {
	got := Compose("/sd/c", "games/current", 'C', "C:/DATA/FILE.TXT")
	want := "/sd/c/DATA/FILE.TXT"

	if got != want {
		t.Errorf("Compose = %q, want %q", got, want)
	}
}

func TestComposeRelativeUsesDefaultPath(t *testing.T) {
	got := Compose("/sd/c", "games/current", 'C', "FILE.TXT")
	want := "/sd/c/games/current/FILE.TXT"

	if got != want {
		t.Errorf("Compose = %q, want %q", got, want)
	}
}

func TestNormalizeDotDot(t *testing.T) {
	got := Normalize("/a/b/../c/./d", 32)
	want := "/a/c/d"

	if got != want {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}

func TestShortNameIdempotent(t *testing.T) {
	cases := []string{
		"readme.txt",
		"averylongfilename.html",
		"a b#c.d",
		"noext",
		"...leadingdots.c",
		"x.y.z",
	}

	for _, c := range cases {
		once := ShortName(c)
		twice := ShortName(once)

		if once != twice {
			t.Errorf("ShortName(%q) not idempotent: %q then %q", c, once, twice)
		}
	}
}

func TestShortNameTruncationSuffix(t *testing.T) {
	got := ShortName("averylongfilename.html")

	if len(got) > 12 {
		t.Fatalf("ShortName = %q, longer than 8.3", got)
	}

	base, ext := splitExt(got)

	if len(base) != 8 {
		t.Errorf("base = %q, want 8 chars", base)
	}

	if base[len(base)-2:] != "~1" {
		t.Errorf("base = %q, want ~1 suffix", base)
	}

	if ext != "HTM" {
		t.Errorf("ext = %q, want HTM", ext)
	}
}

func TestAttrStringAndBijection(t *testing.T) {
	for attr := byte(0); attr < 32; attr++ {
		s := AttrString(attr)

		if len(s) != 6 {
			t.Fatalf("AttrString(%#x) length = %d, want 6", attr, len(s))
		}

		roundtrip := byte(0)
		if IsReadOnly(attr) {
			roundtrip |= AttrReadOnly
		}
		if IsHidden(attr) {
			roundtrip |= AttrHidden
		}
		if IsSystem(attr) {
			roundtrip |= AttrSystem
		}
		if IsDirectory(attr) {
			roundtrip |= AttrDirectory
		}
		if IsVolumeLabel(attr) {
			roundtrip |= AttrVolumeLabel
		}
		if ArchiveBit(attr) {
			roundtrip |= AttrArchive
		}

		if roundtrip != attr&0x3F {
			t.Errorf("bit round trip for %#x = %#x, want %#x", attr, roundtrip, attr&0x3F)
		}
	}
}

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		pattern, name string
		want          bool
	}{
		{"*.TXT", "A.TXT", true},
		{"*.TXT", "A.DOC", false},
		{"A?.TXT", "AB.TXT", true},
		{"A?.TXT", "ABC.TXT", false},
		{"*", "ANYTHING.TXT", true},
		{"*.*", "NOEXT", false},
		{"readme.txt", "README.TXT", true},
	}

	for _, c := range cases {
		if got := MatchPattern(c.pattern, c.name, 8); got != c.want {
			t.Errorf("MatchPattern(%q, %q) = %v, want %v", c.pattern, c.name, got, c.want)
		}
	}
}
