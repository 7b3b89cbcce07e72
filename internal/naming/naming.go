// Package naming derives output file names and validates manifest-supplied
// file names. Manifest cells are untrusted input: a value containing path
// separators could escape the source directory, so every stage checks
// [SafeBase] before joining paths.
package naming

import (
	"path/filepath"
	"strings"
)

// WavExt is the waveform extension every stage expects.
const WavExt = ".wav"

// IsWavName reports whether filename names a .wav file.
func IsWavName(filename string) bool {
	return strings.HasSuffix(filename, WavExt)
}

// SafeBase reports whether filename is a bare file name: non-empty, no path
// separators, and not a dot path.
func SafeBase(filename string) bool {
	if filename == "" || filename == "." || filename == ".." {
		return false
	}
	if strings.ContainsAny(filename, `/\`) {
		return false
	}
	return filename == filepath.Base(filename)
}

// DerivedName returns the output name for a source file and transform
// suffix: the suffix is inserted before the extension, e.g.
// ("a.wav", "_2x") -> "a_2x.wav".
func DerivedName(filename, suffix string) string {
	ext := filepath.Ext(filename)
	return strings.TrimSuffix(filename, ext) + suffix + ext
}

// ReplaceExt swaps the extension of filename, e.g. ("a.webm", ".wav") ->
// "a.wav". Files without an extension get newExt appended.
func ReplaceExt(filename, newExt string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + newExt
}
