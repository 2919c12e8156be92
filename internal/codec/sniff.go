package codec

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/arclane/archivekit"
)

// magic bytes from spec §4.1.
var (
	magicGzip    = []byte{0x1F, 0x8B}
	magicXz      = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}
	magicZstd    = []byte{0x28, 0xB5, 0x2F, 0xFD}
	magicZip     = []byte{0x50, 0x4B, 0x03, 0x04}
	magicSevenZ  = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
)

// suffixCodec maps a filename suffix to an algorithm, used when
// present (spec Open Question 2: suffix wins over magic bytes).
var suffixCodec = map[string]archivekit.Algorithm{
	".gz":  archivekit.Gzip,
	".tgz": archivekit.Gzip,
	".zst": archivekit.Zstd,
	".xz":  archivekit.Xz,
	".br":  archivekit.Brotli,
}

var suffixContainer = map[string]archivekit.Container{
	".tar": archivekit.ContainerTar,
	".zip": archivekit.ContainerZip,
	".7z":  archivekit.ContainerSevenZip,
}

// DetectAlgorithm identifies the outer compression codec for filename,
// preferring the suffix and falling back to sniffing the first 6 bytes
// of header when the suffix is absent or unrecognized.
func DetectAlgorithm(filename string, header []byte) (archivekit.Algorithm, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	if algo, ok := suffixCodec[ext]; ok {
		return algo, true
	}

	switch {
	case bytes.HasPrefix(header, magicGzip):
		return archivekit.Gzip, true
	case bytes.HasPrefix(header, magicXz):
		return archivekit.Xz, true
	case bytes.HasPrefix(header, magicZstd):
		return archivekit.Zstd, true
	}
	return archivekit.Store, false
}

// DetectContainer identifies the archive container for filename,
// preferring the suffix (stripping a recognized compression suffix
// first, e.g. "a.tar.gz" -> "a.tar" -> tar) and falling back to magic
// bytes.
func DetectContainer(filename string, header []byte) (archivekit.Container, bool) {
	base := filename
	ext := strings.ToLower(filepath.Ext(base))
	if _, ok := suffixCodec[ext]; ok {
		base = strings.TrimSuffix(base, filepath.Ext(base))
		ext = strings.ToLower(filepath.Ext(base))
	}

	if c, ok := suffixContainer[ext]; ok {
		return c, true
	}

	switch {
	case bytes.HasPrefix(header, magicZip):
		return archivekit.ContainerZip, true
	case bytes.HasPrefix(header, magicSevenZ):
		return archivekit.ContainerSevenZip, true
	case bytes.HasPrefix(header, []byte{0x75, 0x73, 0x74, 0x61, 0x72}):
		// ustar magic lives at offset 257, not handled by the 6-byte
		// header sniff window; callers that need tar detection purely
		// from magic bytes should inspect the full 512-byte block.
		return archivekit.ContainerTar, true
	}
	return archivekit.ContainerTar, false
}
