// Package strategy implements the smart-compression rule engine (spec
// §4.4): map a candidate file's path, size and optional content sniff
// to a compression spec. Grounded in scttfrdmn-cargoship's Compressor
// (algorithm+level selection with pooled codecs), generalized here
// from one fixed algorithm into an ordered rule list.
package strategy

import (
	"path/filepath"
	"strings"

	"github.com/arclane/archivekit"
)

// Rule is a single ordered predicate->spec mapping (spec §3: "an
// ordered list of predicates"). A nil Extensions matches any
// extension; MinSize/MaxSize of 0 are treated as unbounded.
type Rule struct {
	Extensions []string // without the leading dot, lowercase
	MinSize    int64
	MaxSize    int64 // 0 means unbounded
	Algorithm  archivekit.Algorithm
	Level      int
}

func (r Rule) matches(ext string, size int64) bool {
	if len(r.Extensions) > 0 {
		found := false
		for _, e := range r.Extensions {
			if e == ext {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if size < r.MinSize {
		return false
	}
	if r.MaxSize > 0 && size > r.MaxSize {
		return false
	}
	return true
}

// Config bundles the tunables consumed from archivekit.Config (spec
// §6: "a structured record... consumed, not defined here").
type Config struct {
	Rules              []Rule
	DefaultLevel       int
	MinFileSize        int64
	ForceCompress      bool
	LargeFileThreshold int64
	EnableLongMode     bool
}

const (
	defaultMinFileSize        = 1024
	defaultLargeFileThreshold = 1 << 30 // 1 GiB
)

// alreadyCompressedExtensions is the "already-compressed" set from
// spec §4.4.3, overridden to Store unless ForceCompress is set.
var alreadyCompressedExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true,
	"mp4": true, "mkv": true, "mov": true, "avi": true,
	"mp3": true, "flac": true, "ogg": true, "m4a": true,
	"zip": true, "gz": true, "bz2": true, "xz": true, "zst": true, "7z": true, "rar": true, "br": true,
}

// Engine implements the deterministic strategy algorithm of spec
// §4.4: given the same ruleset and inputs, the output is stable.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	if cfg.MinFileSize == 0 {
		cfg.MinFileSize = defaultMinFileSize
	}
	if cfg.LargeFileThreshold == 0 {
		cfg.LargeFileThreshold = defaultLargeFileThreshold
	}
	return &Engine{cfg: cfg}
}

// Decide returns the compression spec for a candidate file. sniff may
// be nil; it is reserved for future content-based rules (spec §4.4
// input: "path, its size, optional first-4-KiB sniff") and is accepted
// here for forward compatibility even though no built-in rule
// currently inspects it.
func (e *Engine) Decide(path string, size int64, sniff []byte) archivekit.CompressionSpec {
	spec, _ := e.DecideExplicit(path, size, sniff)
	return spec
}

// DecideExplicit behaves like Decide, additionally reporting whether
// the returned algorithm came from a caller-authored Rule (true) or
// one of the engine's own fallbacks — the already-compressed
// override, the min-size floor, or the untuned default (false). Spec
// §4.2/§7 distinguishes these: a container/codec mismatch on a rule
// the caller explicitly wrote is an invalid configuration to reject,
// while the engine's own default Zstd pick is only ever auto-selected
// and gets silently reconciled to what the container can carry.
func (e *Engine) DecideExplicit(path string, size int64, sniff []byte) (archivekit.CompressionSpec, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))

	spec, explicit := e.decideRule(ext, size)

	if !e.cfg.ForceCompress && alreadyCompressedExtensions[ext] {
		spec = archivekit.CompressionSpec{Algorithm: archivekit.Store}
		explicit = false
	}

	if size < e.cfg.MinFileSize {
		spec = archivekit.CompressionSpec{Algorithm: archivekit.Store}
		explicit = false
	}

	if spec.Algorithm == archivekit.Zstd && size > e.cfg.LargeFileThreshold && e.cfg.EnableLongMode {
		spec.LongWindow = true
	}

	return spec.Normalize(), explicit
}

// decideRule runs step 1-2 of spec §4.4: first matching rule wins,
// otherwise a default rule of Zstd level 3. The bool reports whether
// a caller-authored Rule matched (true) or the untuned default applied
// (false).
func (e *Engine) decideRule(ext string, size int64) (archivekit.CompressionSpec, bool) {
	for _, r := range e.cfg.Rules {
		if r.matches(ext, size) {
			return archivekit.CompressionSpec{Algorithm: r.Algorithm, Level: r.Level}, true
		}
	}

	level := e.cfg.DefaultLevel
	if level == 0 {
		level = 3
	}
	return archivekit.CompressionSpec{Algorithm: archivekit.Zstd, Level: level}, false
}
