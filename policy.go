package archivekit

// ConflictPolicy controls how the extract pipeline reacts when an
// entry's target path already exists.
type ConflictPolicy int

const (
	ConflictOverwrite ConflictPolicy = iota
	ConflictSkip
	ConflictRename
	ConflictInteractive
)

// InteractiveResponse is returned by the external prompt collaborator
// (spec §6) when ConflictInteractive is in effect.
type InteractiveResponse int

const (
	ResponseYes InteractiveResponse = iota
	ResponseNo
	ResponseAll
	ResponseNone
)

// ConflictPrompt is implemented by the CLI/GUI collaborator to resolve
// ConflictInteractive decisions. It is never called for other policies.
type ConflictPrompt interface {
	Resolve(path string) (InteractiveResponse, error)
}

// ExtractionPolicy governs path handling and conflict resolution
// during extraction.
type ExtractionPolicy struct {
	OnConflict      ConflictPolicy
	StripComponents int
	Hoist           bool
	FollowSymlinks  bool

	// BombRatio and BombMinBytes tune the compression-bomb guard
	// (spec §4.3.7). Zero values fall back to the documented defaults
	// of 1000:1 and 1 GiB.
	BombRatio    float64
	BombMinBytes int64

	Prompt ConflictPrompt
}

const (
	defaultBombRatio    = 1000.0
	defaultBombMinBytes = 1 << 30
)

// ResolvedBombRatio returns BombRatio, or the documented default of
// 1000:1 when unset.
func (p ExtractionPolicy) ResolvedBombRatio() float64 {
	if p.BombRatio > 0 {
		return p.BombRatio
	}
	return defaultBombRatio
}

// ResolvedBombMinBytes returns BombMinBytes, or the documented default
// of 1 GiB when unset.
func (p ExtractionPolicy) ResolvedBombMinBytes() int64 {
	if p.BombMinBytes > 0 {
		return p.BombMinBytes
	}
	return defaultBombMinBytes
}
