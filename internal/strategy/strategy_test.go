package strategy

import (
	"testing"

	"github.com/arclane/archivekit"
	"github.com/stretchr/testify/require"
)

func TestDefaultRuleIsZstdLevel3(t *testing.T) {
	e := New(Config{})
	spec := e.Decide("a.txt", 2048, nil)
	require.Equal(t, archivekit.Zstd, spec.Algorithm)
	require.Equal(t, 3, spec.Level)
}

func TestAlreadyCompressedOverridesToStore(t *testing.T) {
	e := New(Config{})
	spec := e.Decide("pic.jpg", 1<<20, nil)
	require.Equal(t, archivekit.Store, spec.Algorithm)
}

func TestForceCompressOverridesAlreadyCompressed(t *testing.T) {
	e := New(Config{ForceCompress: true})
	spec := e.Decide("pic.jpg", 1<<20, nil)
	require.NotEqual(t, archivekit.Store, spec.Algorithm)
}

func TestSmallFileForcesStore(t *testing.T) {
	e := New(Config{})
	spec := e.Decide("tiny.bin", 10, nil)
	require.Equal(t, archivekit.Store, spec.Algorithm)
}

func TestFirstMatchingRuleWins(t *testing.T) {
	e := New(Config{Rules: []Rule{
		{Extensions: []string{"log"}, Algorithm: archivekit.Gzip, Level: 9},
		{Algorithm: archivekit.Brotli, Level: 5},
	}})
	spec := e.Decide("app.log", 4096, nil)
	require.Equal(t, archivekit.Gzip, spec.Algorithm)
	require.Equal(t, 9, spec.Level)
}

func TestXzAlwaysSingleThreaded(t *testing.T) {
	e := New(Config{Rules: []Rule{{Algorithm: archivekit.Xz, Level: 6}}})
	spec := e.Decide("a.tar", 4096, nil)
	require.Equal(t, 1, spec.Threads)
}

func TestLongWindowEnabledForLargeZstd(t *testing.T) {
	e := New(Config{EnableLongMode: true, LargeFileThreshold: 100})
	spec := e.Decide("big.bin", 4096, nil)
	require.True(t, spec.LongWindow)
}

func TestDecideExplicitReportsRuleMatchVsDefault(t *testing.T) {
	e := New(Config{Rules: []Rule{{Extensions: []string{"log"}, Algorithm: archivekit.Brotli}}})

	_, explicit := e.DecideExplicit("app.log", 4096, nil)
	require.True(t, explicit)

	_, explicit = e.DecideExplicit("app.txt", 4096, nil)
	require.False(t, explicit)
}

func TestDecideExplicitFalseWhenOverriddenByFloorOrAlreadyCompressed(t *testing.T) {
	e := New(Config{Rules: []Rule{{Algorithm: archivekit.Brotli}}})

	_, explicit := e.DecideExplicit("tiny.bin", 10, nil)
	require.False(t, explicit, "min-size floor should override an explicit rule's own answer")

	_, explicit = e.DecideExplicit("pic.jpg", 1<<20, nil)
	require.False(t, explicit, "already-compressed override should take precedence over an explicit rule")
}

func TestDeterministic(t *testing.T) {
	cfg := Config{Rules: []Rule{{Extensions: []string{"txt"}, Algorithm: archivekit.Gzip, Level: 5}}}
	e1 := New(cfg)
	e2 := New(cfg)
	require.Equal(t, e1.Decide("a.txt", 500, nil), e2.Decide("a.txt", 500, nil))
}
