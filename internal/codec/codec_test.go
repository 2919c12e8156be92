package codec

import (
	"bytes"
	"io"
	"testing"

	"github.com/arclane/archivekit"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 2000)

	specs := []archivekit.CompressionSpec{
		{Algorithm: archivekit.Store},
		{Algorithm: archivekit.Gzip, Level: 6},
		{Algorithm: archivekit.Zstd, Level: 3},
		{Algorithm: archivekit.Xz, Level: 6},
		{Algorithm: archivekit.Brotli, Level: 5},
	}

	for _, spec := range specs {
		spec := spec
		t.Run(spec.Algorithm.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, spec)
			require.NoError(t, err)
			_, err = w.Write(payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			r, err := NewReader(&buf, spec.Algorithm)
			require.NoError(t, err)
			defer r.Close()

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			require.Equal(t, payload, got)
		})
	}
}

func TestXzThreadClamp(t *testing.T) {
	spec := archivekit.CompressionSpec{Algorithm: archivekit.Xz, Level: 6, Threads: 8}
	require.Equal(t, 1, spec.Normalize().Threads)
}

func TestDetectAlgorithmSuffixWinsOverMagic(t *testing.T) {
	algo, ok := DetectAlgorithm("data.gz", []byte{0x28, 0xB5, 0x2F, 0xFD})
	require.True(t, ok)
	require.Equal(t, archivekit.Gzip, algo)
}

func TestDetectAlgorithmMagicFallback(t *testing.T) {
	algo, ok := DetectAlgorithm("data.bin", []byte{0x28, 0xB5, 0x2F, 0xFD, 0, 0})
	require.True(t, ok)
	require.Equal(t, archivekit.Zstd, algo)
}
