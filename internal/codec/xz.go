package codec

import (
	"io"

	"github.com/ulikunitz/xz"
)

// xzDictCap maps the spec's level scale [0,9] onto ulikunitz/xz's
// dictionary capacity, the knob that actually drives its LZMA2
// compression ratio/speed tradeoff; xz.NewWriter's simple constructor
// provides no level parameter, so WriterConfig is used instead.
func xzDictCap(level int) int {
	switch {
	case level <= 0:
		return 1 << 20 // 1 MiB
	case level >= 9:
		return 64 << 20 // 64 MiB
	default:
		return (1 << 20) << uint(level)
	}
}

// xz is deliberately single-threaded regardless of what the caller
// requested (spec §4.1: "must be single-threaded for correctness/
// stability"); CompressionSpec.Normalize already clamps Threads, and
// ulikunitz/xz's writer has no concurrency knob to even misuse.
func newXzWriter(w io.Writer, level int) (Writer, error) {
	cfg := xz.WriterConfig{DictCap: xzDictCap(level)}
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	xw, err := cfg.NewWriter(w)
	if err != nil {
		return nil, err
	}
	return xw, nil
}

func newXzReader(r io.Reader) (Reader, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(xr), nil
}
