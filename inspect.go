package archivekit

import (
	"fmt"
	"os"

	"github.com/arclane/archivekit/internal/codec"
	"github.com/arclane/archivekit/internal/container"
	"github.com/arclane/archivekit/internal/inspectpipe"
)

// EntryInfo describes one archive entry without extracting its body
// (spec §4.10/C10).
type EntryInfo = inspectpipe.EntryInfo

// Inspect enumerates every entry in the archive at archivePath without
// writing anything to disk (spec §3: "inspect(A) == inspect(A)
// byte-for-byte on JSON output" — the result is naturally deterministic
// since container entry order is deterministic).
func Inspect(archivePath string) ([]EntryInfo, error) {
	header := make([]byte, 6)
	hf, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q: %w", ErrIO, archivePath, err)
	}
	n, _ := hf.Read(header)
	hf.Close()

	c, ok := codec.DetectContainer(archivePath, header[:n])
	if !ok {
		return nil, fmt.Errorf("%w: cannot determine container format for %q", ErrFormat, archivePath)
	}

	probe, hint, err := openContainerReader(archivePath, c)
	if err != nil {
		return nil, err
	}
	probe.Close()

	return inspectpipe.Run(inspectpipe.Options{
		NewReader: func() (container.Reader, error) {
			rd, _, err := openContainerReader(archivePath, c)
			return rd, err
		},
		Container:      c,
		OuterAlgorithm: hint.algo,
	})
}
