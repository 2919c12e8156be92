package progress

import (
	"context"
	"io"
)

// chunkSize is the minimum interval, in bytes, at which a CancelReader
// re-checks its context (spec §4.9: "at chunk boundaries (>= every 1 MiB)").
const chunkSize = 1 << 20

// CancelReader wraps r so that ctx is polled at least once per MiB of
// data read, letting large file bodies unwind promptly on cancellation
// without paying the cost of a context check per small read.
type CancelReader struct {
	ctx      context.Context
	r        io.Reader
	sinceErr int64
}

// NewCancelReader returns a reader that forwards to r but returns
// ctx.Err() once cancellation is observed, checked at chunk boundaries.
func NewCancelReader(ctx context.Context, r io.Reader) *CancelReader {
	return &CancelReader{ctx: ctx, r: r}
}

func (c *CancelReader) Read(p []byte) (int, error) {
	if c.sinceErr >= chunkSize {
		c.sinceErr = 0
		if err := c.ctx.Err(); err != nil {
			return 0, err
		}
	}

	n, err := c.r.Read(p)
	c.sinceErr += int64(n)
	return n, err
}
