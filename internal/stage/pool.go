// Package stage provides a small pool of memory-then-disk-spillover
// buffers used to let worker goroutines read and stage entry bodies
// concurrently while a single goroutine appends them to the container
// in order (spec §4.5: "the container writer is single-consumer").
//
// This is an adaptation of saracen/fastzip's internal/filepool, which
// buffered ZIP entry bodies so their CRC32/size could be computed
// before the local file header was finalized. That CRC32-specific
// purpose doesn't apply outside ZIP, but the core idea — a bounded
// pool of reusable buffers that spill to a scratch file past a size
// threshold — generalizes directly to staging uncompressed entry bodies for any
// container while keeping peak memory bounded.
package stage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrPoolSizeLessThanZero is returned by New when poolSize <= 0.
var ErrPoolSizeLessThanZero = errors.New("stage: pool size must be greater than zero")

const defaultBufferSize = 2 * 1024 * 1024

type closeErrors []error

func (e closeErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	for _, err := range e {
		sb.WriteString(err.Error() + "\n")
	}
	return sb.String()
}

// Pool is a fixed-size pool of Buffers.
type Pool struct {
	buffers []*Buffer
	limiter chan int
}

// New returns a Pool of poolSize buffers, each backed first by an
// in-memory region of bufferSize bytes and, beyond that, by a scratch
// file created under dir on first overflow.
func New(dir string, poolSize, bufferSize int) (*Pool, error) {
	if poolSize <= 0 {
		return nil, ErrPoolSizeLessThanZero
	}
	if bufferSize < 0 {
		bufferSize = defaultBufferSize
	}

	p := &Pool{
		buffers: make([]*Buffer, poolSize),
		limiter: make(chan int, poolSize),
	}
	for i := range p.buffers {
		p.buffers[i] = newBuffer(dir, i, bufferSize)
		p.limiter <- i
	}
	return p, nil
}

// Get blocks until a Buffer is available.
func (p *Pool) Get() *Buffer {
	idx := <-p.limiter
	return p.buffers[idx]
}

// Put returns a Buffer to the pool after resetting it.
func (p *Pool) Put(b *Buffer) {
	b.reset()
	p.limiter <- b.idx
}

// Close removes every scratch file the pool created.
func (p *Pool) Close() error {
	var errs closeErrors
	for _, b := range p.buffers {
		if b == nil || b.f == nil {
			continue
		}
		if err := b.f.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := os.Remove(b.f.Name()); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	p.buffers = nil
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Buffer is a write-then-read, memory-then-disk-spillover scratch
// area for one in-flight entry's uncompressed body.
type Buffer struct {
	dir  string
	idx  int
	w, r int64
	mem  []byte
	memN int
	f    *os.File
}

func newBuffer(dir string, idx, memN int) *Buffer {
	return &Buffer{dir: dir, idx: idx, memN: memN}
}

func (b *Buffer) Write(p []byte) (n int, err error) {
	if b.mem == nil && b.memN > 0 {
		b.mem = make([]byte, b.memN)
	}

	if b.w < int64(len(b.mem)) {
		n = copy(b.mem[b.w:], p)
		p = p[n:]
		b.w += int64(n)
	}

	if len(p) > 0 {
		if b.f == nil {
			b.f, err = os.CreateTemp(b.dir, fmt.Sprintf("archivekit-stage-%02d-*", b.idx))
			if err != nil {
				return n, err
			}
		}
		bn := n
		var wn int
		wn, err = b.f.WriteAt(p, b.w-int64(len(b.mem)))
		b.w += int64(wn)
		n = bn + wn
		if err != nil {
			return n, err
		}
	}

	return n, nil
}

func (b *Buffer) Read(p []byte) (n int, err error) {
	remaining := b.w - b.r
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	if b.r < int64(len(b.mem)) {
		n = copy(p, b.mem[b.r:])
		b.r += int64(n)
		p = p[n:]
	}

	if len(p) > 0 && b.r >= int64(len(b.mem)) {
		bn := n
		var rn int
		rn, err = b.f.ReadAt(p, b.r-int64(len(b.mem)))
		b.r += int64(rn)
		n = bn + rn
	}

	return n, err
}

// Len reports the number of bytes written so far.
func (b *Buffer) Len() int64 { return b.w }

func (b *Buffer) reset() {
	b.w, b.r = 0, 0
	if b.f != nil {
		b.f.Truncate(0)
	}
}
