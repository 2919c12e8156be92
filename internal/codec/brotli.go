package codec

import (
	"io"
	"sync"

	"github.com/andybalholm/brotli"
)

var brotliWriterPools sync.Map // map[int]*sync.Pool

func brotliWriterPool(level int) *sync.Pool {
	if p, ok := brotliWriterPools.Load(level); ok {
		return p.(*sync.Pool)
	}
	pool := &sync.Pool{
		New: func() interface{} {
			return brotli.NewWriterLevel(io.Discard, level)
		},
	}
	actual, _ := brotliWriterPools.LoadOrStore(level, pool)
	return actual.(*sync.Pool)
}

type pooledBrotliWriter struct {
	pool *sync.Pool
	bw   *brotli.Writer
}

func (p *pooledBrotliWriter) Write(b []byte) (int, error) { return p.bw.Write(b) }

func (p *pooledBrotliWriter) Close() error {
	err := p.bw.Close()
	p.pool.Put(p.bw)
	return err
}

func newBrotliWriter(w io.Writer, level int) (Writer, error) {
	if level < 0 {
		level = 0
	}
	if level > 11 {
		level = 11
	}

	pool := brotliWriterPool(level)
	bw := pool.Get().(*brotli.Writer)
	bw.Reset(w)
	return &pooledBrotliWriter{pool: pool, bw: bw}, nil
}

func newBrotliReader(r io.Reader) Reader {
	return io.NopCloser(brotli.NewReader(r))
}
