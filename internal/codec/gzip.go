package codec

import (
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// gzipWriterPools is keyed by level since klauspost's gzip.Writer
// cannot change level on Reset, mirroring the level-keyed pool pattern
// fastzip's register.go uses for pooled flate writers.
var gzipWriterPools sync.Map // map[int]*sync.Pool

func gzipWriterPool(level int) *sync.Pool {
	if p, ok := gzipWriterPools.Load(level); ok {
		return p.(*sync.Pool)
	}
	pool := &sync.Pool{
		New: func() interface{} {
			gw, err := gzip.NewWriterLevel(io.Discard, level)
			if err != nil {
				panic(err)
			}
			return gw
		},
	}
	actual, _ := gzipWriterPools.LoadOrStore(level, pool)
	return actual.(*sync.Pool)
}

type pooledGzipWriter struct {
	pool *sync.Pool
	gw   *gzip.Writer
}

func (p *pooledGzipWriter) Write(b []byte) (int, error) { return p.gw.Write(b) }

func (p *pooledGzipWriter) Close() error {
	err := p.gw.Close()
	p.pool.Put(p.gw)
	return err
}

func newGzipWriter(w io.Writer, level int) (Writer, error) {
	if level < gzip.NoCompression || level > gzip.BestCompression {
		return nil, fmt.Errorf("codec: invalid gzip level %d", level)
	}

	pool := gzipWriterPool(level)
	gw := pool.Get().(*gzip.Writer)
	gw.Reset(w)
	return &pooledGzipWriter{pool: pool, gw: gw}, nil
}

var gzipReaderPool = sync.Pool{
	New: func() interface{} {
		gr, _ := gzip.NewReader(nil)
		return gr
	},
}

type pooledGzipReader struct {
	gr *gzip.Reader
}

func (p *pooledGzipReader) Read(b []byte) (int, error) { return p.gr.Read(b) }

func (p *pooledGzipReader) Close() error {
	err := p.gr.Close()
	gzipReaderPool.Put(p.gr)
	return err
}

func newGzipReader(r io.Reader) (Reader, error) {
	v := gzipReaderPool.Get()
	gr, _ := v.(*gzip.Reader)
	if gr == nil {
		var err error
		gr, err = gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return &pooledGzipReader{gr: gr}, nil
	}
	if err := gr.Reset(r); err != nil {
		return nil, err
	}
	return &pooledGzipReader{gr: gr}, nil
}
