package codec

import (
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

type zstdWriterKey struct {
	level int
	long  bool
}

var zstdWriterPools sync.Map // map[zstdWriterKey]*sync.Pool

func zstdWriterPool(key zstdWriterKey) *sync.Pool {
	if p, ok := zstdWriterPools.Load(key); ok {
		return p.(*sync.Pool)
	}
	pool := &sync.Pool{
		New: func() interface{} {
			opts := []zstd.EOption{
				zstd.WithEncoderLevel(zstd.EncoderLevel(key.level)),
				zstd.WithEncoderCRC(false),
			}
			if key.long {
				opts = append(opts, zstd.WithWindowSize(1<<27))
			}
			enc, err := zstd.NewWriter(nil, opts...)
			if err != nil {
				panic(err)
			}
			return enc
		},
	}
	actual, _ := zstdWriterPools.LoadOrStore(key, pool)
	return actual.(*sync.Pool)
}

type pooledZstdWriter struct {
	pool *sync.Pool
	enc  *zstd.Encoder
}

func (p *pooledZstdWriter) Write(b []byte) (int, error) { return p.enc.Write(b) }

func (p *pooledZstdWriter) Close() error {
	err := p.enc.Close()
	p.pool.Put(p.enc)
	return err
}

// zstdLevel maps the spec's [-7, 22] integer scale onto klauspost's
// named encoder levels; the library itself only exposes four discrete
// tiers, so we bucket the requested level into the nearest one.
func zstdLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 1:
		return zstd.SpeedFastest
	case level <= 6:
		return zstd.SpeedDefault
	case level <= 12:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func newZstdWriter(w io.Writer, level int, longWindow bool) (Writer, error) {
	if level < -7 || level > 22 {
		return nil, fmt.Errorf("codec: invalid zstd level %d", level)
	}

	key := zstdWriterKey{level: int(zstdLevel(level)), long: longWindow}
	pool := zstdWriterPool(key)
	enc := pool.Get().(*zstd.Encoder)
	enc.Reset(w)
	return &pooledZstdWriter{pool: pool, enc: enc}, nil
}

var zstdReaderPool = sync.Pool{
	New: func() interface{} {
		dec, _ := zstd.NewReader(nil,
			zstd.WithDecoderLowmem(true),
			zstd.WithDecoderMaxWindow(128<<20),
			zstd.WithDecoderConcurrency(1))
		return dec
	},
}

type pooledZstdReader struct {
	dec *zstd.Decoder
}

func (p *pooledZstdReader) Read(b []byte) (int, error) { return p.dec.Read(b) }

func (p *pooledZstdReader) Close() error {
	err := p.dec.Reset(nil)
	zstdReaderPool.Put(p.dec)
	return err
}

func newZstdReader(r io.Reader) (Reader, error) {
	dec := zstdReaderPool.Get().(*zstd.Decoder)
	if err := dec.Reset(r); err != nil {
		return nil, err
	}
	return &pooledZstdReader{dec: dec}, nil
}
