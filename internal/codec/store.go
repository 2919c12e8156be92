package codec

import "io"

// storeWriter is the identity passthrough codec; level is ignored.
type storeWriter struct {
	w io.Writer
}

func newStoreWriter(w io.Writer) Writer {
	return &storeWriter{w: w}
}

func (s *storeWriter) Write(p []byte) (int, error) { return s.w.Write(p) }
func (s *storeWriter) Close() error                { return nil }

type storeReader struct {
	io.Reader
}

func newStoreReader(r io.Reader) Reader {
	return storeReader{Reader: r}
}

func (storeReader) Close() error { return nil }
