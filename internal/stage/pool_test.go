package stage

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolSizes(t *testing.T) {
	tests := []struct {
		size int
		err  error
	}{
		{-1, ErrPoolSizeLessThanZero},
		{0, ErrPoolSizeLessThanZero},
		{4, nil},
		{8, nil},
	}

	for _, tc := range tests {
		p, err := New(t.TempDir(), tc.size, 0)
		require.Equal(t, tc.err, err)
		if tc.err != nil {
			continue
		}

		for i := 0; i < tc.size; i++ {
			b := p.Get()
			_, err = b.Write([]byte("foobar"))
			assert.NoError(t, err)
			p.Put(b)
		}
		assert.NoError(t, p.Close())
	}
}

func TestPoolReset(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir, 16, 0)
	require.NoError(t, err)
	defer p.Close()

	for i := range p.buffers {
		b := p.Get()
		_, err = b.Write(bytes.Repeat([]byte("0"), i))
		assert.NoError(t, err)

		data, err := io.ReadAll(b)
		assert.NoError(t, err)
		assert.Len(t, data, i)
		assert.Equal(t, int64(i), b.Len())

		p.Put(b)
	}

	for range p.buffers {
		b := p.Get()
		data, err := io.ReadAll(b)
		assert.NoError(t, err)
		assert.Len(t, data, 0)
		assert.Equal(t, int64(0), b.Len())
		p.Put(b)
	}
}

func TestPoolSpillsToDiskPastBufferLength(t *testing.T) {
	dir := t.TempDir()

	tests := map[string]struct {
		data        []byte
		spillsToDisk bool
	}{
		"below buffer length":  {data: []byte("123456789"), spillsToDisk: false},
		"equal to buffer length": {data: []byte("1234567890"), spillsToDisk: false},
		"above buffer length":  {data: []byte("1234567890x"), spillsToDisk: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			p, err := New(dir, 1, 10)
			require.NoError(t, err)
			defer p.Close()

			b := p.buffers[0]
			n, err := b.Write(tc.data)
			assert.NoError(t, err)
			assert.Equal(t, len(tc.data), n)
			assert.Equal(t, tc.spillsToDisk, b.f != nil)

			buf := make([]byte, 20)
			size := 0
			n1, err := b.Read(buf[:5])
			assert.NoError(t, err)
			size += n1
			n2, err := b.Read(buf[5:])
			if err != nil {
				assert.ErrorIs(t, err, io.EOF)
			}
			size += n2

			assert.Equal(t, tc.data, buf[:size])
			b.reset()
		})
	}
}
