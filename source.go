package newline

import (
	"bufio"
	"io"
)

const defaultBufferSize = 8192

// maxConsecutiveEmptyReads matches bufio's tolerance for readers that return 0, nil.
const maxConsecutiveEmptyReads = 100

// Source is a refillable byte window. Fill returns the bytes that are available but not yet
// consumed, reading more from the underlying stream when none are buffered. It returns an empty
// view with a nil error only at the end of the stream. Consume marks the first n bytes of the
// most recent view as used.
type Source interface {
	Fill() ([]byte, error)
	Consume(n int)
}

// Reader is a fixed capacity Source reading from an io.Reader
type Reader struct {
	r    io.Reader
	data []byte
	off  int
	end  int
	err  error
}

var _ Source = (*Reader)(nil)

// NewReader returns a Reader with the default buffer size
func NewReader(r io.Reader) *Reader {
	return NewReaderSize(r, defaultBufferSize)
}

// NewReaderSize returns a Reader that buffers at most size bytes at a time
func NewReaderSize(r io.Reader, size int) *Reader {
	if size < 1 {
		size = 1
	}
	return &Reader{
		r:    r,
		data: make([]byte, size),
	}
}

// Fill implements Source
func (b *Reader) Fill() ([]byte, error) {
	if b.off < b.end {
		return b.data[b.off:b.end], nil
	}
	b.off, b.end = 0, 0
	if b.err != nil {
		err := b.err
		if err == io.EOF {
			return nil, nil
		}
		b.err = nil
		return nil, err
	}
	for i := 0; i < maxConsecutiveEmptyReads; i++ {
		n, err := b.r.Read(b.data)
		if n < 0 || n > len(b.data) {
			panic("newline: reader returned invalid count from Read")
		}
		b.end = n
		if n > 0 {
			// report err on the next fill once this data is consumed
			b.err = err
			return b.data[:n], nil
		}
		switch err {
		case nil:
			continue
		case io.EOF:
			b.err = io.EOF
			return nil, nil
		default:
			return nil, err
		}
	}
	return nil, io.ErrNoProgress
}

// Consume implements Source
func (b *Reader) Consume(n int) {
	if n < 0 || n > b.end-b.off {
		panic("newline: consume count out of range")
	}
	b.off += n
}

func (b *Reader) buffered() int {
	return b.end - b.off
}

// Close closes the underlying reader if it is an io.Closer
func (b *Reader) Close() error {
	if c, ok := b.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type bufioSource struct {
	r *bufio.Reader
}

// FromBufio returns a Source backed by br's buffer
func FromBufio(br *bufio.Reader) Source {
	return &bufioSource{r: br}
}

func (s *bufioSource) Fill() ([]byte, error) {
	n := s.r.Buffered()
	if n == 0 {
		_, err := s.r.Peek(1)
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		n = s.r.Buffered()
	}
	return s.r.Peek(n)
}

func (s *bufioSource) Consume(n int) {
	_, err := s.r.Discard(n)
	if err != nil {
		panic("newline: consume count out of range")
	}
}
