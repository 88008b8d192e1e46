package newline

import (
	"bufio"
	"io"
	"strings"
	"syscall"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"
)

// interruptingReader fails every other Read with EINTR
type interruptingReader struct {
	r           io.Reader
	interrupted bool
}

func (r *interruptingReader) Read(p []byte) (int, error) {
	r.interrupted = !r.interrupted
	if r.interrupted {
		return 0, syscall.EINTR
	}
	return r.r.Read(p)
}

type emptyReader struct{}

func (emptyReader) Read([]byte) (int, error) {
	return 0, nil
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestReader(t *testing.T) {
	t.Run("fill and consume", func(t *testing.T) {
		rdr := NewReaderSize(strings.NewReader("abcdef"), 4)
		view, err := rdr.Fill()
		require.NoError(t, err)
		require.Equal(t, "abcd", string(view))
		rdr.Consume(1)
		require.Equal(t, 3, rdr.buffered())
		view, err = rdr.Fill()
		require.NoError(t, err)
		require.Equal(t, "bcd", string(view))
		rdr.Consume(3)
		view, err = rdr.Fill()
		require.NoError(t, err)
		require.Equal(t, "ef", string(view))
		rdr.Consume(2)
		for i := 0; i < 3; i++ {
			view, err = rdr.Fill()
			require.NoError(t, err)
			require.Empty(t, view)
		}
	})

	t.Run("error after data", func(t *testing.T) {
		rdr := NewReaderSize(iotest.TimeoutReader(strings.NewReader("ab")), 8)
		view, err := rdr.Fill()
		require.NoError(t, err)
		require.Equal(t, "ab", string(view))
		rdr.Consume(2)
		_, err = rdr.Fill()
		require.Equal(t, iotest.ErrTimeout, err)
	})

	t.Run("no progress", func(t *testing.T) {
		rdr := NewReader(emptyReader{})
		_, err := rdr.Fill()
		require.Equal(t, io.ErrNoProgress, err)
	})

	t.Run("consume out of range", func(t *testing.T) {
		rdr := NewReaderSize(strings.NewReader("abc"), 2)
		_, err := rdr.Fill()
		require.NoError(t, err)
		require.Panics(t, func() {
			rdr.Consume(3)
		})
	})

	t.Run("close", func(t *testing.T) {
		rc := &closeRecorder{Reader: strings.NewReader("")}
		require.NoError(t, NewReader(rc).Close())
		require.True(t, rc.closed)
		require.NoError(t, NewReader(strings.NewReader("")).Close())
	})

	t.Run("interrupted reads are retried", func(t *testing.T) {
		input := "Heading:\r\nLine 1\rLine 2\rLine 3\r\nEnd\n\r"
		rdr := NewReaderSize(&interruptingReader{r: strings.NewReader(input)}, 3)
		got, _ := scanAll(t, rdr)
		require.Equal(t, []string{"Heading:", "Line 1", "Line 2", "Line 3", "End"}, got)
	})
}

func TestFromBufio(t *testing.T) {
	for _, tt := range scanTests {
		t.Run(tt.name, func(t *testing.T) {
			br := bufio.NewReaderSize(iotest.HalfReader(strings.NewReader(tt.input)), 16)
			got, counts := scanAll(t, FromBufio(br))
			require.Equal(t, tt.want, got)
			require.Equal(t, len(tt.input), sum(counts))
		})
	}

	t.Run("read error", func(t *testing.T) {
		br := bufio.NewReaderSize(iotest.TimeoutReader(strings.NewReader("ab\ncd")), 16)
		var sc Scanner
		line, n, err := sc.AppendLine(nil, FromBufio(br))
		require.NoError(t, err)
		require.Equal(t, 3, n)
		require.Equal(t, "ab", string(line))
		_, _, err = sc.AppendLine(nil, FromBufio(br))
		require.Equal(t, iotest.ErrTimeout, err)
	})
}
