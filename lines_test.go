package newline

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

func collectLines(t *testing.T, lines *Lines) []string {
	t.Helper()
	var got []string
	for {
		line, err := lines.Next()
		if err == io.EOF {
			return got
		}
		require.NoError(t, err)
		got = append(got, line)
	}
}

func TestLines_Next(t *testing.T) {
	t.Run("heading", func(t *testing.T) {
		input := "Heading:\r\nLine 1\rLine 2\rLine 3\r\nEnd\n\r"
		lines := NewLines(NewReaderSize(strings.NewReader(input), 3), nil)
		require.Equal(t, []string{"Heading:", "Line 1", "Line 2", "Line 3", "End"}, collectLines(t, lines))
		_, err := lines.Next()
		require.Equal(t, io.EOF, err)
	})

	t.Run("empty input", func(t *testing.T) {
		lines := NewLines(NewReader(strings.NewReader("")), nil)
		_, err := lines.Next()
		require.Equal(t, io.EOF, err)
	})

	t.Run("invalid utf-8", func(t *testing.T) {
		lines := NewLines(NewReaderSize(strings.NewReader("ok\n\xff\xfe\nafter\n"), 4), nil)
		line, err := lines.Next()
		require.NoError(t, err)
		require.Equal(t, "ok", line)

		_, err = lines.Next()
		var decodeErr *DecodeError
		require.True(t, errors.As(err, &decodeErr))
		require.Equal(t, []byte{0xff, 0xfe}, decodeErr.Line)
		require.True(t, errors.Is(err, encoding.ErrInvalidUTF8))

		line, err = lines.Next()
		require.NoError(t, err)
		require.Equal(t, "after", line)
		_, err = lines.Next()
		require.Equal(t, io.EOF, err)
	})

	t.Run("encoding", func(t *testing.T) {
		lines := NewLines(NewReader(strings.NewReader("caf\xe9\r\nna\xefve")), &Options{
			Encoding: charmap.Windows1252,
		})
		require.Equal(t, []string{"café", "naïve"}, collectLines(t, lines))
	})

	t.Run("validators", func(t *testing.T) {
		lines := NewLines(NewReader(strings.NewReader("a\n\n \t\nb\r\rc")), &Options{
			Validators: []Validator{ValidateNotEmpty()},
		})
		require.Equal(t, []string{"a", "b", "c"}, collectLines(t, lines))
	})

	t.Run("io error", func(t *testing.T) {
		errBoom := errors.New("boom")
		src := &scriptedSource{steps: []step{{data: "a\nb"}, {err: errBoom}}}
		lines := NewLines(src, nil)
		line, err := lines.Next()
		require.NoError(t, err)
		require.Equal(t, "a", line)
		_, err = lines.Next()
		require.Equal(t, errBoom, err)
	})
}

func TestLines_Scan(t *testing.T) {
	t.Run("all lines", func(t *testing.T) {
		lines := NewLines(NewReaderSize(strings.NewReader("one\r\ntwo\n\rthree"), 5), nil)
		var got []string
		for lines.Scan() {
			got = append(got, lines.Text())
		}
		require.NoError(t, lines.Err())
		require.Equal(t, []string{"one", "two", "three"}, got)
		require.False(t, lines.Scan())
	})

	t.Run("stops on error", func(t *testing.T) {
		lines := NewLines(NewReader(strings.NewReader("ok\n\xff\nafter")), nil)
		require.True(t, lines.Scan())
		require.Equal(t, "ok", lines.Text())
		require.False(t, lines.Scan())
		var decodeErr *DecodeError
		require.True(t, errors.As(lines.Err(), &decodeErr))
		require.False(t, lines.Scan())
	})
}
