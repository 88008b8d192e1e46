package newline

import (
	"io"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// Lines reads decoded lines from a Source. It only moves forward. Once it returns io.EOF it
// keeps returning io.EOF.
type Lines struct {
	src     Source
	scanner Scanner
	opts    *Options
	text    string
	err     error
}

// NewLines returns Lines reading from src
func NewLines(src Source, opts *Options) *Lines {
	return &Lines{
		src:  src,
		opts: opts.withDefaults(),
	}
}

func (l *Lines) validateLine(line []byte) bool {
	for _, validator := range l.opts.Validators {
		if !validator(line) {
			return false
		}
	}
	return true
}

func (l *Lines) decode(line []byte) (string, error) {
	var err error
	if l.opts.Encoding == nil {
		_, _, err = transform.Bytes(encoding.UTF8Validator, line)
		if err != nil {
			return "", &DecodeError{Line: line, Err: err}
		}
		return string(line), nil
	}
	decoded, err := l.opts.Encoding.NewDecoder().Bytes(line)
	if err != nil {
		return "", &DecodeError{Line: line, Err: err}
	}
	return string(decoded), nil
}

// Next returns the next line of output. error is io.EOF at the end. A *DecodeError only applies
// to its own line but usually means the rest of the input is malformed too.
func (l *Lines) Next() (string, error) {
	for {
		line, n, err := l.scanner.AppendLine(nil, l.src)
		if err != nil {
			return "", err
		}
		if n == 0 {
			return "", io.EOF
		}
		if !l.validateLine(line) {
			continue
		}
		text, err := l.decode(line)
		if err != nil {
			l.opts.Logger.Debug("undecodable line", zap.Int("bytes", len(line)), zap.Error(err))
		}
		return text, err
	}
}

// Scan advances to the next line. It returns false at the end of input or on error.
func (l *Lines) Scan() bool {
	if l.err != nil {
		return false
	}
	l.text, l.err = l.Next()
	return l.err == nil
}

// Text returns the current line
func (l *Lines) Text() string {
	return l.text
}

// Err returns the first error encountered by Scan. It is nil at the end of input.
func (l *Lines) Err() error {
	if l.err == io.EOF {
		return nil
	}
	return l.err
}
