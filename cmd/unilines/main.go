package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"github.com/willabides/newline"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"google.golang.org/api/option"
)

var cli struct {
	Paths           []string `kong:"arg,optional,help='files or gs://bucket/object urls to read. reads stdin when empty. names ending in .gz are decompressed'"`
	BufferSize      int      `kong:"default=8192,help='read buffer size in bytes'"`
	Concurrency     int      `kong:"default=1,help='number of inputs to read at once. lines from different inputs are interleaved when above 1'"`
	Encoding        string   `kong:"help='input text encoding, for example windows-1252. default is utf-8'"`
	NoEmptyLines    bool     `kong:"help='skip empty lines'"`
	OnlyValidJSON   bool     `kong:"help='skip lines that are not valid json'"`
	OnlyJSONObjects bool     `kong:"name=only-json-objects,help='skip lines that do not start with a json object'"`
	Field           []string `kong:"help='only output json lines where the top-level string field has this value. formatted as name=value'"`
	LogLevel        string   `kong:"default=warn,help='log level: debug, info, warn or error'"`
}

func newLogger(level string) *zap.Logger {
	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.WarnLevel
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), lvl)
	return zap.New(core)
}

// lookupEncoding finds an encoding by its WHATWG name. Lines are split on single '\r' and '\n'
// bytes, so encodings that do not keep ASCII as is (utf-16 for one) are refused.
func lookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, err
	}
	ascii := make([]byte, 0x80)
	for i := range ascii {
		ascii[i] = byte(i)
	}
	decoded, err := enc.NewDecoder().Bytes(ascii)
	if err != nil || string(decoded) != string(ascii) {
		return nil, errors.Errorf("encoding %s is not ascii compatible", name)
	}
	return enc, nil
}

func fieldValidator(fields []string) (newline.Validator, error) {
	fieldValidators := make([]newline.JSONFieldValidator, 0, len(fields))
	for _, field := range fields {
		idx := strings.Index(field, "=")
		if idx < 1 {
			return nil, errors.Errorf("invalid field filter %q", field)
		}
		want := field[idx+1:]
		fieldValidators = append(fieldValidators, newline.JSONFieldValidator{
			Field: field[:idx],
			Validator: newline.StringValueValidator(func(val string) bool {
				return val == want
			}),
		})
	}
	return newline.ValidateJSONFields(fieldValidators), nil
}

func hasObjectURL(paths []string) bool {
	for _, path := range paths {
		if strings.HasPrefix(path, "gs://") {
			return true
		}
	}
	return false
}

func openPath(ctx context.Context, path string, opts *newline.Options) (*newline.Reader, error) {
	if strings.HasPrefix(path, "gs://") {
		bucket := strings.TrimPrefix(path, "gs://")
		idx := strings.Index(bucket, "/")
		if idx < 1 || idx == len(bucket)-1 {
			return nil, errors.Errorf("invalid object url %q", path)
		}
		return newline.OpenObject(ctx, bucket[:idx], bucket[idx+1:], opts)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening file")
	}
	return newline.OpenStream(file, path, opts)
}

type lineScanner interface {
	Scan(ctx context.Context) bool
	Text() string
	Err() error
	Close() error
}

// sequentialScanner reads sources one after another
type sequentialScanner struct {
	sources []*newline.Reader
	opts    *newline.Options
	lines   *newline.Lines
	err     error
}

func (s *sequentialScanner) Scan(ctx context.Context) bool {
	for s.err == nil {
		if ctx.Err() != nil {
			s.err = ctx.Err()
			return false
		}
		if s.lines == nil {
			if len(s.sources) == 0 {
				return false
			}
			s.lines = newline.NewLines(s.sources[0], s.opts)
		}
		if s.lines.Scan() {
			return true
		}
		s.err = s.lines.Err()
		s.lines = nil
		s.err = multiClose(s.err, s.sources[0])
		s.sources = s.sources[1:]
	}
	return false
}

func (s *sequentialScanner) Text() string {
	return s.lines.Text()
}

func (s *sequentialScanner) Err() error {
	return s.err
}

func (s *sequentialScanner) Close() error {
	var err error
	for _, src := range s.sources {
		err = multiClose(err, src)
	}
	s.sources = nil
	return err
}

func multiClose(err error, c io.Closer) error {
	closeErr := c.Close()
	if err == nil {
		return closeErr
	}
	return err
}

func main() {
	k := kong.Parse(&cli)
	logger := newLogger(cli.LogLevel)
	defer func() {
		_ = logger.Sync() //nolint:errcheck // nothing to do with this error
	}()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := &newline.Options{
		BufferSize:  cli.BufferSize,
		Concurrency: cli.Concurrency,
		Logger:      logger,
	}
	if cli.Encoding != "" {
		enc, err := lookupEncoding(cli.Encoding)
		k.FatalIfErrorf(err, "invalid encoding")
		opts.Encoding = enc
	}
	if cli.NoEmptyLines {
		opts.Validators = append(opts.Validators, newline.ValidateNotEmpty())
	}
	if cli.OnlyValidJSON {
		opts.Validators = append(opts.Validators, newline.ValidateJSON())
	}
	if cli.OnlyJSONObjects {
		opts.Validators = append(opts.Validators, newline.ValidateIsJSONObject())
	}
	if len(cli.Field) > 0 {
		validator, err := fieldValidator(cli.Field)
		k.FatalIfErrorf(err, "invalid --field")
		opts.Validators = append(opts.Validators, validator)
	}

	if hasObjectURL(cli.Paths) {
		client, err := storage.NewClient(ctx, option.WithoutAuthentication())
		k.FatalIfErrorf(err, "error creating storage client")
		defer func() {
			_ = client.Close() //nolint:errcheck // nothing to do with this error
		}()
		opts.StorageClient = client
	}

	var sources []*newline.Reader
	if len(cli.Paths) == 0 {
		sources = append(sources, newline.NewReaderSize(os.Stdin, cli.BufferSize))
	}
	for _, path := range cli.Paths {
		src, err := openPath(ctx, path, opts)
		k.FatalIfErrorf(err, "error opening "+path)
		sources = append(sources, src)
	}

	var sc lineScanner
	if cli.Concurrency > 1 {
		multiSources := make([]newline.Source, len(sources))
		for i := range sources {
			multiSources[i] = sources[i]
		}
		sc = newline.NewMultiScanner(ctx, multiSources, opts)
	} else {
		sc = &sequentialScanner{sources: sources, opts: opts}
	}
	defer func() {
		_ = sc.Close() //nolint:errcheck // nothing to do with this error
	}()

	out := bufio.NewWriter(os.Stdout)
	for sc.Scan(ctx) {
		_, err := out.WriteString(sc.Text())
		if err == nil {
			err = out.WriteByte('\n')
		}
		k.FatalIfErrorf(err, "error writing output")
	}
	k.FatalIfErrorf(out.Flush(), "error writing output")
	k.FatalIfErrorf(sc.Err(), "error reading input")
}
