package newline

import (
	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
)

// Validator is a function that returns true when a line passes validation
type Validator func(line []byte) bool

// Options are options for Lines, MultiScanner and the Open functions
type Options struct {
	// Encoding decodes line bytes. nil means lines must be valid UTF-8.
	Encoding encoding.Encoding

	// Validators drop lines that any of them rejects
	Validators []Validator

	// BufferSize is the size of buffers created by the Open functions
	BufferSize int

	// Concurrency is the number of sources a MultiScanner reads at once
	Concurrency int

	// StorageClient is used by OpenObject. An unauthenticated client is created when nil.
	StorageClient *storage.Client

	Logger *zap.Logger
}

func (o *Options) withDefaults() *Options {
	if o == nil {
		o = new(Options)
	}
	out := *o
	if out.BufferSize < 1 {
		out.BufferSize = defaultBufferSize
	}
	if out.Concurrency < 1 {
		out.Concurrency = 1
	}
	if out.Logger == nil {
		out.Logger = zap.NewNop()
	}
	return &out
}
