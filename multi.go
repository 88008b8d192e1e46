package newline

import (
	"context"
	"io"
	"sync"

	"github.com/killa-beez/gopkgs/pool"
	"go.uber.org/zap"
)

// MultiScanner reads lines from several sources at once. Lines from one source arrive in order,
// but lines from different sources are interleaved.
type MultiScanner struct {
	sources    []Source
	sourceErrs []error
	lines      chan string
	cancel     func()
	text       string

	errLock sync.RWMutex
	err     error

	doneLock sync.Mutex
	doneChan chan struct{}
	done     bool
}

// NewMultiScanner starts reading sources with opts.Concurrency workers
func NewMultiScanner(ctx context.Context, sources []Source, opts *Options) *MultiScanner {
	opts = opts.withDefaults()
	m := &MultiScanner{
		sources:    sources,
		sourceErrs: make([]error, len(sources)),
		lines:      make(chan string, opts.Concurrency*1024),
		doneChan:   make(chan struct{}),
	}
	ctx, m.cancel = context.WithCancel(ctx)

	p := pool.New(len(sources), opts.Concurrency)
	for i := range sources {
		i := i
		src := sources[i]
		p.Add(pool.NewWorkUnit(func(ctx2 context.Context) {
			err := runLines(ctx2, NewLines(src, opts), m.lines)
			if err != nil {
				opts.Logger.Warn("source failed", zap.Int("source", i), zap.Error(err))
			}
			m.errLock.Lock()
			m.sourceErrs[i] = err
			m.errLock.Unlock()
		}))
	}
	p.Start(ctx)
	go func() {
		p.Wait()
		m.beDone()
	}()
	return m
}

func (m *MultiScanner) beDone() {
	m.doneLock.Lock()
	defer m.doneLock.Unlock()
	if m.done {
		return
	}
	close(m.doneChan)
	m.done = true
}

func runLines(ctx context.Context, lines *Lines, out chan<- string) error {
	for {
		text, err := lines.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- text:
		}
	}
}

// Close stops all workers and closes any sources that are io.Closers
func (m *MultiScanner) Close() error {
	m.cancel()
	var err error
	for _, src := range m.sources {
		closer, ok := src.(io.Closer)
		if !ok {
			continue
		}
		closeErr := closer.Close()
		if err == nil {
			err = closeErr
		}
	}
	m.beDone()
	return err
}

// Err returns the first source error once Scan has returned false
func (m *MultiScanner) Err() error {
	m.errLock.RLock()
	err := m.err
	m.errLock.RUnlock()
	return err
}

// Scan advances to the next line from any source
func (m *MultiScanner) Scan(ctx context.Context) bool {
	if ctx.Err() != nil {
		m.errLock.Lock()
		m.err = ctx.Err()
		m.errLock.Unlock()
		return false
	}
	select {
	case m.text = <-m.lines:
		return true
	default:
	}

	select {
	case m.text = <-m.lines:
		return true
	case <-ctx.Done():
		m.errLock.Lock()
		m.err = ctx.Err()
		m.errLock.Unlock()
		return false
	case <-m.doneChan:
		// workers may have queued more lines before finishing
		select {
		case m.text = <-m.lines:
			return true
		default:
		}
		m.errLock.Lock()
		for _, err := range m.sourceErrs {
			if err != nil {
				m.err = err
				break
			}
		}
		m.errLock.Unlock()
		return false
	}
}

// Text returns the current line
func (m *MultiScanner) Text() string {
	return m.text
}
