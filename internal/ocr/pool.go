package ocr

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPoolClosed is returned by Do after Close.
var ErrPoolClosed = errors.New("ocr: pool is closed")

// Pool hands out engines to one caller at a time. Each engine stays
// single-threaded; the pool only serialises access to it.
type Pool struct {
	engines chan *Engine
	all     []*Engine

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewPool initialises size engines with the same model and language. If any
// engine fails to start, the ones already created are closed and the init
// error is returned unchanged.
func NewPool(size int, model []byte, language string, opts ...Option) (*Pool, error) {
	if size < 1 {
		size = 1
	}

	p := &Pool{
		engines: make(chan *Engine, size),
		done:    make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		e, err := Init(model, language, opts...)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.all = append(p.all, e)
		p.engines <- e
	}
	return p, nil
}

// Size returns the number of engines in the pool.
func (p *Pool) Size() int {
	return len(p.all)
}

// Do runs fn with an engine held exclusively for its duration. It blocks
// until an engine is free, ctx is done or the pool is closed.
func (p *Pool) Do(ctx context.Context, fn func(*Engine) error) error {
	var e *Engine
	select {
	case <-ctx.Done():
		return fmt.Errorf("acquire engine: %w", ctx.Err())
	case <-p.done:
		return ErrPoolClosed
	case e = <-p.engines:
	}
	defer func() { p.engines <- e }()

	return fn(e)
}

// Close releases every engine. Calls to Do that are already running finish
// with their engine; later calls fail with ErrPoolClosed.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)

	for range p.all {
		e := <-p.engines
		e.Close()
	}
	return nil
}

// OpenPool loads the model at path and starts a pool of size engines on it.
func OpenPool(size int, path, language string, opts ...Option) (*Pool, error) {
	model, err := LoadModel(path)
	if err != nil {
		return nil, err
	}
	return NewPool(size, model, language, opts...)
}
