package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrLoopStopped is returned for work submitted after Stop.
var ErrLoopStopped = errors.New("store loop stopped")

// StoreLoop runs submitted tasks one at a time on a single goroutine. Every repository
// mutation goes through it, so writes never interleave.
//
// A task must not call Do on the same loop; it would wait on itself.
type StoreLoop struct {
	tasks  chan func()
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
	logger *zap.Logger
}

// NewStoreLoop starts a loop with room for queueSize waiting tasks.
func NewStoreLoop(queueSize int, logger *zap.Logger) *StoreLoop {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &StoreLoop{
		tasks:  make(chan func(), max(queueSize, 1)),
		done:   make(chan struct{}),
		logger: logger.Named("store-loop"),
	}
	go l.run()
	return l
}

func (l *StoreLoop) run() {
	defer close(l.done)
	for task := range l.tasks {
		l.exec(task)
	}
}

func (l *StoreLoop) exec(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("store task panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	task()
}

// Do runs fn on the loop and returns its error. ctx bounds only the wait for a queue
// slot; once queued, fn always runs and Do waits for it.
func (l *StoreLoop) Do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	task := func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("store task panicked: %v", r)
			}
			errc <- err
		}()
		err = fn()
	}

	if err := l.submit(ctx, task); err != nil {
		return err
	}
	return <-errc
}

// Post queues fn without waiting for it to run.
func (l *StoreLoop) Post(fn func()) error {
	return l.submit(context.Background(), fn)
}

func (l *StoreLoop) submit(ctx context.Context, task func()) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrLoopStopped
	}
	select {
	case l.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop rejects new work, runs everything already queued and returns once the loop exited.
func (l *StoreLoop) Stop() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.tasks)
	}
	l.mu.Unlock()
	<-l.done
}
