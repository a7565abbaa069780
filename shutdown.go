// shutdown.go: Process shutdown registry for teardown hooks
//
// A Shutdown collects callbacks while commands are dispatched and fires
// them exactly once when the process terminates, either through Exit or
// because one of the listened signals arrived. After firing the registry
// is inert.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
)

// DefaultShutdownTimeout bounds how long Fire waits for hooks when the
// caller's context has no deadline.
const DefaultShutdownTimeout = 10 * time.Second

// ShutdownHook is a callback fired once at shutdown.
type ShutdownHook func(ctx context.Context) error

type shutdownEntry struct {
	id   uint64
	name string
	fn   ShutdownHook
}

// Shutdown is a registry of hooks run once at process shutdown.
type Shutdown struct {
	mu      sync.Mutex
	entries []shutdownEntry
	nextID  uint64
	fired   bool
	done    chan struct{}
	err     error

	timeout time.Duration
	logger  *slog.Logger
	exit    func(int)
}

var (
	defaultShutdown     *Shutdown
	defaultShutdownOnce sync.Once
)

// DefaultShutdown returns the process-wide registry used by Execute.
func DefaultShutdown() *Shutdown {
	defaultShutdownOnce.Do(func() {
		defaultShutdown = NewShutdown(DefaultShutdownTimeout, nil)
	})
	return defaultShutdown
}

// NewShutdown creates an empty registry. A nil logger discards output.
func NewShutdown(timeout time.Duration, logger *slog.Logger) *Shutdown {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	if logger == nil {
		logger = discardLogger
	}
	return &Shutdown{
		done:    make(chan struct{}),
		timeout: timeout,
		logger:  logger,
		exit:    os.Exit,
	}
}

// Register adds fn to the registry. The returned function removes it again
// and is safe to call more than once. Hooks registered after the registry
// fired are dropped.
func (s *Shutdown) Register(name string, fn ShutdownHook) (unregister func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fired {
		s.logger.Warn("shutdown already fired, hook ignored", "hook", name)
		return func() {}
	}
	s.nextID++
	id := s.nextID
	s.entries = append(s.entries, shutdownEntry{id: id, name: name, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, e := range s.entries {
			if e.id == id {
				s.entries = append(s.entries[:i], s.entries[i+1:]...)
				return
			}
		}
	}
}

// Len returns the number of hooks waiting to fire.
func (s *Shutdown) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Fired reports whether the registry has fired.
func (s *Shutdown) Fired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

// Fire runs every registered hook, most recent first. Only the first call
// runs hooks; later calls wait for it and return the same error. Fire gives
// up waiting when ctx is done.
func (s *Shutdown) Fire(ctx context.Context) error {
	s.mu.Lock()
	if s.fired {
		s.mu.Unlock()
		return s.wait(ctx)
	}
	s.fired = true
	entries := s.entries
	s.entries = nil
	s.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	go func() {
		start := timecache.CachedTimeNano()
		var errs []error
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			if err := s.call(ctx, e); err != nil {
				s.logger.Warn("shutdown hook failed", "hook", e.name, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
			}
		}
		if len(errs) > 0 {
			s.err = errors.Wrap(goerrors.Join(errs...), ErrCodeShutdown, "shutdown hooks failed")
		}
		s.logger.Debug("shutdown hooks completed",
			"hooks", len(entries),
			"duration", time.Duration(timecache.CachedTimeNano()-start))
		close(s.done)
	}()

	return s.wait(ctx)
}

func (s *Shutdown) call(ctx context.Context, e shutdownEntry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.fn(ctx)
}

func (s *Shutdown) wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), ErrCodeShutdown, "shutdown hooks did not complete in time")
	}
}

// Exit fires the registry and terminates the process with code.
func (s *Shutdown) Exit(code int) {
	if err := s.Fire(context.Background()); err != nil {
		s.logger.Error("shutdown completed with errors", "error", err)
	}
	s.exit(code)
}

// Listen fires the registry and exits when one of signals arrives. With no
// signals it listens for os.Interrupt and SIGTERM. The exit status follows
// the shell convention of 128 plus the signal number. The returned function
// stops listening.
func (s *Shutdown) Listen(signals ...os.Signal) (stop func()) {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	quit := make(chan struct{})

	go func() {
		select {
		case sig := <-ch:
			s.logger.Info("received shutdown signal", "signal", sig.String())
			code := ExitError
			if n, ok := sig.(syscall.Signal); ok {
				code = 128 + int(n)
			}
			s.Exit(code)
		case <-quit:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(quit)
		})
	}
}
