// Package bootstrap runs a long-lived process until it stops or is signalled.
package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// DefaultShutdownTimeout bounds how long shutdown hooks may take in total.
const DefaultShutdownTimeout = 10 * time.Second

// App runs a process and its shutdown hooks.
type App struct {
	mu              sync.Mutex
	hooks           []func(ctx context.Context) error
	signals         []os.Signal
	shutdownTimeout time.Duration
}

// New creates an App that stops on SIGINT and SIGTERM.
func New() *App {
	return &App{
		signals:         []os.Signal{os.Interrupt, syscall.SIGTERM},
		shutdownTimeout: DefaultShutdownTimeout,
	}
}

// AddShutdownHook registers fn to run on shutdown. Hooks run in reverse
// registration order. Safe for concurrent use.
func (a *App) AddShutdownHook(fn func(ctx context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, fn)
}

// Run calls run with a context that is canceled on a stop signal or when ctx
// is done. Shutdown hooks run once the context is canceled. An error returned
// by run before that is returned as is and no hooks run.
func (a *App) Run(ctx context.Context, run func(ctx context.Context) error) error {
	ctx, cancel := signal.NotifyContext(ctx, a.signals...)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil || ctx.Err() == nil {
			return err
		}
	}

	slog.Default().Info("shutting down", "hooks", a.hookCount())
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancelShutdown()
	return a.shutdown(shutdownCtx)
}

func (a *App) hookCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.hooks)
}

func (a *App) shutdown(ctx context.Context) error {
	a.mu.Lock()
	hooks := make([]func(ctx context.Context) error, len(a.hooks))
	copy(hooks, a.hooks)
	a.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
