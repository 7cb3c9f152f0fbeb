package worker

import (
	"context"
	"sync"
	"time"

	"github.com/Sokol111/hrms-commons/pkg/core/health"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type worker interface {
	Start()
	Stop()
}

// runnable is a type that has a Run method that can return an error.
type runnable interface {
	Run(ctx context.Context) error
}

// Options contains configuration for a worker.
type Options struct {
	WaitReady       bool
	ShutdownOnError bool
	Restart         bool
	RestartDelay    time.Duration
}

// Option is a functional option for configuring a worker.
type Option func(*Options)

// WithReady makes the worker wait for all components to be ready before starting.
func WithReady() Option {
	return func(o *Options) {
		o.WaitReady = true
	}
}

// WithShutdown makes the worker trigger application shutdown on error.
// Ignored when WithRestart is set.
func WithShutdown() Option {
	return func(o *Options) {
		o.ShutdownOnError = true
	}
}

// WithRestart keeps the worker alive: an error restarts Run after delay.
func WithRestart(delay time.Duration) Option {
	return func(o *Options) {
		o.Restart = true
		o.RestartDelay = delay
	}
}

type baseWorker struct {
	name       string
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	log        *zap.Logger
	runFunc    func(ctx context.Context) error
	shutdowner fx.Shutdowner
	readiness  health.ReadinessWaiter
	options    Options
}

func (w *baseWorker) Start() {
	w.log.Info("starting " + w.name)
	w.ctx, w.cancelFunc = context.WithCancel(context.Background())
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run()
	}()
}

func (w *baseWorker) run() {
	if w.options.WaitReady {
		if err := w.readiness.WaitReady(w.ctx); err != nil {
			w.log.Info(w.name + " stopped (cancelled while waiting for readiness)")
			return
		}
	}

	var err error
	if w.options.Restart {
		err = Supervise(w.ctx, w.name, w.log, w.options.RestartDelay, w.runFunc)
	} else {
		err = w.runFunc(w.ctx)
	}

	if err == nil || w.ctx.Err() != nil {
		w.log.Info(w.name + " stopped")
		return
	}

	if w.options.ShutdownOnError {
		w.log.Error(w.name+" fatal error, initiating shutdown", zap.Error(err))
		if shutdownErr := w.shutdowner.Shutdown(fx.ExitCode(1)); shutdownErr != nil {
			w.log.Error("failed to initiate shutdown", zap.Error(shutdownErr))
		}
		return
	}
	w.log.Error(w.name+" stopped with error", zap.Error(err))
}

func (w *baseWorker) Stop() {
	w.log.Info("stopping " + w.name)
	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.wg.Wait()
}

func registerWorker(lc fx.Lifecycle, w worker) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			w.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			w.Stop()
			return nil
		},
	})
}

// Register returns an fx constructor that runs dep.Run in the background for
// the lifetime of the application.
//
// Example:
//
//	worker.Register[*notification.Runner]("notification-consumer", worker.WithRestart(5*time.Second))
func Register[T runnable](name string, opts ...Option) any {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}

	return fx.Annotate(
		func(lc fx.Lifecycle, log *zap.Logger, shutdowner fx.Shutdowner, readiness health.ReadinessWaiter, dep T) worker {
			w := &baseWorker{
				name:       name,
				log:        log.With(zap.String("component", name)),
				runFunc:    dep.Run,
				shutdowner: shutdowner,
				readiness:  readiness,
				options:    options,
			}
			registerWorker(lc, w)
			return w
		},
		fx.ResultTags(`group:"workers"`),
	)
}

// NewWorkersModule starts every worker provided through Register.
func NewWorkersModule() fx.Option {
	return fx.Invoke(fx.Annotate(func([]worker) {}, fx.ParamTags(`group:"workers"`)))
}
