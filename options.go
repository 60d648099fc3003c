// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Option configures NewStrategy, NewAggregateWalker and NewCollector.
// Options that do not apply to a constructor are ignored by it.
type Option func(*options)

type options struct {
	logger            *zap.Logger
	metrics           *Metrics
	limiter           *rate.Limiter
	batchSize         int
	bulk              bool
	maxRepetitions    int
	name              string
	maxRounds         int
	continueOnFailure bool
	concurrency       int
}

func buildOptions(opts []Option) options {
	o := options{
		logger:    zap.NewNop(),
		maxRounds: SNMP_MAXIMUMWALK,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRateLimit paces walker requests per session: at most r requests per
// second with the given burst.
func WithRateLimit(r float64, burst int) Option {
	return func(o *options) {
		if r <= 0 {
			o.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithBatchSize sets the initial number of columns per request. 0 means
// all columns (capped by AgentEndpoint.MaxVarBindsPerPDU).
func WithBatchSize(n int) Option {
	return func(o *options) { o.batchSize = n }
}

// WithGetBulk makes the walker use GETBULK with the given max-repetitions
// instead of GETNEXT. maxRepetitions <= 0 takes the endpoint value.
func WithGetBulk(maxRepetitions int) Option {
	return func(o *options) {
		o.bulk = true
		o.maxRepetitions = maxRepetitions
	}
}

// WithName labels a walk in logs and metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithMaxRounds caps the number of request rounds of one walk.
func WithMaxRounds(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRounds = n
		}
	}
}

// WithContinueOnFailure keeps the remaining columns walking after one of
// them failed. The walk still reports the failure at the end.
func WithContinueOnFailure() Option {
	return func(o *options) { o.continueOnFailure = true }
}

// WithConcurrency bounds the number of agents a Collector walks at once.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// Future is the result of an asynchronous operation.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func goFuture[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn()
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the result is available or ctx ends. Abandoning the
// wait does not cancel the operation.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result blocks until the result is available.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.val, f.err
}
