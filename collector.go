// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// Target is one agent and the subtrees to walk on it.
type Target struct {
	Name     string
	Endpoint AgentEndpoint
	Roots    []OID
}

// TargetResult is the outcome of one target. Result is set even when Err
// is, holding whatever was collected.
type TargetResult struct {
	Target Target
	Result *WalkResult
	Err    error
}

// Collector walks many agents concurrently, one AggregateWalker per
// target, all over the same Strategy.
type Collector struct {
	strategy    Strategy
	opts        []Option
	concurrency int
	log         *zap.Logger
}

// NewCollector returns a Collector. opts are passed on to every walker;
// WithConcurrency bounds the walks in flight (default 8).
func NewCollector(s Strategy, opts ...Option) *Collector {
	o := buildOptions(opts)
	n := o.concurrency
	if n <= 0 {
		n = defaultConcurrency
	}
	return &Collector{
		strategy:    s,
		opts:        opts,
		concurrency: n,
		log:         o.logger.Named("collector"),
	}
}

// Collect walks every target and returns one result per target, in input
// order. A failing target does not stop the others; the returned error
// joins all per-target errors.
func (c *Collector) Collect(ctx context.Context, targets []Target) ([]TargetResult, error) {
	results := make([]TargetResult, len(targets))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, tg := range targets {
		results[i].Target = tg
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Result, results[i].Err = c.walk(ctx, tg)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("target %s: %w", r.Target.Name, r.Err))
		}
	}
	c.log.Debug("collection done", zap.Int("targets", len(targets)), zap.Int("failed", len(errs)))
	return results, errors.Join(errs...)
}

func (c *Collector) walk(ctx context.Context, tg Target) (*WalkResult, error) {
	name := tg.Name
	if name == "" {
		name = tg.Endpoint.Address
	}
	opts := append(append([]Option{}, c.opts...), WithName(name))
	w, err := NewAggregateWalker(c.strategy, tg.Endpoint, tg.Roots, opts...)
	if err != nil {
		return nil, err
	}
	return w.Walk(ctx)
}
