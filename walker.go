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
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// WalkResult is what a walk collected, one ColumnResult per root in the
// order the roots were given.
type WalkResult struct {
	ID        string
	Name      string
	Endpoint  string
	Columns   []ColumnResult
	Rounds    int
	Requests  int
	BatchSize int // batch size in effect when the walk ended
}

// Column returns the result for root.
func (r *WalkResult) Column(root OID) (ColumnResult, bool) {
	for _, c := range r.Columns {
		if c.Root.Equal(root) {
			return c, true
		}
	}
	return ColumnResult{}, false
}

// Rows counts the entries of all columns.
func (r *WalkResult) Rows() int {
	n := 0
	for _, c := range r.Columns {
		n += len(c.Entries)
	}
	return n
}

// Complete reports whether every column finished.
func (r *WalkResult) Complete() bool {
	for _, c := range r.Columns {
		if c.State != Finished {
			return false
		}
	}
	return true
}

// AggregateWalker walks several columns of one agent together: each round
// asks every unfinished column for its next object, packing as many
// columns into one request as the agent accepts.
//
// A walker runs once. Walks of different agents or subtrees use separate
// walkers and may run concurrently over one shared Strategy.
type AggregateWalker struct {
	id       string
	name     string
	strategy Strategy
	ep       AgentEndpoint
	trackers []*ColumnTracker

	log               *zap.Logger
	metrics           *Metrics
	limiter           *rate.Limiter
	batch             int
	bulk              bool
	maxRepetitions    int
	maxRounds         int
	continueOnFailure bool

	started  atomic.Bool
	rounds   int
	requests int
}

// NewAggregateWalker prepares a walk of roots on ep. Each root gets its
// own ColumnTracker.
func NewAggregateWalker(s Strategy, ep AgentEndpoint, roots []OID, opts ...Option) (*AggregateWalker, error) {
	if s == nil {
		return nil, errors.New("nil strategy")
	}
	if len(roots) == 0 {
		return nil, ErrNoTrackers
	}
	if err := ep.Validate(); err != nil {
		return nil, fmt.Errorf("agent %s: %w", ep, err)
	}
	o := buildOptions(opts)

	w := &AggregateWalker{
		id:                uuid.NewString(),
		name:              o.name,
		strategy:          s,
		ep:                ep,
		trackers:          make([]*ColumnTracker, len(roots)),
		metrics:           o.metrics,
		limiter:           o.limiter,
		bulk:              o.bulk,
		maxRepetitions:    o.maxRepetitions,
		maxRounds:         o.maxRounds,
		continueOnFailure: o.continueOnFailure,
	}
	for i, root := range roots {
		if len(root) == 0 {
			return nil, fmt.Errorf("empty root OID at position %d", i)
		}
		w.trackers[i] = NewColumnTracker(root)
	}
	if w.name == "" {
		w.name = ep.Address
	}

	w.batch = len(w.trackers)
	if o.batchSize > 0 && o.batchSize < w.batch {
		w.batch = o.batchSize
	}
	if ep.MaxVarBindsPerPDU > 0 && ep.MaxVarBindsPerPDU < w.batch {
		w.batch = ep.MaxVarBindsPerPDU
	}

	w.log = o.logger.Named("walker").With(
		zap.String("walk_id", w.id),
		zap.String("walk", w.name),
		zap.Stringer("agent", ep))
	return w, nil
}

func (w *AggregateWalker) ID() string   { return w.id }
func (w *AggregateWalker) Name() string { return w.name }

// Trackers exposes the column trackers, in root order.
func (w *AggregateWalker) Trackers() []*ColumnTracker {
	out := make([]*ColumnTracker, len(w.trackers))
	copy(out, w.trackers)
	return out
}

// Walk runs rounds until every column finished or failed.
//
// When a column fails the walk stops, unless WithContinueOnFailure was
// given, in which case the other columns are walked to the end first.
// Either way the error is a *WalkError whose Partial equals the returned
// result. On cancellation no further request is sent; columns that were
// still walking stay in that state.
func (w *AggregateWalker) Walk(ctx context.Context) (*WalkResult, error) {
	if !w.started.CompareAndSwap(false, true) {
		return nil, errors.New("walker already used")
	}
	w.metrics.walkStarted()
	w.log.Debug("walk started", zap.Int("columns", len(w.trackers)), zap.Int("batch", w.batch), zap.Bool("bulk", w.bulk))

	var walkErr error
	for walkErr == nil {
		open := w.walking()
		if len(open) == 0 {
			break
		}
		if w.rounds >= w.maxRounds {
			w.log.Warn("round limit reached, truncating walk",
				zap.Int("rounds", w.rounds),
				zap.Int("open_columns", len(open)))
			for _, t := range open {
				t.truncate()
			}
			break
		}
		w.rounds++
		walkErr = w.round(ctx, open)
		if walkErr == nil && !w.continueOnFailure {
			walkErr = w.failure()
		}
	}
	if walkErr == nil {
		walkErr = w.failure()
	}

	res := w.result()
	outcome := "ok"
	switch {
	case ctx.Err() != nil && errors.Is(walkErr, ctx.Err()):
		outcome = "cancelled"
	case walkErr != nil:
		outcome = "failed"
	}
	w.metrics.walkDone(outcome, res.Rounds, res.Rows())
	w.log.Debug("walk done",
		zap.String("result", outcome),
		zap.Int("rounds", res.Rounds),
		zap.Int("requests", res.Requests),
		zap.Int("rows", res.Rows()))

	if walkErr != nil {
		return res, &WalkError{Endpoint: w.ep.String(), Err: walkErr, Partial: res}
	}
	return res, nil
}

// WalkAsync runs Walk on its own goroutine.
func (w *AggregateWalker) WalkAsync(ctx context.Context) *Future[*WalkResult] {
	return goFuture(func() (*WalkResult, error) {
		return w.Walk(ctx)
	})
}

// round serves every open column once, in chunks of the batch size. A
// tooBig answer halves the batch and the same columns are asked again
// with the smaller chunk; no cursor moves in between. Only context and
// pacing errors are returned, column failures are recorded on the trackers.
func (w *AggregateWalker) round(ctx context.Context, open []*ColumnTracker) error {
	for start := 0; start < len(open); {
		if err := ctx.Err(); err != nil {
			return err
		}
		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		chunk := open[start:min(start+w.batch, len(open))]

		tooBig, err := w.request(ctx, chunk)
		switch {
		case err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()):
			return err
		case err != nil:
			w.log.Debug("request failed", zap.Int("round", w.rounds), zap.Int("batch", len(chunk)), zap.Error(err))
			w.fail(chunk, err)
		case tooBig:
			w.log.Info("Received tooBig response from "+w.ep.Address,
				zap.Int("round", w.rounds),
				zap.Int("batch", len(chunk)))
			w.metrics.observeTooBig(w.name)
			if len(chunk) == 1 {
				w.fail(chunk, ErrTooBigExceeded)
				break
			}
			w.batch = max(1, len(chunk)/2)
			continue
		}
		if !w.continueOnFailure && w.failure() != nil {
			return nil
		}
		start += len(chunk)
	}
	return nil
}

// request asks chunk's cursors and routes the answers. It reports tooBig
// without touching the trackers.
func (w *AggregateWalker) request(ctx context.Context, chunk []*ColumnTracker) (bool, error) {
	kind := OpGetNext
	if w.bulk {
		kind = OpGetBulk
	}
	oids := make([]OID, len(chunk))
	for i, t := range chunk {
		oids[i] = t.NextRequestOID()
	}
	pdu, ok := w.strategy.BuildPDU(w.ep, kind, oids, nil)
	if !ok {
		return false, ErrRejectedPdu
	}
	if w.bulk && w.maxRepetitions > 0 {
		pdu.MaxRepetitions = w.maxRepetitions
	}

	w.requests++
	resp, err := w.strategy.Send(ctx, w.ep, pdu, true)
	if err != nil {
		return false, err
	}
	if resp == nil {
		return false, errors.New("no response")
	}
	if resp.TooBig() {
		return true, nil
	}
	if err := resp.Err(); err != nil {
		return false, err
	}
	return false, w.route(chunk, resp.VarBinds)
}

// route hands varbinds to the trackers in request order. GETBULK answers
// are row-major: varbind i belongs to chunk[i % len(chunk)].
func (w *AggregateWalker) route(chunk []*ColumnTracker, vbs []VarBind) error {
	if w.bulk {
		if len(vbs) == 0 {
			return errors.New("malformed response: no varbinds")
		}
	} else if len(vbs) != len(chunk) {
		return fmt.Errorf("malformed response: %d varbinds for %d requested", len(vbs), len(chunk))
	}

	for i, vb := range vbs {
		t := chunk[i%len(chunk)]
		wasTruncated := t.Truncated()
		t.Handle(vb.OID, vb.Value)
		if t.Truncated() && !wasTruncated {
			w.log.Warn("OID is not increased, column stopped",
				zap.Stringer("root", t.root),
				zap.Stringer("oid", vb.OID))
		}
	}
	return nil
}

func (w *AggregateWalker) fail(chunk []*ColumnTracker, err error) {
	for _, t := range chunk {
		t.Fail(err)
	}
}

func (w *AggregateWalker) walking() []*ColumnTracker {
	var open []*ColumnTracker
	for _, t := range w.trackers {
		if t.State() == Walking {
			open = append(open, t)
		}
	}
	return open
}

// failure returns the error of the first failed column.
func (w *AggregateWalker) failure() error {
	for _, t := range w.trackers {
		if t.State() == Failed {
			return fmt.Errorf("column %s: %w", t.root, t.Err())
		}
	}
	return nil
}

func (w *AggregateWalker) result() *WalkResult {
	res := &WalkResult{
		ID:        w.id,
		Name:      w.name,
		Endpoint:  w.ep.String(),
		Columns:   make([]ColumnResult, len(w.trackers)),
		Rounds:    w.rounds,
		Requests:  w.requests,
		BatchSize: w.batch,
	}
	for i, t := range w.trackers {
		res.Columns[i] = t.Result()
	}
	return res
}
