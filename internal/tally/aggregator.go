package tally

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/metric"

	"sendertally/internal/model"
)

// Source is the read side of the mailbox a run needs.
type Source interface {
	Lister
	HeaderSource
}

// Options configures an Aggregator. Zero values pick the defaults.
type Options struct {
	PageSize      int // list page size, default MaxPageSize
	Workers       int // concurrent header fetches, default 8
	ReportEvery   int // progress cadence while resolving, default 10
	Logger        *slog.Logger
	MeterProvider metric.MeterProvider
}

// Result is the outcome of one run. On cancellation it holds the partial
// ranking of what was resolved before the stop.
type Result struct {
	State     State
	Ranked    []model.SenderCount
	Records   []model.Record
	Listed    int  // ids returned by the fetch stage, after the cap
	Scanned   int  // ids whose header fetch finished
	Skipped   int  // ids that contributed nothing
	Truncated bool // more messages matched than the cap allowed
	Senders   int  // distinct senders seen
	Elapsed   time.Duration
}

// Cancelled reports whether the run was stopped early.
func (r Result) Cancelled() bool { return r.State == StateCancelled }

// Aggregator ranks the senders of the messages matching a query.
type Aggregator struct {
	src    Source
	opts   Options
	logger *slog.Logger
	inst   instruments
}

func NewAggregator(src Source, opts Options) *Aggregator {
	if opts.PageSize <= 0 || opts.PageSize > MaxPageSize {
		opts.PageSize = MaxPageSize
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.ReportEvery <= 0 {
		opts.ReportEvery = 10
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Aggregator{
		src:    src,
		opts:   opts,
		logger: logger,
		inst:   newInstruments(opts.MeterProvider),
	}
}

// Run lists up to q.Cap messages, resolves their senders and returns the top k.
//
// tracker is the caller-owned state machine for this run and must be idle; a
// nil tracker is replaced by a private one. Cancelling ctx ends the run within
// one round of in-flight calls and yields the partial result with a nil error.
// The error is non-nil only for fatal failures: an expired authorization or a
// failed list call (check IsRetryable).
func (a *Aggregator) Run(ctx context.Context, q SearchQuery, k int, tracker *Tracker) (Result, error) {
	if q.Cap < 1 {
		return Result{}, errors.Errorf("cap must be at least 1, got %d", q.Cap)
	}
	if k < 1 {
		return Result{}, errors.Errorf("top must be at least 1, got %d", k)
	}
	if tracker == nil {
		tracker = NewTracker(nil)
	}

	start := time.Now()
	var res Result
	finish := func(state State, status string) {
		res.State = state
		res.Elapsed = time.Since(start)
		_ = tracker.Transition(state, status)
		a.inst.record(ctx, res)
		a.logger.Info("run finished",
			"state", state.String(),
			"listed", res.Listed,
			"scanned", res.Scanned,
			"skipped", res.Skipped,
			"senders", res.Senders,
			"truncated", res.Truncated,
			"elapsed", res.Elapsed.Round(time.Millisecond))
	}

	if err := tracker.Transition(StateFetching, "Listing messages..."); err != nil {
		return res, err
	}
	a.logger.Info("run started", "query", q.Filter, "cap", q.Cap, "top", k)

	// Step 1: page through the listing.
	fetched, err := FetchRefs(ctx, a.src, q, a.opts.PageSize, func(loaded int) {
		tracker.Report(Progress{
			Indeterminate: true,
			Done:          loaded,
			Status:        fmt.Sprintf("%d messages loaded so far", loaded),
		})
	})
	res.Listed = len(fetched.Refs)
	res.Truncated = fetched.Truncated
	if ctx.Err() != nil {
		finish(StateCancelled, fmt.Sprintf("Cancelled while listing (%d loaded)", res.Listed))
		return res, nil
	}
	if err != nil {
		finish(StateFailed, "Listing failed")
		return res, err
	}

	total := len(fetched.Refs)
	status := fmt.Sprintf("Resolving senders of %d messages", total)
	if fetched.Truncated {
		status = fmt.Sprintf("Resolving senders of %d messages (capped at %d)", total, q.Cap)
		a.logger.Info("results truncated to cap", "cap", q.Cap)
	}
	if err := tracker.Transition(StateResolving, status); err != nil {
		return res, err
	}

	// Step 2: resolve senders.
	resolution, err := ResolveSenders(ctx, a.src, fetched.Refs, ResolveOptions{
		Workers:     a.opts.Workers,
		ReportEvery: a.opts.ReportEvery,
		Logger:      a.logger,
	}, func(done, skipped int) {
		tracker.Report(Progress{
			Fraction: float64(done) / float64(total),
			Done:     done,
			Total:    total,
			Skipped:  skipped,
			Status:   fmt.Sprintf("Resolved %d of %d messages (%d skipped)", done, total, skipped),
		})
	})
	res.Records = resolution.Records
	res.Scanned = resolution.Finished
	res.Skipped = resolution.Skipped

	table := NewTable()
	for _, r := range resolution.Records {
		table.Add(r.Address)
	}
	res.Senders = table.Len()

	switch {
	case err != nil && IsAuth(err):
		res.Ranked = table.Ranked(k)
		finish(StateFailed, "Authorization expired")
		return res, err
	case ctx.Err() != nil:
		res.Ranked = table.Ranked(k)
		finish(StateCancelled, fmt.Sprintf("Cancelled after %d of %d messages", res.Scanned, total))
		return res, nil
	case err != nil:
		finish(StateFailed, "Resolving failed")
		return res, err
	}

	// Step 3: rank.
	if err := tracker.Transition(StateRanking, "Ranking senders"); err != nil {
		return res, err
	}
	res.Ranked = table.Ranked(k)
	finish(StateDone, fmt.Sprintf("Top %d of %d senders across %d messages", len(res.Ranked), res.Senders, total))
	return res, nil
}
