package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"sendertally/internal/model"
	"sendertally/internal/tally"
)

var (
	ErrRunInProgress = errors.New("a run is already in progress")
	ErrNoRun         = errors.New("no run has been started")

	errPartialRun = errors.New("the last run was cancelled; run it again before trashing")
)

// Analyzer runs one aggregation. *tally.Aggregator implements it.
type Analyzer interface {
	Run(ctx context.Context, q tally.SearchQuery, k int, tracker *tally.Tracker) (tally.Result, error)
}

// RecordIndex keeps the records of the latest run. *session.Store implements it.
type RecordIndex interface {
	Replace(ctx context.Context, records []model.Record) error
	MessageIDsFrom(ctx context.Context, addresses []string) ([]model.MessageRef, error)
	Forget(ctx context.Context, ids []model.MessageRef) error
}

// RunStatus is the polled view of the current run.
type RunStatus struct {
	Progress tally.Progress `json:"progress"`
	Running  bool           `json:"running"`
	Started  time.Time      `json:"started"`
	Result   *RunResult     `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// RunResult is the finished part of RunStatus.
type RunResult struct {
	Ranked    []model.SenderCount `json:"ranked"`
	Listed    int                 `json:"listed"`
	Scanned   int                 `json:"scanned"`
	Skipped   int                 `json:"skipped"`
	Senders   int                 `json:"senders"`
	Truncated bool                `json:"truncated"`
	Cancelled bool                `json:"cancelled"`
	ElapsedMS int64               `json:"elapsed_ms"`
}

type run struct {
	tracker *tally.Tracker
	cancel  context.CancelFunc
	started time.Time
	done    chan struct{}

	// set once done is closed
	result tally.Result
	err    error
}

// Runner allows one run at a time and keeps the last one for polling.
type Runner struct {
	analyzer Analyzer
	index    RecordIndex
	top      int
	logger   *slog.Logger

	mu      sync.Mutex
	current *run
}

func NewRunner(analyzer Analyzer, index RecordIndex, top int, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{analyzer: analyzer, index: index, top: top, logger: logger}
}

// Start launches a run in the background.
func (r *Runner) Start(q tally.SearchQuery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil && !isDone(r.current) {
		return ErrRunInProgress
	}

	ctx, cancel := context.WithCancel(context.Background())
	cur := &run{
		tracker: tally.NewTracker(nil),
		cancel:  cancel,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	r.current = cur

	go func() {
		defer cancel()
		res, err := r.analyzer.Run(ctx, q, r.top, cur.tracker)
		if r.index != nil {
			if ierr := r.index.Replace(context.Background(), res.Records); ierr != nil {
				r.logger.Warn("index run records", "error", ierr)
			}
		}
		if err != nil {
			r.logger.Error("run failed", "error", err)
		}
		cur.result, cur.err = res, err
		close(cur.done)
	}()
	return nil
}

// Cancel stops the active run.
func (r *Runner) Cancel() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return ErrNoRun
	}
	if isDone(r.current) {
		return errors.New("run already finished")
	}
	r.current.cancel()
	return nil
}

// Busy reports whether a run is active.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil && !isDone(r.current)
}

// LastCancelled reports whether the latest run finished by being cancelled.
// Its records cover only part of the range.
func (r *Runner) LastCancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil && isDone(r.current) && r.current.result.Cancelled()
}

// Status returns the state of the latest run.
func (r *Runner) Status() (RunStatus, error) {
	r.mu.Lock()
	cur := r.current
	r.mu.Unlock()
	if cur == nil {
		return RunStatus{}, ErrNoRun
	}

	st := RunStatus{
		Progress: cur.tracker.Snapshot(),
		Started:  cur.started,
		Running:  !isDone(cur),
	}
	if st.Running {
		return st, nil
	}
	res := cur.result
	st.Result = &RunResult{
		Ranked:    res.Ranked,
		Listed:    res.Listed,
		Scanned:   res.Scanned,
		Skipped:   res.Skipped,
		Senders:   res.Senders,
		Truncated: res.Truncated,
		Cancelled: res.Cancelled(),
		ElapsedMS: res.Elapsed.Milliseconds(),
	}
	if st.Result.Ranked == nil {
		st.Result.Ranked = []model.SenderCount{}
	}
	if cur.err != nil {
		st.Error = cur.err.Error()
	}
	return st, nil
}

// Wait blocks until the latest run finishes or ctx ends.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.Lock()
	cur := r.current
	r.mu.Unlock()
	if cur == nil {
		return nil
	}
	select {
	case <-cur.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isDone(cur *run) bool {
	select {
	case <-cur.done:
		return true
	default:
		return false
	}
}
