package tally

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"sendertally/internal/model"
	"sendertally/internal/util"
)

// ResolveOptions tunes the metadata stage.
type ResolveOptions struct {
	// Workers bounds the in-flight header fetches. 1 is strictly sequential.
	Workers int
	// ReportEvery is the progress cadence in finished items.
	ReportEvery int
	Logger      *slog.Logger
}

// Resolution is what the metadata stage produced.
type Resolution struct {
	// Records holds the messages that contributed a sender, in list order.
	Records []model.Record
	// Finished counts messages whose fetch completed, contributing or skipped.
	Finished int
	// Skipped counts messages that contributed nothing: failed fetch, vanished
	// message or an unparseable From value.
	Skipped int
}

// ResolveSenders fetches the From header of every ref and normalizes it.
//
// A failing item is logged, counted in Skipped and otherwise ignored; it never
// affects other items. The exception is ErrAuthExpired, which stops the stage
// and is returned. A cancelled ctx stops dispatching new fetches; what finished
// is returned together with ctx.Err().
//
// Records are slotted by position, so the result does not depend on the order
// in which fetches complete.
func ResolveSenders(ctx context.Context, src HeaderSource, refs []model.MessageRef, opts ResolveOptions, report func(done, skipped int)) (Resolution, error) {
	workerCount := opts.Workers
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > len(refs) && len(refs) > 0 {
		workerCount = len(refs)
	}
	every := opts.ReportEvery
	if every < 1 {
		every = 10
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var res Resolution
	if len(refs) == 0 {
		return res, ctx.Err()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		idx     int
		address string
		err     error
	}

	jobs := make(chan int)
	results := make(chan result, workerCount)

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				select {
				case <-runCtx.Done():
					return
				default:
				}
				ref := refs[idx]
				raw, err := src.FromHeader(runCtx, ref)
				var address string
				if err == nil {
					address = util.NormalizeAddress(raw)
					if address == "" {
						err = &FetchError{Op: "normalize", Ref: string(ref), Kind: ErrMalformedHeader, Err: errors.Errorf("value %q", raw)}
					}
				}
				results <- result{idx: idx, address: address, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range refs {
			select {
			case <-runCtx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	addresses := make([]string, len(refs))
	var fatal error
	for r := range results {
		if r.err != nil {
			if IsAuth(r.err) {
				if fatal == nil {
					fatal = r.err
					cancel()
				}
				continue
			}
			if runCtx.Err() != nil {
				// Interrupted by cancellation, not a failure of the message.
				continue
			}
			res.Skipped++
			logger.Debug("skipping message", "id", string(refs[r.idx]), "err", r.err)
		} else {
			addresses[r.idx] = r.address
		}
		res.Finished++
		if report != nil && res.Finished%every == 0 {
			report(res.Finished, res.Skipped)
		}
	}
	if report != nil && res.Finished%every != 0 {
		report(res.Finished, res.Skipped)
	}

	for i, a := range addresses {
		if a != "" {
			res.Records = append(res.Records, model.Record{Ref: refs[i], Address: a})
		}
	}

	if fatal != nil {
		return res, fatal
	}
	return res, ctx.Err()
}
