package gmail

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"sendertally/internal/model"
	"sendertally/internal/tally"
)

// retryingMailbox retries transient ListMessages failures with exponential
// backoff. Header fetches and trash calls pass straight through: a failed
// header is a skip, not a reason to stall the run.
type retryingMailbox struct {
	tally.Mailbox
	retries uint64
	logger  *slog.Logger

	// newBackOff is swapped in tests to avoid real sleeps.
	newBackOff func() backoff.BackOff
}

// WithListRetry wraps mbox so that up to retries additional attempts are made
// for a listing call that failed with a transient error. retries <= 0 returns
// mbox unchanged.
func WithListRetry(mbox tally.Mailbox, retries int, logger *slog.Logger) tally.Mailbox {
	if retries <= 0 {
		return mbox
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &retryingMailbox{
		Mailbox: mbox,
		retries: uint64(retries),
		logger:  logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			return b
		},
	}
}

func (r *retryingMailbox) ListMessages(ctx context.Context, query string, pageToken model.PageToken, pageSize int) (model.Page, error) {
	policy := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.retries), ctx)

	op := func() (model.Page, error) {
		page, err := r.Mailbox.ListMessages(ctx, query, pageToken, pageSize)
		if err != nil && !tally.IsRetryable(err) {
			return model.Page{}, backoff.Permanent(err)
		}
		return page, err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn("list messages failed, retrying", "error", err, "wait", wait)
	}
	return backoff.RetryNotifyWithData(op, policy, notify)
}
