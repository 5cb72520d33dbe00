package gmail

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"sendertally/internal/model"
	"sendertally/internal/tally"
)

const user = "me"

// MailboxOptions tunes the API adapter. Zero values pick the defaults.
type MailboxOptions struct {
	// CallTimeout bounds every API request. Default 30s.
	CallTimeout time.Duration
	// RatePerSecond caps request rate; 0 disables limiting.
	RatePerSecond float64
	Logger        *slog.Logger
}

// Mailbox implements tally.Mailbox on top of the Gmail REST API. Every call is
// rate limited and bounded by a timeout, and its failures are classified into
// tally error kinds. List and trash calls are also guarded by a circuit
// breaker. Header fetches are not: each one must reach the service on its own.
type Mailbox struct {
	svc     *gmailv1.Service
	timeout time.Duration
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

var _ tally.Mailbox = (*Mailbox)(nil)

func NewMailbox(svc *gmailv1.Service, opts MailboxOptions) *Mailbox {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		burst := int(opts.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return &Mailbox{
		svc:     svc,
		timeout: timeout,
		limiter: limiter,
		breaker: newBreaker(logger),
		logger:  logger,
	}
}

func newBreaker(logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		IsSuccessful: func(err error) bool {
			if errors.Is(err, context.Canceled) {
				return true
			}
			return !tripsBreaker(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
}

// ListMessages returns one page of message ids matching query.
func (m *Mailbox) ListMessages(ctx context.Context, query string, pageToken model.PageToken, pageSize int) (model.Page, error) {
	var resp *gmailv1.ListMessagesResponse
	err := m.do(ctx, "list messages", "", true, func(ctx context.Context) error {
		call := m.svc.Users.Messages.List(user).
			Q(query).
			MaxResults(int64(pageSize)).
			Fields(googleapi.Field("messages/id"), googleapi.Field("nextPageToken"))
		if pageToken != "" {
			call = call.PageToken(string(pageToken))
		}
		var err error
		resp, err = call.Context(ctx).Do()
		return err
	})
	if err != nil {
		return model.Page{}, err
	}

	page := model.Page{
		Refs:          make([]model.MessageRef, 0, len(resp.Messages)),
		NextPageToken: model.PageToken(resp.NextPageToken),
	}
	for _, msg := range resp.Messages {
		page.Refs = append(page.Refs, model.MessageRef(msg.Id))
	}
	m.logger.Debug("listed page", "count", len(page.Refs), "more", page.NextPageToken != "")
	return page, nil
}

// FromHeader fetches only the From header of ref.
func (m *Mailbox) FromHeader(ctx context.Context, ref model.MessageRef) (string, error) {
	var msg *gmailv1.Message
	err := m.do(ctx, "get message", ref, false, func(ctx context.Context) error {
		var err error
		msg, err = m.svc.Users.Messages.Get(user, string(ref)).
			Format("metadata").
			MetadataHeaders("From").
			Fields(googleapi.Field("payload/headers")).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return "", err
	}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			if strings.EqualFold(h.Name, "from") {
				return h.Value, nil
			}
		}
	}
	return "", &tally.FetchError{Op: "get message", Ref: string(ref), Kind: tally.ErrMalformedHeader, Err: errors.New("no From header")}
}

// Trash moves ref to the trash.
func (m *Mailbox) Trash(ctx context.Context, ref model.MessageRef) error {
	return m.do(ctx, "trash message", ref, true, func(ctx context.Context) error {
		_, err := m.svc.Users.Messages.Trash(user, string(ref)).
			Fields(googleapi.Field("id")).
			Context(ctx).
			Do()
		return err
	})
}

// do runs one API call under the limiter and the per-call timeout, and under
// the breaker when guarded is set. A cancelled parent ctx is returned as-is so
// callers can tell it apart from a failure of the call.
func (m *Mailbox) do(ctx context.Context, op string, ref model.MessageRef, guarded bool, call func(context.Context) error) error {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return Classify(op, ref, err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var err error
	if guarded {
		_, err = m.breaker.Execute(func() (interface{}, error) {
			return nil, call(callCtx)
		})
	} else {
		err = call(callCtx)
	}
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return Classify(op, ref, err)
}
