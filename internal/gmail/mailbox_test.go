package gmail

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"sendertally/internal/model"
	"sendertally/internal/tally"
)

// fakeGmail serves the few endpoints the adapter uses.
type fakeGmail struct {
	mu       sync.Mutex
	requests []*http.Request
	trashed  []string
}

func (f *fakeGmail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	path := strings.TrimPrefix(r.URL.Path, "/gmail/v1/users/me/")
	switch {
	case path == "messages" && r.Method == http.MethodGet:
		if r.URL.Query().Get("pageToken") == "" {
			fmt.Fprint(w, `{"messages":[{"id":"m1"},{"id":"m2"}],"nextPageToken":"p2"}`)
			return
		}
		fmt.Fprint(w, `{"messages":[{"id":"m3"}]}`)
	case path == "messages/m1":
		fmt.Fprint(w, `{"payload":{"headers":[{"name":"From","value":"Alice <alice@example.com>"}]}}`)
	case path == "messages/nofrom":
		fmt.Fprint(w, `{"payload":{"headers":[]}}`)
	case path == "messages/expired":
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"code":401,"message":"Invalid Credentials"}}`)
	case strings.HasSuffix(path, "/trash") && r.Method == http.MethodPost:
		id := strings.TrimSuffix(strings.TrimPrefix(path, "messages/"), "/trash")
		f.mu.Lock()
		f.trashed = append(f.trashed, id)
		f.mu.Unlock()
		fmt.Fprintf(w, `{"id":%q}`, id)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":404,"message":"Requested entity was not found."}}`)
	}
}

func newTestMailbox(t *testing.T) (*Mailbox, *fakeGmail) {
	t.Helper()
	fake := &fakeGmail{}
	return mailboxFor(t, fake), fake
}

func mailboxFor(t *testing.T, h http.Handler) *Mailbox {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	svc, err := gmailv1.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewMailbox(svc, MailboxOptions{})
}

// flakyGmail answers the first failFor requests with 503 and serves every
// message afterwards.
type flakyGmail struct {
	failFor int32
	calls   atomic.Int32
}

func (f *flakyGmail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if f.calls.Add(1) <= f.failFor {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":{"code":503,"message":"Backend Error"}}`)
		return
	}
	if strings.HasSuffix(r.URL.Path, "/messages") {
		fmt.Fprint(w, `{"messages":[{"id":"m1"}]}`)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/gmail/v1/users/me/messages/")
	fmt.Fprintf(w, `{"payload":{"headers":[{"name":"From","value":"%s@example.com"}]}}`, id)
}

func TestMailbox_ListMessages(t *testing.T) {
	mbox, fake := newTestMailbox(t)
	ctx := context.Background()

	page, err := mbox.ListMessages(ctx, "in:inbox after:1", "", 2)
	require.NoError(t, err)
	assert.Equal(t, []model.MessageRef{"m1", "m2"}, page.Refs)
	assert.Equal(t, model.PageToken("p2"), page.NextPageToken)

	page, err = mbox.ListMessages(ctx, "in:inbox after:1", page.NextPageToken, 2)
	require.NoError(t, err)
	assert.Equal(t, []model.MessageRef{"m3"}, page.Refs)
	assert.Empty(t, page.NextPageToken)

	q := fake.requests[0].URL.Query()
	assert.Equal(t, "in:inbox after:1", q.Get("q"))
	assert.Equal(t, "2", q.Get("maxResults"))
	assert.Contains(t, q.Get("fields"), "messages/id")
}

func TestMailbox_FromHeaderRequestsMetadataOnly(t *testing.T) {
	mbox, fake := newTestMailbox(t)

	from, err := mbox.FromHeader(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Alice <alice@example.com>", from)

	q := fake.requests[0].URL.Query()
	assert.Equal(t, "metadata", q.Get("format"))
	assert.Equal(t, []string{"From"}, q["metadataHeaders"])
}

func TestMailbox_FromHeaderErrors(t *testing.T) {
	mbox, _ := newTestMailbox(t)
	ctx := context.Background()

	_, err := mbox.FromHeader(ctx, "nofrom")
	assert.ErrorIs(t, err, tally.ErrMalformedHeader)

	_, err = mbox.FromHeader(ctx, "gone")
	assert.ErrorIs(t, err, tally.ErrNotFound)

	_, err = mbox.FromHeader(ctx, "expired")
	assert.ErrorIs(t, err, tally.ErrAuthExpired)
}

func TestMailbox_CancelledContextIsNotClassified(t *testing.T) {
	mbox, _ := newTestMailbox(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mbox.FromHeader(ctx, "m1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, tally.IsRetryable(err))
}

func TestMailbox_Trash(t *testing.T) {
	mbox, fake := newTestMailbox(t)

	report, err := TrashMessages(context.Background(), mbox, []model.MessageRef{"m1", "m2"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []model.MessageRef{"m1", "m2"}, report.Trashed)
	assert.Equal(t, []string{"m1", "m2"}, fake.trashed)
}

func TestMailbox_HeaderFailuresStayPerMessage(t *testing.T) {
	fake := &flakyGmail{failFor: 6}
	mbox := mailboxFor(t, fake)

	refs := make([]model.MessageRef, 100)
	for i := range refs {
		refs[i] = model.MessageRef(fmt.Sprintf("m%03d", i))
	}
	res, err := tally.ResolveSenders(context.Background(), mbox, refs, tally.ResolveOptions{Workers: 1}, nil)
	require.NoError(t, err)

	assert.Equal(t, int32(100), fake.calls.Load(), "every message must be requested")
	assert.Equal(t, 6, res.Skipped)
	assert.Len(t, res.Records, 94)
	assert.Equal(t, "m006@example.com", res.Records[0].Address)
}

func TestMailbox_ListCallsTripBreaker(t *testing.T) {
	fake := &flakyGmail{failFor: 1000}
	mbox := mailboxFor(t, fake)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := mbox.ListMessages(ctx, "in:inbox", "", 10)
		require.ErrorIs(t, err, tally.ErrTransient)
	}
	_, err := mbox.ListMessages(ctx, "in:inbox", "", 10)
	assert.ErrorIs(t, err, tally.ErrTransient)
	assert.Equal(t, int32(6), fake.calls.Load(), "open breaker must not reach the service")
}
