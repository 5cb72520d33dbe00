package tally

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sendertally/internal/model"
)

func TestResolveSenders_OneFailureDoesNotAbort(t *testing.T) {
	src := &headerMap{replies: map[model.MessageRef]headerReply{
		"1": {from: "Alice <alice@example.com>"},
		"2": {from: "bob@example.com"},
		"3": {err: &FetchError{Op: "get message", Ref: "3", Kind: ErrTransient, Err: errors.New("connection reset")}},
		"4": {from: `"Alice" <ALICE@example.com>`},
		"5": {from: "carol@example.com"},
	}}

	res, err := ResolveSenders(context.Background(), src, refs("1", "2", "3", "4", "5"), ResolveOptions{Workers: 1}, nil)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Finished)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []model.Record{
		{Ref: "1", Address: "alice@example.com"},
		{Ref: "2", Address: "bob@example.com"},
		{Ref: "4", Address: "alice@example.com"},
		{Ref: "5", Address: "carol@example.com"},
	}, res.Records)
}

func TestResolveSenders_MalformedAndMissingAreSkips(t *testing.T) {
	src := &headerMap{replies: map[model.MessageRef]headerReply{
		"1": {from: "undisclosed-recipients"},
		"2": {from: ""},
		"3": {from: "ok@example.com"},
	}}

	res, err := ResolveSenders(context.Background(), src, refs("1", "2", "3", "gone"), ResolveOptions{Workers: 2}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Skipped)
	assert.Equal(t, []model.Record{{Ref: "3", Address: "ok@example.com"}}, res.Records)
}

func TestResolveSenders_OrderIndependentOfWorkers(t *testing.T) {
	replies := make(map[model.MessageRef]headerReply)
	var ids []string
	for i := 0; i < 60; i++ {
		id := fmt.Sprintf("m%02d", i)
		ids = append(ids, id)
		replies[model.MessageRef(id)] = headerReply{from: fmt.Sprintf("sender%d@example.com", i%7)}
	}
	r := rand.New(rand.NewSource(1))
	jitter := make([]time.Duration, 61)
	for i := range jitter {
		jitter[i] = time.Duration(r.Intn(300)) * time.Microsecond
	}

	sequential, err := ResolveSenders(context.Background(), &headerMap{replies: replies}, refs(ids...), ResolveOptions{Workers: 1}, nil)
	require.NoError(t, err)

	src := &headerMap{replies: replies, hook: func(call int) { time.Sleep(jitter[call%len(jitter)]) }}
	parallel, err := ResolveSenders(context.Background(), src, refs(ids...), ResolveOptions{Workers: 8}, nil)
	require.NoError(t, err)

	assert.Equal(t, sequential.Records, parallel.Records)
	assert.Equal(t, 60, parallel.Finished)
}

func TestResolveSenders_ReportsMonotonically(t *testing.T) {
	replies := make(map[model.MessageRef]headerReply)
	var ids []string
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("m%02d", i)
		ids = append(ids, id)
		if i%5 == 0 {
			replies[model.MessageRef(id)] = headerReply{err: &FetchError{Op: "get message", Kind: ErrTransient}}
			continue
		}
		replies[model.MessageRef(id)] = headerReply{from: "x@example.com"}
	}

	var done []int
	var lastSkipped int
	_, err := ResolveSenders(context.Background(), &headerMap{replies: replies}, refs(ids...), ResolveOptions{Workers: 4, ReportEvery: 10}, func(d, s int) {
		done = append(done, d)
		lastSkipped = s
	})
	require.NoError(t, err)

	assert.Equal(t, []int{10, 20, 25}, done)
	assert.Equal(t, 5, lastSkipped)
}

func TestResolveSenders_AuthExpiredAborts(t *testing.T) {
	replies := map[model.MessageRef]headerReply{
		"1": {from: "a@example.com"},
		"2": {err: &FetchError{Op: "get message", Ref: "2", Kind: ErrAuthExpired}},
	}
	for i := 3; i < 50; i++ {
		replies[model.MessageRef(fmt.Sprint(i))] = headerReply{from: "b@example.com"}
	}
	ids := []string{"1", "2"}
	for i := 3; i < 50; i++ {
		ids = append(ids, fmt.Sprint(i))
	}

	src := &headerMap{replies: replies}
	res, err := ResolveSenders(context.Background(), src, refs(ids...), ResolveOptions{Workers: 1}, nil)
	require.Error(t, err)
	assert.True(t, IsAuth(err))
	assert.Less(t, src.calls, 49, "dispatch stops after the auth failure")
	assert.NotEmpty(t, res.Records)
}

func TestResolveSenders_CancelStopsWithinInFlightCalls(t *testing.T) {
	replies := make(map[model.MessageRef]headerReply)
	var ids []string
	for i := 0; i < 100; i++ {
		id := fmt.Sprint(i)
		ids = append(ids, id)
		replies[model.MessageRef(id)] = headerReply{from: "a@example.com"}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &headerMap{replies: replies, hook: func(call int) {
		if call == 10 {
			cancel()
		}
	}}

	const workers = 4
	res, err := ResolveSenders(ctx, src, refs(ids...), ResolveOptions{Workers: workers}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, src.calls, 10+workers)
	assert.Zero(t, res.Skipped, "cancelled fetches are not skips")
	assert.Less(t, res.Finished, 100)
	assert.Len(t, res.Records, res.Finished)
}

func TestResolveSenders_Empty(t *testing.T) {
	res, err := ResolveSenders(context.Background(), &headerMap{}, nil, ResolveOptions{}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Zero(t, res.Finished)
}
