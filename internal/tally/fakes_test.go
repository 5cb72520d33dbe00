package tally

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"sendertally/internal/model"
)

// pagedLister serves pre-built pages; the page token is the next page index.
type pagedLister struct {
	pages [][]model.MessageRef
	err   error

	calls int
	sizes []int
}

func (l *pagedLister) ListMessages(ctx context.Context, query string, token model.PageToken, size int) (model.Page, error) {
	l.calls++
	l.sizes = append(l.sizes, size)
	if l.err != nil {
		return model.Page{}, l.err
	}
	i := 0
	if token != "" {
		i, _ = strconv.Atoi(string(token))
	}
	if i >= len(l.pages) {
		return model.Page{}, nil
	}
	var next model.PageToken
	if i+1 < len(l.pages) {
		next = model.PageToken(strconv.Itoa(i + 1))
	}
	return model.Page{Refs: l.pages[i], NextPageToken: next}, nil
}

func makePages(sizes ...int) [][]model.MessageRef {
	pages := make([][]model.MessageRef, 0, len(sizes))
	n := 0
	for _, size := range sizes {
		page := make([]model.MessageRef, size)
		for i := range page {
			page[i] = model.MessageRef(fmt.Sprintf("m%05d", n))
			n++
		}
		pages = append(pages, page)
	}
	return pages
}

func refs(ids ...string) []model.MessageRef {
	out := make([]model.MessageRef, len(ids))
	for i, id := range ids {
		out[i] = model.MessageRef(id)
	}
	return out
}

type headerReply struct {
	from string
	err  error
}

// headerMap answers FromHeader from a fixed table and counts calls.
type headerMap struct {
	mu      sync.Mutex
	replies map[model.MessageRef]headerReply
	calls   int
	hook    func(call int)
}

func (h *headerMap) FromHeader(ctx context.Context, ref model.MessageRef) (string, error) {
	h.mu.Lock()
	h.calls++
	call := h.calls
	reply, ok := h.replies[ref]
	hook := h.hook
	h.mu.Unlock()
	if hook != nil {
		hook(call)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !ok {
		return "", &FetchError{Op: "get message", Ref: string(ref), Kind: ErrNotFound}
	}
	return reply.from, reply.err
}
