package tally

import (
	"context"

	"sendertally/internal/model"
)

//go:generate mockgen -source=mailbox.go -destination=tallymock/mailbox.go -package=tallymock

// Lister pages through the message ids matching a search expression.
type Lister interface {
	ListMessages(ctx context.Context, query string, pageToken model.PageToken, pageSize int) (model.Page, error)
}

// HeaderSource fetches the raw From header of one message, metadata only.
type HeaderSource interface {
	FromHeader(ctx context.Context, ref model.MessageRef) (string, error)
}

// Trasher moves one message to trash.
type Trasher interface {
	Trash(ctx context.Context, ref model.MessageRef) error
}

// Mailbox is everything a run and its follow-up cleanup need from the mail service.
type Mailbox interface {
	Lister
	HeaderSource
	Trasher
}
