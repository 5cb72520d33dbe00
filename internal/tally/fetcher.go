package tally

import (
	"context"

	"github.com/pkg/errors"

	"sendertally/internal/model"
)

// MaxPageSize is the largest page Gmail hands out per list call.
const MaxPageSize = 500

// FetchResult is the outcome of paging through a query.
type FetchResult struct {
	Refs []model.MessageRef
	// Truncated is set when more matching messages existed than the cap.
	Truncated bool
	// Calls is the number of list requests issued.
	Calls int
}

// FetchRefs pages through q.Filter until the listing is exhausted or at least
// q.Cap ids have been collected, then truncates to exactly q.Cap keeping the
// order the service returned them in. Whole pages are always requested; only
// the final accumulated slice is cut. report, if non-nil, is called after each
// page with the number of ids loaded so far.
//
// A cancelled ctx stops paging between calls and returns what was loaded
// together with ctx.Err(). List failures are returned as-is; retrying is the
// caller's call.
func FetchRefs(ctx context.Context, lister Lister, q SearchQuery, pageSize int, report func(loaded int)) (FetchResult, error) {
	var res FetchResult
	if q.Cap < 1 {
		return res, errors.Errorf("cap must be at least 1, got %d", q.Cap)
	}
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if pageSize > q.Cap {
		pageSize = q.Cap
	}

	var token model.PageToken
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		page, err := lister.ListMessages(ctx, q.Filter, token, pageSize)
		res.Calls++
		if err != nil {
			return res, errors.Wrapf(err, "list messages (page %d)", res.Calls)
		}
		res.Refs = append(res.Refs, page.Refs...)
		if report != nil {
			report(min(len(res.Refs), q.Cap))
		}

		token = page.NextPageToken
		if token == "" || len(res.Refs) >= q.Cap {
			break
		}
	}

	if len(res.Refs) > q.Cap {
		res.Refs = res.Refs[:q.Cap:q.Cap]
		res.Truncated = true
	} else if token != "" {
		// Exactly at the cap with more pages left.
		res.Truncated = true
	}
	return res, nil
}
