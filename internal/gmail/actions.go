package gmail

import (
	"context"

	"sendertally/internal/model"
	"sendertally/internal/tally"
)

// TrashMessages moves each ref to the trash. A failure on one message is
// recorded in the report and the batch continues; an auth failure or a
// cancelled ctx stops it and is returned alongside the partial report.
// progress, when non-nil, is called after every attempt.
func TrashMessages(ctx context.Context, t tally.Trasher, refs []model.MessageRef, progress func(done, total int)) (model.TrashReport, error) {
	report := model.TrashReport{
		Requested: len(refs),
		Failed:    make(map[model.MessageRef]error),
	}
	for i, ref := range refs {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		err := t.Trash(ctx, ref)
		switch {
		case err == nil:
			report.Trashed = append(report.Trashed, ref)
		case ctx.Err() != nil:
			return report, ctx.Err()
		case tally.IsAuth(err):
			report.Failed[ref] = err
			return report, err
		default:
			report.Failed[ref] = err
		}
		if progress != nil {
			progress(i+1, len(refs))
		}
	}
	return report, nil
}
