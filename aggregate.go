package attrstore

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// FetchAll reads every page matching in and returns the accumulated items in page
// order. Reads are always consistent. The first failing page aborts the fetch and no
// partial results are returned; cancellation of ctx is reported as a *TimeoutError.
func FetchAll(ctx context.Context, store Store, in SelectInput) ([]Item, error) {
	return fetchAll(ctx, store, in, zap.NewNop())
}

func fetchAll(ctx context.Context, store Store, in SelectInput, logger *zap.Logger) ([]Item, error) {
	var (
		items []Item
		pages int
	)

	in.ConsistentRead = true
	in.NextToken = ""

	for {
		if err := ctx.Err(); err != nil {
			return nil, &TimeoutError{Domain: in.Domain, Pages: pages, Err: err}
		}

		page := in
		out, err := store.Select(ctx, &page)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, &TimeoutError{Domain: in.Domain, Pages: pages, Err: ctxErr}
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, &TimeoutError{Domain: in.Domain, Pages: pages, Err: err}
			}
			return nil, &StoreError{Op: "Select", Domain: in.Domain, Err: err}
		}

		pages++
		items = append(items, out.Items...)

		logger.Debug("fetched page",
			zap.String("domain", in.Domain),
			zap.Int("page", pages),
			zap.Int("items", len(out.Items)),
		)

		if out.NextToken == "" {
			return items, nil
		}
		in.NextToken = out.NextToken
	}
}
