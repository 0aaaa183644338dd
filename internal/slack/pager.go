package slack

import "context"

// fetchPage returns one page of items plus the cursor for the following
// page. An empty cursor means the listing is exhausted.
type fetchPage[T any] func(ctx context.Context, cursor string) ([]T, string, error)

// pager is a lazy, finite, non-restartable sequence of pages over a
// cursor-paginated list endpoint. It owns the cursor; callers just keep
// asking for the next page until ok is false.
type pager[T any] struct {
	fetch  fetchPage[T]
	cursor string
	done   bool
}

func newPager[T any](fetch fetchPage[T]) *pager[T] {
	return &pager[T]{fetch: fetch}
}

// next returns the next page. ok is false once the platform reported no
// further cursor or after a fetch error; the pager cannot be restarted.
func (p *pager[T]) next(ctx context.Context) (items []T, ok bool, err error) {
	if p.done {
		return nil, false, nil
	}

	items, cursor, err := p.fetch(ctx, p.cursor)
	if err != nil {
		p.done = true
		return nil, false, err
	}

	p.cursor = cursor
	if cursor == "" {
		p.done = true
	}

	return items, true, nil
}

// findFirst walks pages until match returns true for an item, the pages
// run out, or a fetch fails.
func findFirst[T any](ctx context.Context, p *pager[T], match func(T) bool) (T, bool, error) {
	var zero T
	for {
		items, ok, err := p.next(ctx)
		if err != nil {
			return zero, false, err
		}
		if !ok {
			return zero, false, nil
		}
		for _, item := range items {
			if match(item) {
				return item, true, nil
			}
		}
	}
}
