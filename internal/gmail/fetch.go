package gmail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inboxlens/inboxlens/internal/rate"
)

// Store caches fetched messages for the duration of a session so repeated
// runs do not refetch identical records.
type Store interface {
	Get(ctx context.Context, id MessageID) (RawMessage, bool, error)
	Put(ctx context.Context, msgs []RawMessage) error
}

const defaultPageSize = 500

// Fetcher retrieves message records in bulk: a paginated ID listing followed
// by per-message fetches, rate limited and optionally served from a cache.
type Fetcher struct {
	Client   Client
	Limiter  rate.Limiter
	Logger   *slog.Logger
	Store    Store
	PageSize int
	// Progress, when set, is invoked after each fetched message with the
	// number fetched so far and the total to fetch. Fire and forget.
	Progress func(fetched, total int)
}

// Fetch returns every message matching q. Cached records are returned
// without touching the API; fresh records are written back to the store.
func (f *Fetcher) Fetch(ctx context.Context, q Query) ([]RawMessage, error) {
	pageSize := f.PageSize
	if pageSize <= 0 || pageSize > defaultPageSize {
		pageSize = defaultPageSize
	}

	ids, err := f.listAll(ctx, q, pageSize)
	if err != nil {
		return nil, err
	}
	if f.Logger != nil {
		f.Logger.InfoContext(ctx, "listed messages", slog.Int("count", len(ids)))
	}

	msgs := make([]RawMessage, 0, len(ids))
	var fresh []RawMessage
	for i, id := range ids {
		msg, ok, err := f.cached(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			if err := f.wait(ctx, rate.UnitsGet); err != nil {
				return nil, err
			}
			msg, err = f.Client.GetMessage(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("get message %s: %w", id, err)
			}
			fresh = append(fresh, msg)
		}
		msgs = append(msgs, msg)
		if f.Progress != nil {
			f.Progress(i+1, len(ids))
		}
	}

	if f.Store != nil && len(fresh) > 0 {
		if err := f.Store.Put(ctx, fresh); err != nil {
			return nil, fmt.Errorf("cache messages: %w", err)
		}
	}
	return msgs, nil
}

func (f *Fetcher) listAll(ctx context.Context, q Query, pageSize int) ([]MessageID, error) {
	var (
		ids   []MessageID
		token string
	)
	for {
		if err := f.wait(ctx, rate.UnitsList); err != nil {
			return nil, err
		}
		page, err := f.Client.List(ctx, q, token, pageSize)
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		if token == "" && f.Progress != nil && page.EstimatedTotal > 0 {
			// Size progress from the provider estimate before listing
			// completes; the exact total follows with the first fetch.
			f.Progress(0, page.EstimatedTotal)
		}
		ids = append(ids, page.IDs...)
		if page.NextPageToken == "" {
			return ids, nil
		}
		token = page.NextPageToken
	}
}

func (f *Fetcher) cached(ctx context.Context, id MessageID) (RawMessage, bool, error) {
	if f.Store == nil {
		return RawMessage{}, false, nil
	}
	msg, ok, err := f.Store.Get(ctx, id)
	if err != nil {
		return RawMessage{}, false, fmt.Errorf("read cache %s: %w", id, err)
	}
	return msg, ok, nil
}

func (f *Fetcher) wait(ctx context.Context, units int) error {
	if f.Limiter == nil {
		return nil
	}
	if err := f.Limiter.Wait(ctx, units); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}
