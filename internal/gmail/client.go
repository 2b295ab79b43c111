package gmail

import "context"

// Client is the narrow Gmail surface required by inboxlens.
type Client interface {
	List(ctx context.Context, q Query, pageToken string, pageSize int) (ListPage, error)
	GetMessage(ctx context.Context, id MessageID) (RawMessage, error)
}
