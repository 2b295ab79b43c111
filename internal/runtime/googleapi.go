// Package runtime wires the Google API surface and process-level defaults.
package runtime

import (
	"context"
	"fmt"

	gmailv1 "google.golang.org/api/gmail/v1"

	"github.com/inboxlens/inboxlens/internal/gmail"
)

type googleClient struct {
	svc *gmailv1.Service
}

// NewGoogleAPIClient adapts a *gmailv1.Service to the narrow gmail.Client
// interface the rest of the program consumes.
func NewGoogleAPIClient(svc *gmailv1.Service) gmail.Client {
	return &googleClient{svc: svc}
}

func (g *googleClient) List(
	ctx context.Context,
	q gmail.Query,
	pageToken string,
	pageSize int,
) (gmail.ListPage, error) {
	call := g.svc.Users.Messages.List("me").Q(q.Raw).MaxResults(int64(pageSize))
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return gmail.ListPage{}, fmt.Errorf("list messages: %w", err)
	}
	page := gmail.ListPage{
		NextPageToken:  res.NextPageToken,
		EstimatedTotal: int(res.ResultSizeEstimate),
	}
	for _, m := range res.Messages {
		page.IDs = append(page.IDs, gmail.MessageID(m.Id))
	}
	return page, nil
}

func (g *googleClient) GetMessage(
	ctx context.Context,
	id gmail.MessageID,
) (gmail.RawMessage, error) {
	msg, err := g.svc.Users.Messages.Get("me", string(id)).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return gmail.RawMessage{}, fmt.Errorf("get message %s: %w", id, err)
	}
	return convertMessage(msg), nil
}

func convertMessage(m *gmailv1.Message) gmail.RawMessage {
	raw := gmail.RawMessage{
		ID:           gmail.MessageID(m.Id),
		ThreadID:     m.ThreadId,
		SizeEstimate: m.SizeEstimate,
		InternalDate: m.InternalDate,
		Payload:      convertPart(m.Payload),
	}
	for _, l := range m.LabelIds {
		raw.LabelIDs = append(raw.LabelIDs, gmail.LabelID(l))
	}
	return raw
}

func convertPart(p *gmailv1.MessagePart) *gmail.Part {
	if p == nil {
		return nil
	}
	part := &gmail.Part{
		MimeType: p.MimeType,
		Filename: p.Filename,
	}
	if len(p.Headers) > 0 {
		part.Headers = make(map[string]string, len(p.Headers))
		for _, h := range p.Headers {
			if _, ok := part.Headers[h.Name]; !ok {
				part.Headers[h.Name] = h.Value
			}
		}
	}
	for _, child := range p.Parts {
		part.Parts = append(part.Parts, convertPart(child))
	}
	return part
}
