package gmail

import "strings"

// MessageID is a Gmail message identifier.
type MessageID string

// LabelID is a Gmail label identifier.
type LabelID string

// Part is one node of a message MIME tree. Filename is non-empty for
// attachment parts. Headers are populated on the payload root.
type Part struct {
	MimeType string            `json:"mime_type,omitempty"`
	Filename string            `json:"filename,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
	Parts    []*Part           `json:"parts,omitempty"`
}

// Header returns the value of the named header, matching case-insensitively.
func (p *Part) Header(name string) string {
	if p == nil {
		return ""
	}
	if v, ok := p.Headers[name]; ok {
		return v
	}
	for k, v := range p.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// RawMessage is the provider record as fetched, before normalization. It is
// untrusted input: any field may be missing or malformed.
type RawMessage struct {
	ID           MessageID `json:"id"`
	ThreadID     string    `json:"thread_id,omitempty"`
	SizeEstimate int64     `json:"size_estimate,omitempty"`
	LabelIDs     []LabelID `json:"label_ids,omitempty"`
	InternalDate int64     `json:"internal_date,omitempty"` // epoch millis per Gmail
	Payload      *Part     `json:"payload,omitempty"`
}

// ListPage is one page of a message listing.
type ListPage struct {
	IDs            []MessageID
	NextPageToken  string
	EstimatedTotal int
}

// Query is a raw Gmail search string, already formed
// (e.g. `newer_than:90d -in:chats`).
type Query struct {
	Raw string
}
