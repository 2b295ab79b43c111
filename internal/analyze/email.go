// Package analyze is the inbox analysis core: it normalizes raw provider
// records into canonical emails and computes grouped, ranked, and derived
// statistical views over them. It performs no network or DOM/file I/O; all
// inputs are in-memory collections handed in by the caller.
package analyze

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/inboxlens/inboxlens/internal/gmail"
)

// Category is the provider-level mail category derived from labels.
type Category string

const (
	CategoryPrimary    Category = "primary"
	CategoryPromotions Category = "promotions"
	CategorySocial     Category = "social"
	CategoryUpdates    Category = "updates"
	CategoryForums     Category = "forums"
	CategorySpam       Category = "spam"
	CategoryImportant  Category = "important"
)

// categoryPriority lists label IDs in derivation priority order; the first
// label present wins, and anything else falls back to primary.
var categoryPriority = []struct {
	label    gmail.LabelID
	category Category
}{
	{"CATEGORY_PROMOTIONS", CategoryPromotions},
	{"CATEGORY_SOCIAL", CategorySocial},
	{"CATEGORY_UPDATES", CategoryUpdates},
	{"CATEGORY_FORUMS", CategoryForums},
	{"SPAM", CategorySpam},
	{"IMPORTANT", CategoryImportant},
}

// CategoryFromLabels derives the category for a label set. It is total:
// every input, including the empty set, maps to one of the seven categories.
func CategoryFromLabels(labels []gmail.LabelID) Category {
	present := make(map[gmail.LabelID]struct{}, len(labels))
	for _, l := range labels {
		present[l] = struct{}{}
	}
	for _, p := range categoryPriority {
		if _, ok := present[p.label]; ok {
			return p.category
		}
	}
	return CategoryPrimary
}

// NoSubject is the sentinel stored when a message has no usable subject.
const NoSubject = "(No Subject)"

// Email is the canonical, provider-agnostic record used by all analyzers.
// SenderEmail and Subject are never empty-by-accident: unparseable senders
// yield "" and absent subjects yield NoSubject, so analyzers never need to
// branch on missing fields.
type Email struct {
	ID             gmail.MessageID `json:"id"`
	ThreadID       string          `json:"thread_id,omitempty"`
	SenderEmail    string          `json:"sender_email"`
	SenderName     string          `json:"sender_name"`
	Subject        string          `json:"subject"`
	Timestamp      int64           `json:"timestamp"` // epoch millis; 0 = unknown
	SizeEstimate   int64           `json:"size_estimate"`
	HasAttachments bool            `json:"has_attachments"`
	Labels         []gmail.LabelID `json:"labels,omitempty"`
	Category       Category        `json:"category"`
}

// ParseIssue records why a sentinel value was substituted during
// normalization. Issues are diagnostic only; they never fail a record.
type ParseIssue string

const (
	IssueMissingSender  ParseIssue = "missing_sender"
	IssueMissingSubject ParseIssue = "missing_subject"
	IssueMissingDate    ParseIssue = "missing_date"
	IssueBadDate        ParseIssue = "unparseable_date"
)

// maxPartDepth bounds MIME tree recursion against malformed deeply nested
// input.
const maxPartDepth = 32

// Normalize converts a raw provider record into a canonical Email. ok is
// false only when the record carries no payload or header structure at all;
// malformed-but-present headers degrade to sentinel values, each recorded as
// a ParseIssue.
func Normalize(raw gmail.RawMessage) (Email, []ParseIssue, bool) {
	if raw.Payload == nil || len(raw.Payload.Headers) == 0 {
		return Email{}, nil, false
	}

	var issues []ParseIssue

	senderEmail, senderName := parseSender(raw.Payload.Header("From"))
	if senderEmail == "" {
		issues = append(issues, IssueMissingSender)
	}

	subject := cleanSubject(raw.Payload.Header("Subject"))
	if subject == NoSubject {
		issues = append(issues, IssueMissingSubject)
	}

	ts, issue := parseTimestamp(raw.Payload.Header("Date"))
	if issue != "" {
		issues = append(issues, issue)
	}

	size := raw.SizeEstimate
	if size < 0 {
		size = 0
	}

	return Email{
		ID:             raw.ID,
		ThreadID:       raw.ThreadID,
		SenderEmail:    senderEmail,
		SenderName:     senderName,
		Subject:        subject,
		Timestamp:      ts,
		SizeEstimate:   size,
		HasAttachments: anyAttachment(raw.Payload, 0),
		Labels:         raw.LabelIDs,
		Category:       CategoryFromLabels(raw.LabelIDs),
	}, issues, true
}

var bareAddressRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// parseSender extracts a lowercased address and a best-effort display name
// from a From header. An RFC 5322 parse is attempted first, then a bare
// address match anywhere in the string; as a last resort the whole header
// text serves as both address and name.
func parseSender(from string) (string, string) {
	from = strings.TrimSpace(from)
	if from == "" {
		return "", ""
	}
	if addr, err := mail.ParseAddress(from); err == nil && addr.Address != "" {
		email := strings.ToLower(addr.Address)
		name := strings.Trim(strings.TrimSpace(addr.Name), `"'`)
		if name == "" {
			name = localPart(email)
		}
		return email, name
	}
	if m := bareAddressRe.FindString(from); m != "" {
		email := strings.ToLower(m)
		return email, displayName(from, email)
	}
	return strings.ToLower(from), from
}

// displayName strips the matched address out of the raw header and uses the
// remainder as the name, falling back to the address local part.
func displayName(from, email string) string {
	rest := from
	if i := strings.Index(strings.ToLower(from), email); i >= 0 {
		rest = from[:i] + from[i+len(email):]
	}
	rest = strings.Trim(strings.TrimSpace(rest), `"'<>`)
	rest = strings.TrimSpace(whitespaceRe.ReplaceAllString(rest, " "))
	if rest != "" {
		return rest
	}
	return localPart(email)
}

func localPart(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// cleanSubject collapses whitespace runs and trims; empty subjects map to
// the NoSubject sentinel.
func cleanSubject(s string) string {
	s = strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
	if s == "" {
		return NoSubject
	}
	return s
}

// dateLayouts are the Date header formats seen in the wild beyond what
// mail.ParseDate accepts.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

// parseTimestamp parses a Date header into epoch milliseconds. Missing or
// unparseable dates yield the 0 sentinel, which sorts as "earliest"; such
// records stay in every count rather than being dropped.
func parseTimestamp(date string) (int64, ParseIssue) {
	date = strings.TrimSpace(date)
	if date == "" {
		return 0, IssueMissingDate
	}
	if t, err := mail.ParseDate(date); err == nil {
		return t.UnixMilli(), ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t.UnixMilli(), ""
		}
	}
	return 0, IssueBadDate
}

// anyAttachment reports whether any part of the MIME tree carries a
// non-empty filename.
func anyAttachment(p *gmail.Part, depth int) bool {
	if p == nil || depth > maxPartDepth {
		return false
	}
	if p.Filename != "" {
		return true
	}
	for _, child := range p.Parts {
		if anyAttachment(child, depth+1) {
			return true
		}
	}
	return false
}
