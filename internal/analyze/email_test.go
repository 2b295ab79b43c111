package analyze

import (
	"testing"

	"github.com/inboxlens/inboxlens/internal/gmail"
)

func rawMessage(headers map[string]string) gmail.RawMessage {
	return gmail.RawMessage{
		ID:      "m1",
		Payload: &gmail.Part{Headers: headers},
	}
}

func TestNormalizeSkipsMissingPayload(t *testing.T) {
	if _, _, ok := Normalize(gmail.RawMessage{ID: "m1"}); ok {
		t.Fatal("expected record without payload to be skipped")
	}
	if _, _, ok := Normalize(gmail.RawMessage{ID: "m2", Payload: &gmail.Part{}}); ok {
		t.Fatal("expected record without headers to be skipped")
	}
}

func TestNormalizeSender(t *testing.T) {
	tests := []struct {
		name      string
		from      string
		wantEmail string
		wantName  string
	}{
		{
			name:      "name and address",
			from:      `Alerts Team <Alerts@Example.COM>`,
			wantEmail: "alerts@example.com",
			wantName:  "Alerts Team",
		},
		{
			name:      "quoted name",
			from:      `"Billing, Inc." <billing@example.com>`,
			wantEmail: "billing@example.com",
			wantName:  "Billing, Inc.",
		},
		{
			name:      "bare address",
			from:      "news@example.com",
			wantEmail: "news@example.com",
			wantName:  "news",
		},
		{
			name:      "address embedded in junk",
			from:      "on behalf of deals@shop.example.com via relay",
			wantEmail: "deals@shop.example.com",
			wantName:  "on behalf of via relay",
		},
		{
			name:      "no address at all",
			from:      "Mailer Daemon",
			wantEmail: "mailer daemon",
			wantName:  "Mailer Daemon",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, _, ok := Normalize(rawMessage(map[string]string{"From": tt.from}))
			if !ok {
				t.Fatal("expected record to normalize")
			}
			if email.SenderEmail != tt.wantEmail {
				t.Errorf("sender email = %q, want %q", email.SenderEmail, tt.wantEmail)
			}
			if email.SenderName != tt.wantName {
				t.Errorf("sender name = %q, want %q", email.SenderName, tt.wantName)
			}
		})
	}
}

func TestNormalizeMissingSender(t *testing.T) {
	email, issues, ok := Normalize(rawMessage(map[string]string{"Subject": "hello"}))
	if !ok {
		t.Fatal("expected record to normalize")
	}
	if email.SenderEmail != "" {
		t.Errorf("sender email = %q, want empty", email.SenderEmail)
	}
	if !hasIssue(issues, IssueMissingSender) {
		t.Errorf("issues = %v, want %v", issues, IssueMissingSender)
	}
}

func TestNormalizeSubjectCleaning(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Hello   world \t again ", "Hello world again"},
		{"", NoSubject},
		{"   \t  ", NoSubject},
		{"Plain", "Plain"},
	}
	for _, tt := range tests {
		email, _, ok := Normalize(rawMessage(map[string]string{
			"From":    "a@x.com",
			"Subject": tt.in,
		}))
		if !ok {
			t.Fatal("expected record to normalize")
		}
		if email.Subject != tt.want {
			t.Errorf("cleanSubject(%q) = %q, want %q", tt.in, email.Subject, tt.want)
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name      string
		date      string
		wantZero  bool
		wantIssue ParseIssue
	}{
		{name: "rfc1123z", date: "Mon, 02 Jan 2023 15:04:05 +0100"},
		{name: "single digit day", date: "Mon, 2 Jan 2023 15:04:05 -0700"},
		{name: "not a date", date: "not a date", wantZero: true, wantIssue: IssueBadDate},
		{name: "missing", date: "", wantZero: true, wantIssue: IssueMissingDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{"From": "a@x.com"}
			if tt.date != "" {
				headers["Date"] = tt.date
			}
			email, issues, ok := Normalize(rawMessage(headers))
			if !ok {
				t.Fatal("expected record to normalize")
			}
			if tt.wantZero && email.Timestamp != 0 {
				t.Errorf("timestamp = %d, want 0", email.Timestamp)
			}
			if !tt.wantZero && email.Timestamp == 0 {
				t.Error("timestamp = 0, want parsed value")
			}
			if tt.wantIssue != "" && !hasIssue(issues, tt.wantIssue) {
				t.Errorf("issues = %v, want %v", issues, tt.wantIssue)
			}
		})
	}
}

func TestNormalizeAttachments(t *testing.T) {
	nested := gmail.RawMessage{
		ID: "m1",
		Payload: &gmail.Part{
			Headers: map[string]string{"From": "a@x.com"},
			Parts: []*gmail.Part{
				{MimeType: "text/plain"},
				{
					MimeType: "multipart/mixed",
					Parts: []*gmail.Part{
						{MimeType: "application/pdf", Filename: "invoice.pdf"},
					},
				},
			},
		},
	}
	email, _, ok := Normalize(nested)
	if !ok {
		t.Fatal("expected record to normalize")
	}
	if !email.HasAttachments {
		t.Error("expected nested attachment to be detected")
	}

	plain, _, _ := Normalize(rawMessage(map[string]string{"From": "a@x.com"}))
	if plain.HasAttachments {
		t.Error("expected no attachment on headers-only record")
	}
}

func TestNormalizeAttachmentDepthBound(t *testing.T) {
	// Build a chain deeper than the recursion bound with the filename at
	// the bottom; detection must stop without blowing the stack.
	leaf := &gmail.Part{Filename: "deep.bin"}
	node := leaf
	for range maxPartDepth + 10 {
		node = &gmail.Part{Parts: []*gmail.Part{node}}
	}
	msg := gmail.RawMessage{
		ID:      "m1",
		Payload: &gmail.Part{Headers: map[string]string{"From": "a@x.com"}, Parts: []*gmail.Part{node}},
	}
	email, _, ok := Normalize(msg)
	if !ok {
		t.Fatal("expected record to normalize")
	}
	if email.HasAttachments {
		t.Error("attachment beyond the depth bound should not be reported")
	}
}

func TestCategoryFromLabels(t *testing.T) {
	tests := []struct {
		name   string
		labels []gmail.LabelID
		want   Category
	}{
		{name: "empty", labels: nil, want: CategoryPrimary},
		{name: "promotions", labels: []gmail.LabelID{"INBOX", "CATEGORY_PROMOTIONS"}, want: CategoryPromotions},
		{
			name:   "promotions beats social",
			labels: []gmail.LabelID{"CATEGORY_SOCIAL", "CATEGORY_PROMOTIONS"},
			want:   CategoryPromotions,
		},
		{
			name:   "spam beats important",
			labels: []gmail.LabelID{"IMPORTANT", "SPAM"},
			want:   CategorySpam,
		},
		{name: "important alone", labels: []gmail.LabelID{"IMPORTANT"}, want: CategoryImportant},
		{name: "unknown labels", labels: []gmail.LabelID{"Label_42", "STARRED"}, want: CategoryPrimary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CategoryFromLabels(tt.labels)
			if got != tt.want {
				t.Errorf("CategoryFromLabels(%v) = %q, want %q", tt.labels, got, tt.want)
			}
			// Deterministic: same input, same output.
			if again := CategoryFromLabels(tt.labels); again != got {
				t.Errorf("second derivation = %q, want %q", again, got)
			}
		})
	}
}

func hasIssue(issues []ParseIssue, want ParseIssue) bool {
	for _, i := range issues {
		if i == want {
			return true
		}
	}
	return false
}
