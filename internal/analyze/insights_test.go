package analyze

import (
	"strings"
	"testing"
)

func insightOfType(insights []Insight, typ string) (Insight, bool) {
	for _, in := range insights {
		if in.Type == typ {
			return in, true
		}
	}
	return Insight{}, false
}

func TestGenerateInsightsTopSenderSeverity(t *testing.T) {
	tests := []struct {
		name  string
		count int
		total int
		want  Severity
	}{
		{name: "high above 20 percent", count: 21, total: 100, want: SeverityHigh},
		{name: "medium above 10 percent", count: 15, total: 100, want: SeverityMedium},
		{name: "low otherwise", count: 5, total: 100, want: SeverityLow},
		{name: "exactly 20 percent is medium", count: 20, total: 100, want: SeverityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := InsightInputs{
				Senders: []SenderGroup{{Key: "a@x.com", Count: tt.count}},
			}
			got, ok := insightOfType(GenerateInsights(tt.total, in), "top_sender")
			if !ok {
				t.Fatal("expected a top_sender insight")
			}
			if got.Severity != tt.want {
				t.Errorf("severity = %q, want %q", got.Severity, tt.want)
			}
		})
	}
}

func TestGenerateInsightsStorage(t *testing.T) {
	in := InsightInputs{
		Senders: []SenderGroup{
			{Key: "chatty@x.com", Count: 50, TotalSize: 1 << 20},
			{Key: "heavy@x.com", Count: 3, TotalSize: 200 * 1024 * 1024},
		},
	}
	got, ok := insightOfType(GenerateInsights(53, in), "storage")
	if !ok {
		t.Fatal("expected a storage insight")
	}
	if !strings.Contains(got.Description, "heavy@x.com") {
		t.Errorf("description %q should name the heaviest sender, not the most frequent", got.Description)
	}
	if got.Severity != SeverityHigh {
		t.Errorf("severity = %q, want high above 100MB", got.Severity)
	}

	in.Senders[1].TotalSize = 10 * 1024 * 1024
	got, _ = insightOfType(GenerateInsights(53, in), "storage")
	if got.Severity != SeverityMedium {
		t.Errorf("severity = %q, want medium below 100MB", got.Severity)
	}
}

func TestGenerateInsightsDuplicateSubjects(t *testing.T) {
	subjects := make([]SubjectGroup, 0, 25)
	for range 24 {
		subjects = append(subjects, SubjectGroup{Key: "unique", Count: 2})
	}
	subjects = append(subjects, SubjectGroup{Key: "noisy", Count: 6})

	insights := GenerateInsights(54, InsightInputs{Subjects: subjects})
	got, ok := insightOfType(insights, "duplicate_subjects")
	if !ok {
		t.Fatal("expected a duplicate_subjects insight")
	}
	if got.Severity != SeverityMedium {
		t.Errorf("severity = %q, want medium", got.Severity)
	}
	if !strings.Contains(got.Description, "1 subject lines") {
		t.Errorf("description %q should count exactly the one group over the floor", got.Description)
	}

	// Count of 5 is not over the floor.
	none := GenerateInsights(5, InsightInputs{
		Subjects: []SubjectGroup{{Key: "borderline", Count: 5}},
	})
	if _, ok := insightOfType(none, "duplicate_subjects"); ok {
		t.Error("count equal to the floor should not trigger the insight")
	}
}

func TestGenerateInsightsEmptyInputs(t *testing.T) {
	if got := GenerateInsights(0, InsightInputs{}); len(got) != 0 {
		t.Errorf("expected no insights for empty inputs, got %v", got)
	}
}

func TestGenerateInsightsOrder(t *testing.T) {
	in := InsightInputs{
		Senders:  []SenderGroup{{Key: "a@x.com", Count: 30, TotalSize: 1 << 30}},
		Subjects: []SubjectGroup{{Key: "s", Count: 10}},
	}
	insights := GenerateInsights(100, in)
	wantOrder := []string{"top_sender", "storage", "duplicate_subjects"}
	if len(insights) != len(wantOrder) {
		t.Fatalf("expected %d insights, got %d", len(wantOrder), len(insights))
	}
	for i, typ := range wantOrder {
		if insights[i].Type != typ {
			t.Errorf("insight %d = %q, want %q", i, insights[i].Type, typ)
		}
	}
}
