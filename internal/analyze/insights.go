package analyze

import "fmt"

// Severity tiers a generated finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Insight is a generated, human-readable finding.
type Insight struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// InsightInputs carries the analyzer outputs the rules inspect. Full lists,
// not top-N slices.
type InsightInputs struct {
	Senders    []SenderGroup
	Subjects   []SubjectGroup
	Sizes      SizeDistribution
	Categories CategoryDistribution
}

// Insight rule thresholds.
const (
	topSenderHighPercent   = 20.0
	topSenderMediumPercent = 10.0
	storageHighBytes       = 100 * 1024 * 1024
	duplicateSubjectFloor  = 5 // groups with more members than this count as duplicates
)

// GenerateInsights applies the rule list in order; each rule emits at most
// one insight and none overrides another. Emission order is display order.
func GenerateInsights(totalEmails int, in InsightInputs) []Insight {
	insights := []Insight{}

	if len(in.Senders) > 0 && totalEmails > 0 {
		top := in.Senders[0]
		pct := float64(top.Count) / float64(totalEmails) * 100
		severity := SeverityLow
		switch {
		case pct > topSenderHighPercent:
			severity = SeverityHigh
		case pct > topSenderMediumPercent:
			severity = SeverityMedium
		}
		insights = append(insights, Insight{
			Type:  "top_sender",
			Title: "Most frequent sender",
			Description: fmt.Sprintf("%s sent %d emails (%.1f%% of the analyzed set)",
				top.Key, top.Count, pct),
			Severity: severity,
		})
	}

	if len(in.Senders) > 0 {
		heaviest := in.Senders[0]
		for _, g := range in.Senders[1:] {
			if g.TotalSize > heaviest.TotalSize {
				heaviest = g
			}
		}
		severity := SeverityMedium
		if heaviest.TotalSize > storageHighBytes {
			severity = SeverityHigh
		}
		insights = append(insights, Insight{
			Type:  "storage",
			Title: "Largest storage consumer",
			Description: fmt.Sprintf("%s occupies %s across %d emails",
				heaviest.Key, formatSize(heaviest.TotalSize), heaviest.Count),
			Severity: severity,
		})
	}

	duplicates := 0
	for _, g := range in.Subjects {
		if g.Count > duplicateSubjectFloor {
			duplicates++
		}
	}
	if duplicates > 0 {
		insights = append(insights, Insight{
			Type:  "duplicate_subjects",
			Title: "Repeated subjects",
			Description: fmt.Sprintf(
				"%d subject lines appear more than %d times each",
				duplicates, duplicateSubjectFloor),
			Severity: SeverityMedium,
		})
	}

	return insights
}
