package analyze

import "regexp"

// PatternLabel classifies a subject into a broad mail pattern.
type PatternLabel string

const (
	PatternNewsletter   PatternLabel = "newsletter"
	PatternNotification PatternLabel = "notification"
	PatternFinancial    PatternLabel = "financial"
	PatternConfirmation PatternLabel = "confirmation"
	PatternSecurity     PatternLabel = "security"
	PatternUpdates      PatternLabel = "updates"
	PatternCalendar     PatternLabel = "calendar"
	PatternReports      PatternLabel = "reports"
)

type patternRule struct {
	label PatternLabel
	re    *regexp.Regexp
}

// patternRules are evaluated in order; the first match wins, so a subject
// matching both the newsletter and updates rules classifies as newsletter.
var patternRules = []patternRule{
	{PatternNewsletter, regexp.MustCompile(`(?i)\b(newsletter|digest|weekly|monthly|roundup|bulletin)\b`)},
	{PatternNotification, regexp.MustCompile(`(?i)\b(notification|notify|alert|reminder)\b`)},
	{PatternFinancial, regexp.MustCompile(`(?i)\b(invoice|payment|receipt|billing|statement|order)\b`)},
	{PatternConfirmation, regexp.MustCompile(`(?i)\b(confirm(ed|ation)?|verify|verification|activat(e|ion))\b`)},
	{PatternSecurity, regexp.MustCompile(`(?i)\b(security|password|sign[- ]?in|login|two[- ]factor|2fa)\b`)},
	{PatternUpdates, regexp.MustCompile(`(?i)\b(updates?|news|announc(e|ement|ing))\b`)},
	{PatternCalendar, regexp.MustCompile(`(?i)\b(meeting|calendar|invit(e|ation)|event|rsvp)\b`)},
	{PatternReports, regexp.MustCompile(`(?i)\b(report|summary|analytics|metrics|digest)\b`)},
}

// DetectPattern tests the subject against the ordered rule list and returns
// the first matching label. ok is false when no rule matches.
func DetectPattern(subject string) (PatternLabel, bool) {
	for _, rule := range patternRules {
		if rule.re.MatchString(subject) {
			return rule.label, true
		}
	}
	return "", false
}
