package analyze

import (
	"regexp"
	"strings"
)

// noSubjectKey is the grouping key for subjects that normalize to nothing.
const noSubjectKey = "(no subject)"

// replyPrefixRe matches one or more leading reply/forward markers on an
// already-lowercased subject.
var replyPrefixRe = regexp.MustCompile(`^(?:(?:re|fw|fwd)\s*:\s*)+`)

// NormalizeSubject produces the grouping key for a subject: lowercased, all
// leading re:/fw:/fwd: prefixes stripped, whitespace collapsed. The function
// is a fixed point: normalizing an already-normalized subject returns it
// unchanged.
func NormalizeSubject(s string) string {
	s = strings.ToLower(s)
	s = strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
	s = strings.TrimSpace(replyPrefixRe.ReplaceAllString(s, ""))
	if s == "" {
		return noSubjectKey
	}
	return s
}
