package analyze

import (
	"math"
	"sort"
)

// UnknownSender is the fallback grouping key for emails whose sender could
// not be parsed. Keeping them in one bucket preserves count conservation:
// every email lands in exactly one sender group.
const UnknownSender = "unknown@unknown.com"

// Efficiency score weights and penalty rates. These are heuristic constants
// carried over from the product's original tuning; do not retune without
// product guidance.
const (
	efficiencyCountWeight   = 0.4
	efficiencySizeWeight    = 0.3
	efficiencyVarietyWeight = 0.3

	countPenaltyDivisor    = 10.0
	sizePenaltyPerMiB      = 20.0
	varietyBonusPerSubject = 5.0

	bytesPerMiB = float64(1 << 20)
)

// DateRange tracks the earliest and latest timestamps seen in a group, in
// epoch milliseconds. A 0 member timestamp occupies the earliest slot.
type DateRange struct {
	Earliest int64 `json:"earliest"`
	Latest   int64 `json:"latest"`
}

func (r *DateRange) widen(ts int64) {
	if ts < r.Earliest {
		r.Earliest = ts
	}
	if ts > r.Latest {
		r.Latest = ts
	}
}

// SenderGroup aggregates the emails of one sender identity.
type SenderGroup struct {
	Key               string    `json:"key"` // lowercase sender email
	SenderName        string    `json:"sender_name"`
	Emails            []Email   `json:"-"`
	Count             int       `json:"count"`
	TotalSize         int64     `json:"total_size"`
	DateRange         DateRange `json:"date_range"`
	SubjectVariations int       `json:"subject_variations"`
	Efficiency        int       `json:"efficiency"` // 0-100
}

// SubjectGroup aggregates the emails sharing one normalized subject.
type SubjectGroup struct {
	Key         string       `json:"key"` // normalized subject
	Emails      []Email      `json:"-"`
	Count       int          `json:"count"`
	TotalSize   int64        `json:"total_size"`
	DateRange   DateRange    `json:"date_range"`
	SenderCount int          `json:"sender_count"`
	Pattern     PatternLabel `json:"pattern,omitempty"`
}

// GroupBySender buckets emails by lowercase sender address. Unparseable
// senders share the UnknownSender bucket. Groups are ordered by member count
// descending; ties keep first-seen order.
func GroupBySender(emails []Email) []SenderGroup {
	groups := make(map[string]*SenderGroup, len(emails))
	subjects := make(map[string]map[string]struct{}, len(emails))
	var order []string

	for _, e := range emails {
		key := e.SenderEmail
		if key == "" {
			key = UnknownSender
		}
		g, ok := groups[key]
		if !ok {
			g = &SenderGroup{
				Key:        key,
				SenderName: e.SenderName,
				DateRange:  DateRange{Earliest: e.Timestamp, Latest: e.Timestamp},
			}
			groups[key] = g
			subjects[key] = make(map[string]struct{})
			order = append(order, key)
		} else {
			g.DateRange.widen(e.Timestamp)
		}
		g.Emails = append(g.Emails, e)
		g.Count++
		g.TotalSize += e.SizeEstimate
		subjects[key][NormalizeSubject(e.Subject)] = struct{}{}
	}

	out := make([]SenderGroup, 0, len(order))
	for _, key := range order {
		g := groups[key]
		g.SubjectVariations = len(subjects[key])
		g.Efficiency = efficiencyScore(g.Count, g.TotalSize, g.SubjectVariations)
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// GroupBySubject buckets emails by normalized subject and tracks how many
// distinct sender identities contributed to each. Same ordering contract as
// GroupBySender.
func GroupBySubject(emails []Email) []SubjectGroup {
	groups := make(map[string]*SubjectGroup, len(emails))
	senders := make(map[string]map[string]struct{}, len(emails))
	var order []string

	for _, e := range emails {
		key := NormalizeSubject(e.Subject)
		g, ok := groups[key]
		if !ok {
			g = &SubjectGroup{
				Key:       key,
				DateRange: DateRange{Earliest: e.Timestamp, Latest: e.Timestamp},
			}
			// The pattern belongs to the normalized subject, so it cannot
			// depend on which variant arrives first.
			if label, matched := DetectPattern(key); matched {
				g.Pattern = label
			}
			groups[key] = g
			senders[key] = make(map[string]struct{})
			order = append(order, key)
		} else {
			g.DateRange.widen(e.Timestamp)
		}
		g.Emails = append(g.Emails, e)
		g.Count++
		g.TotalSize += e.SizeEstimate
		sender := e.SenderEmail
		if sender == "" {
			sender = UnknownSender
		}
		senders[key][sender] = struct{}{}
	}

	out := make([]SubjectGroup, 0, len(order))
	for _, key := range order {
		g := groups[key]
		g.SenderCount = len(senders[key])
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// efficiencyScore combines an email-count penalty, an average-size penalty,
// and a subject-variation bonus into a 0-100 score.
func efficiencyScore(count int, totalSize int64, distinctSubjects int) int {
	var avgSize float64
	if count > 0 {
		avgSize = float64(totalSize) / float64(count)
	}
	countScore := math.Max(0, 100-float64(count)/countPenaltyDivisor)
	sizeScore := math.Max(0, 100-(avgSize/bytesPerMiB)*sizePenaltyPerMiB)
	varietyScore := math.Min(100, float64(distinctSubjects)*varietyBonusPerSubject)

	score := efficiencyCountWeight*countScore +
		efficiencySizeWeight*sizeScore +
		efficiencyVarietyWeight*varietyScore
	return int(math.Round(math.Max(0, math.Min(100, score))))
}
