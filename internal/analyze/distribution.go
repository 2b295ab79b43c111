package analyze

import (
	"fmt"
	"sort"
	"time"
)

// Size bucket boundaries, half-open [min, max); the last bucket is
// open-ended. Heuristic constants preserved from the original product.
const (
	sizeBucketSmallMax  = 50 * 1024
	sizeBucketMediumMax = 500 * 1024
	sizeBucketLargeMax  = 5 * 1024 * 1024
)

// Bucket is one slice of a distribution. Percentage semantics depend on the
// distribution: size buckets are weighted by bytes, category buckets by
// count.
type Bucket struct {
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	TotalSize  int64   `json:"total_size"`
	Percentage float64 `json:"percentage"`
}

// SizeDistribution breaks emails into four fixed size buckets.
type SizeDistribution struct {
	Buckets   []Bucket `json:"buckets"`
	TotalSize int64    `json:"total_size"`
}

// AnalyzeSizes assigns each email to exactly one size bucket. Percentages
// are byte-weighted: bucket bytes over grand total bytes, 0 when the grand
// total is 0.
func AnalyzeSizes(emails []Email) SizeDistribution {
	buckets := []Bucket{
		{Label: "<50KB"},
		{Label: "50KB-500KB"},
		{Label: "500KB-5MB"},
		{Label: ">5MB"},
	}
	var total int64
	for _, e := range emails {
		i := 0
		switch {
		case e.SizeEstimate < sizeBucketSmallMax:
			i = 0
		case e.SizeEstimate < sizeBucketMediumMax:
			i = 1
		case e.SizeEstimate < sizeBucketLargeMax:
			i = 2
		default:
			i = 3
		}
		buckets[i].Count++
		buckets[i].TotalSize += e.SizeEstimate
		total += e.SizeEstimate
	}
	if total > 0 {
		for i := range buckets {
			buckets[i].Percentage = float64(buckets[i].TotalSize) / float64(total) * 100
		}
	}
	return SizeDistribution{Buckets: buckets, TotalSize: total}
}

// TimeDistribution holds three independent counting histograms over local
// calendar time. They do not reconcile with each other.
type TimeDistribution struct {
	Monthly map[string]int `json:"monthly"` // YYYY-MM
	Weekday [7]int         `json:"weekday"` // 0=Sunday .. 6=Saturday
	Hourly  [24]int        `json:"hourly"`  // 0-23
}

// AnalyzeTimeline counts emails per month, weekday, and hour in loc.
// Unknown timestamps (sentinel 0) land in the epoch bucket rather than
// being dropped.
func AnalyzeTimeline(emails []Email, loc *time.Location) TimeDistribution {
	if loc == nil {
		loc = time.Local
	}
	dist := TimeDistribution{Monthly: make(map[string]int)}
	for _, e := range emails {
		t := time.UnixMilli(e.Timestamp).In(loc)
		dist.Monthly[fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))]++
		dist.Weekday[int(t.Weekday())]++
		dist.Hourly[t.Hour()]++
	}
	return dist
}

// categoryOrder fixes the tie-break listing order for category buckets.
var categoryOrder = []Category{
	CategoryPrimary,
	CategoryPromotions,
	CategorySocial,
	CategoryUpdates,
	CategoryForums,
	CategorySpam,
	CategoryImportant,
}

// CategoryDistribution breaks emails down by derived category. Percentages
// are count-weighted.
type CategoryDistribution struct {
	Buckets []Bucket `json:"buckets"`
}

// AnalyzeCategories counts emails and bytes per category. Only categories
// with members appear, ordered by count descending with the canonical
// category order breaking ties.
func AnalyzeCategories(emails []Email) CategoryDistribution {
	counts := make(map[Category]*Bucket, len(categoryOrder))
	for _, e := range emails {
		b, ok := counts[e.Category]
		if !ok {
			b = &Bucket{Label: string(e.Category)}
			counts[e.Category] = b
		}
		b.Count++
		b.TotalSize += e.SizeEstimate
	}
	buckets := make([]Bucket, 0, len(counts))
	for _, cat := range categoryOrder {
		if b, ok := counts[cat]; ok {
			if len(emails) > 0 {
				b.Percentage = float64(b.Count) / float64(len(emails)) * 100
			}
			buckets = append(buckets, *b)
		}
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Count > buckets[j].Count
	})
	return CategoryDistribution{Buckets: buckets}
}

// StorageContributor ranks a sender by the bytes it occupies.
type StorageContributor struct {
	Sender    string `json:"sender"`
	Count     int    `json:"count"`
	TotalSize int64  `json:"total_size"`
}

// TopStorageContributors sums sizes per sender and returns the n largest.
// This is computed independently of GroupBySender; rankings may disagree on
// ties and that is acceptable.
func TopStorageContributors(emails []Email, n int) []StorageContributor {
	totals := make(map[string]*StorageContributor, len(emails))
	var order []string
	for _, e := range emails {
		sender := e.SenderEmail
		if sender == "" {
			sender = UnknownSender
		}
		c, ok := totals[sender]
		if !ok {
			c = &StorageContributor{Sender: sender}
			totals[sender] = c
			order = append(order, sender)
		}
		c.Count++
		c.TotalSize += e.SizeEstimate
	}
	out := make([]StorageContributor, 0, len(order))
	for _, sender := range order {
		out = append(out, *totals[sender])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalSize > out[j].TotalSize
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
