package analyze

import (
	"testing"
	"time"
)

func TestAnalyzeSizesBuckets(t *testing.T) {
	emails := []Email{
		email("a@x.com", "s", 10*1024),          // <50KB
		email("a@x.com", "s", 50*1024),          // boundary: second bucket
		email("a@x.com", "s", 500*1024),         // boundary: third bucket
		email("a@x.com", "s", 5*1024*1024),      // boundary: fourth bucket
		email("a@x.com", "s", 20*1024*1024),     // >5MB
		email("a@x.com", "s", 50*1024*1024 - 1), // >5MB
	}
	dist := AnalyzeSizes(emails)
	if len(dist.Buckets) != 4 {
		t.Fatalf("expected 4 buckets, got %d", len(dist.Buckets))
	}
	wantCounts := []int{1, 1, 1, 3}
	count := 0
	var size int64
	var pct float64
	for i, b := range dist.Buckets {
		if b.Count != wantCounts[i] {
			t.Errorf("bucket %q count = %d, want %d", b.Label, b.Count, wantCounts[i])
		}
		count += b.Count
		size += b.TotalSize
		pct += b.Percentage
	}
	if count != len(emails) {
		t.Errorf("bucket counts sum to %d, want %d", count, len(emails))
	}
	if size != dist.TotalSize {
		t.Errorf("bucket sizes sum to %d, want %d", size, dist.TotalSize)
	}
	if pct < 99.99 || pct > 100.01 {
		t.Errorf("percentages sum to %f, want 100", pct)
	}
}

func TestAnalyzeSizesEmpty(t *testing.T) {
	dist := AnalyzeSizes(nil)
	if len(dist.Buckets) != 4 {
		t.Fatalf("expected 4 buckets even when empty, got %d", len(dist.Buckets))
	}
	for _, b := range dist.Buckets {
		if b.Count != 0 || b.TotalSize != 0 || b.Percentage != 0 {
			t.Errorf("empty input produced non-zero bucket: %+v", b)
		}
	}
}

func TestAnalyzeTimeline(t *testing.T) {
	ts := func(s string) int64 {
		parsed, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
		if err != nil {
			t.Fatalf("bad test timestamp %q: %v", s, err)
		}
		return parsed.UnixMilli()
	}
	emails := []Email{
		{Timestamp: ts("2023-06-05 09:30")}, // Monday
		{Timestamp: ts("2023-06-05 09:45")},
		{Timestamp: ts("2023-06-10 22:00")}, // Saturday
		{Timestamp: ts("2023-07-01 09:00")},
	}
	dist := AnalyzeTimeline(emails, time.UTC)
	if got := dist.Monthly["2023-06"]; got != 3 {
		t.Errorf("June count = %d, want 3", got)
	}
	if got := dist.Monthly["2023-07"]; got != 1 {
		t.Errorf("July count = %d, want 1", got)
	}
	if got := dist.Weekday[int(time.Monday)]; got != 2 {
		t.Errorf("Monday count = %d, want 2", got)
	}
	if got := dist.Weekday[int(time.Saturday)]; got != 1 {
		t.Errorf("Saturday count = %d, want 1", got)
	}
	if got := dist.Hourly[9]; got != 3 {
		t.Errorf("09h count = %d, want 3", got)
	}
	if got := dist.Hourly[22]; got != 1 {
		t.Errorf("22h count = %d, want 1", got)
	}
}

func TestAnalyzeTimelineKeepsUnknownDates(t *testing.T) {
	dist := AnalyzeTimeline([]Email{{Timestamp: 0}}, time.UTC)
	if got := dist.Monthly["1970-01"]; got != 1 {
		t.Errorf("epoch bucket = %d, want 1 (unknown dates are not dropped)", got)
	}
}

func TestAnalyzeCategories(t *testing.T) {
	mk := func(c Category, size int64) Email {
		e := email("a@x.com", "s", size)
		e.Category = c
		return e
	}
	emails := []Email{
		mk(CategoryPromotions, 100),
		mk(CategoryPromotions, 200),
		mk(CategoryPromotions, 300),
		mk(CategoryPrimary, 50),
		mk(CategorySpam, 10),
	}
	dist := AnalyzeCategories(emails)
	if len(dist.Buckets) != 3 {
		t.Fatalf("expected 3 buckets, got %d: %+v", len(dist.Buckets), dist.Buckets)
	}
	top := dist.Buckets[0]
	if top.Label != string(CategoryPromotions) || top.Count != 3 || top.TotalSize != 600 {
		t.Fatalf("unexpected top bucket: %+v", top)
	}
	if top.Percentage != 60 {
		t.Errorf("top percentage = %f, want 60 (count-weighted)", top.Percentage)
	}
	// primary and spam tie on count; canonical order breaks the tie.
	if dist.Buckets[1].Label != string(CategoryPrimary) || dist.Buckets[2].Label != string(CategorySpam) {
		t.Errorf("tie order = %q, %q, want primary then spam",
			dist.Buckets[1].Label, dist.Buckets[2].Label)
	}
}

func TestTopStorageContributors(t *testing.T) {
	emails := []Email{
		email("small@x.com", "s", 100),
		email("big@x.com", "s", 10_000),
		email("big@x.com", "s", 10_000),
		email("mid@x.com", "s", 5_000),
		{Subject: "s", SizeEstimate: 99_000}, // no sender
	}
	top := TopStorageContributors(emails, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 contributors, got %d", len(top))
	}
	if top[0].Sender != UnknownSender || top[0].TotalSize != 99_000 {
		t.Errorf("top contributor = %+v, want unknown bucket with 99000 bytes", top[0])
	}
	if top[1].Sender != "big@x.com" || top[1].Count != 2 || top[1].TotalSize != 20_000 {
		t.Errorf("second contributor = %+v", top[1])
	}

	all := TopStorageContributors(emails, 0)
	if len(all) != 4 {
		t.Errorf("n=0 should return everyone, got %d", len(all))
	}
}
