package analyze

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/inboxlens/inboxlens/internal/gmail"
)

// ErrBusy is returned when Assemble is called while a prior call on the
// same Assembler is still running. Callers should surface it as "analysis
// in progress" rather than a generic failure.
var ErrBusy = errors.New("analysis already in progress")

// Progress is a fire-and-forget notification emitted during long batch
// stages.
type Progress struct {
	Processed  int `json:"processed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// ProgressFunc receives Progress notifications. It must not block.
type ProgressFunc func(Progress)

// Result cache keys, one per analysis kind.
const (
	cacheSenders    = "sender_analysis"
	cacheSubjects   = "subject_analysis"
	cacheSizes      = "size_analysis"
	cacheTimeline   = "timeline_analysis"
	cacheCategories = "category_analysis"
	cacheStorage    = "storage_analysis"
)

// ResultCache memoizes analyzer outputs by analysis kind within a session.
// It never expires entries on its own: the caller must Invalidate between
// runs whose input sets differ.
type ResultCache struct {
	mu      sync.Mutex
	entries map[string]any
}

// NewResultCache returns an empty cache.
func NewResultCache() *ResultCache {
	return &ResultCache{entries: make(map[string]any)}
}

// Invalidate drops the named kinds, or everything when called with none.
func (c *ResultCache) Invalidate(kinds ...string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(kinds) == 0 {
		c.entries = make(map[string]any)
		return
	}
	for _, k := range kinds {
		delete(c.entries, k)
	}
}

func (c *ResultCache) get(kind string) (any, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[kind]
	return v, ok
}

func (c *ResultCache) put(kind string, v any) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[kind] = v
}

// cached returns the memoized value for kind or computes and stores it.
func cached[T any](c *ResultCache, kind string, compute func() T) T {
	if v, ok := c.get(kind); ok {
		if typed, ok := v.(T); ok {
			return typed
		}
	}
	v := compute()
	c.put(kind, v)
	return v
}

// Options configures one analysis run. All fields are optional.
type Options struct {
	BatchSize   int          // normalization granularity; default 100
	TopSenders  int          // sender groups kept in the report; default 20
	TopSubjects int          // subject groups kept in the report; default 100
	Progress    ProgressFunc // invoked per normalization batch
	Cache       *ResultCache // consulted before recomputation
}

const (
	defaultBatchSize   = 100
	defaultTopSenders  = 20
	defaultTopSubjects = 100
)

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.TopSenders <= 0 {
		o.TopSenders = defaultTopSenders
	}
	if o.TopSubjects <= 0 {
		o.TopSubjects = defaultTopSubjects
	}
	return o
}

// Overview summarizes one analysis run.
type Overview struct {
	TotalEmails   int                `json:"total_emails"`
	TotalSize     int64              `json:"total_size"`
	UniqueSenders int                `json:"unique_senders"`
	Skipped       int                `json:"skipped"`
	ParseIssues   map[ParseIssue]int `json:"parse_issues,omitempty"`
}

// Report is the composed analysis output. It is built fresh per run and
// never mutated after construction; callers treat it as read-only.
type Report struct {
	ID          string               `json:"id"`
	GeneratedAt time.Time            `json:"generated_at"`
	Overview    Overview             `json:"overview"`
	Senders     []SenderGroup        `json:"senders"`
	Subjects    []SubjectGroup       `json:"subjects"`
	Sizes       SizeDistribution     `json:"sizes"`
	Timeline    TimeDistribution     `json:"timeline"`
	Categories  CategoryDistribution `json:"categories"`
	TopStorage  []StorageContributor `json:"top_storage"`
	Insights    []Insight            `json:"insights"`
}

// Assembler orchestrates one analysis pipeline run: normalization in
// batches, the independent analyzers, then insight generation. A single
// Assembler rejects overlapping runs; construct one per session.
type Assembler struct {
	Logger   *slog.Logger
	Clock    func() time.Time
	Location *time.Location // timezone for temporal buckets; default local

	busy atomic.Bool
}

// NewAssembler constructs an Assembler with sane defaults.
func NewAssembler(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Assembler{
		Logger:   logger,
		Clock:    time.Now,
		Location: time.Local,
	}
}

// Assemble normalizes msgs and runs every analyzer over the resulting email
// set, returning the composed report. It returns ErrBusy when a prior call
// is still in flight. There is no cancellation: once started, a run
// completes.
func (a *Assembler) Assemble(msgs []gmail.RawMessage, opts Options) (Report, error) {
	if !a.busy.CompareAndSwap(false, true) {
		return Report{}, ErrBusy
	}
	defer a.busy.Store(false)

	opts = opts.withDefaults()
	emails, overview := a.normalizeAll(msgs, opts)
	a.Logger.Info("normalized messages",
		slog.Int("emails", overview.TotalEmails),
		slog.Int("skipped", overview.Skipped))

	var (
		senders    []SenderGroup
		subjects   []SubjectGroup
		sizes      SizeDistribution
		timeline   TimeDistribution
		categories CategoryDistribution
		storage    []StorageContributor
	)

	// The analyzers have no data dependency on each other; fan out and join
	// before insight generation.
	var wg sync.WaitGroup
	run := func(f func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}
	run(func() {
		senders = cached(opts.Cache, cacheSenders, func() []SenderGroup {
			return GroupBySender(emails)
		})
	})
	run(func() {
		subjects = cached(opts.Cache, cacheSubjects, func() []SubjectGroup {
			return GroupBySubject(emails)
		})
	})
	run(func() {
		sizes = cached(opts.Cache, cacheSizes, func() SizeDistribution {
			return AnalyzeSizes(emails)
		})
	})
	run(func() {
		timeline = cached(opts.Cache, cacheTimeline, func() TimeDistribution {
			return AnalyzeTimeline(emails, a.Location)
		})
	})
	run(func() {
		categories = cached(opts.Cache, cacheCategories, func() CategoryDistribution {
			return AnalyzeCategories(emails)
		})
	})
	run(func() {
		storage = cached(opts.Cache, cacheStorage, func() []StorageContributor {
			return TopStorageContributors(emails, 10)
		})
	})
	wg.Wait()

	insights := GenerateInsights(len(emails), InsightInputs{
		Senders:    senders,
		Subjects:   subjects,
		Sizes:      sizes,
		Categories: categories,
	})

	overview.UniqueSenders = len(senders)

	return Report{
		ID:          uuid.NewString(),
		GeneratedAt: a.Clock(),
		Overview:    overview,
		Senders:     topSenders(senders, opts.TopSenders),
		Subjects:    topSubjects(subjects, opts.TopSubjects),
		Sizes:       sizes,
		Timeline:    timeline,
		Categories:  categories,
		TopStorage:  storage,
		Insights:    insights,
	}, nil
}

// normalizeAll converts raw records in batches, emitting progress after
// each batch. Records without a payload are skipped and counted.
func (a *Assembler) normalizeAll(msgs []gmail.RawMessage, opts Options) ([]Email, Overview) {
	emails := make([]Email, 0, len(msgs))
	overview := Overview{}
	issueCounts := make(map[ParseIssue]int)

	total := len(msgs)
	for start := 0; start < total; start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > total {
			end = total
		}
		for _, raw := range msgs[start:end] {
			email, issues, ok := Normalize(raw)
			if !ok {
				overview.Skipped++
				continue
			}
			for _, issue := range issues {
				issueCounts[issue]++
			}
			emails = append(emails, email)
		}
		if opts.Progress != nil {
			opts.Progress(Progress{
				Processed:  end,
				Total:      total,
				Percentage: end * 100 / total,
			})
		}
	}

	overview.TotalEmails = len(emails)
	for _, e := range emails {
		overview.TotalSize += e.SizeEstimate
	}
	if len(issueCounts) > 0 {
		overview.ParseIssues = issueCounts
	}
	return emails, overview
}

// topSenders and topSubjects are presentation slices over the fully sorted
// lists, never a different algorithm.
func topSenders(groups []SenderGroup, n int) []SenderGroup {
	if n < len(groups) {
		return groups[:n]
	}
	return groups
}

func topSubjects(groups []SubjectGroup, n int) []SubjectGroup {
	if n < len(groups) {
		return groups[:n]
	}
	return groups
}
