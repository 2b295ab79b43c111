package analyze

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const subjectDisplayLimit = 60

// PrintHuman writes a readable report to the provided writer.
func PrintHuman(rep Report, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	var b strings.Builder
	fmt.Fprintf(&b, "inboxlens report: %d emails, %s, %d senders",
		rep.Overview.TotalEmails, formatSize(rep.Overview.TotalSize), rep.Overview.UniqueSenders)
	if rep.Overview.Skipped > 0 {
		fmt.Fprintf(&b, " (%d records skipped)", rep.Overview.Skipped)
	}
	b.WriteString("\n")

	if len(rep.Senders) > 0 {
		b.WriteString("\nTop senders:\n")
		for _, g := range rep.Senders {
			fmt.Fprintf(&b, "  %-40s %5d  %9s  eff %3d\n",
				truncate(g.Key, 40), g.Count, formatSize(g.TotalSize), g.Efficiency)
		}
	}
	if len(rep.Subjects) > 0 {
		b.WriteString("\nTop subjects:\n")
		for _, g := range rep.Subjects {
			label := ""
			if g.Pattern != "" {
				label = " [" + string(g.Pattern) + "]"
			}
			fmt.Fprintf(&b, "  %-60s %5d  from %d senders%s\n",
				truncate(g.Key, subjectDisplayLimit), g.Count, g.SenderCount, label)
		}
	}
	if rep.Sizes.TotalSize > 0 || rep.Overview.TotalEmails > 0 {
		b.WriteString("\nSize distribution:\n")
		for _, bucket := range rep.Sizes.Buckets {
			fmt.Fprintf(&b, "  %-12s %5d  %9s  %5.1f%%\n",
				bucket.Label, bucket.Count, formatSize(bucket.TotalSize), bucket.Percentage)
		}
	}
	if len(rep.Categories.Buckets) > 0 {
		b.WriteString("\nCategories:\n")
		for _, bucket := range rep.Categories.Buckets {
			fmt.Fprintf(&b, "  %-12s %5d  %5.1f%%\n",
				bucket.Label, bucket.Count, bucket.Percentage)
		}
	}
	if len(rep.Timeline.Monthly) > 0 {
		b.WriteString("\nBusiest months:\n")
		for _, m := range busiestMonths(rep.Timeline, 6) {
			fmt.Fprintf(&b, "  %s  %5d\n", m.key, m.count)
		}
	}
	if len(rep.TopStorage) > 0 {
		b.WriteString("\nLargest storage contributors:\n")
		for _, c := range rep.TopStorage {
			fmt.Fprintf(&b, "  %-40s %9s  (%d emails)\n",
				truncate(c.Sender, 40), formatSize(c.TotalSize), c.Count)
		}
	}
	if len(rep.Insights) > 0 {
		b.WriteString("\nInsights:\n")
		for _, ins := range rep.Insights {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", ins.Severity, ins.Title, ins.Description)
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write human report: %w", err)
	}
	return nil
}

type monthCount struct {
	key   string
	count int
}

func busiestMonths(t TimeDistribution, n int) []monthCount {
	months := make([]monthCount, 0, len(t.Monthly))
	for k, c := range t.Monthly {
		months = append(months, monthCount{key: k, count: c})
	}
	sort.Slice(months, func(i, j int) bool {
		if months[i].count == months[j].count {
			return months[i].key < months[j].key
		}
		return months[i].count > months[j].count
	})
	if n < len(months) {
		months = months[:n]
	}
	return months
}

// WriteJSON serializes the report to a path, which must stay under the
// working directory.
func WriteJSON(rep Report, path string) error {
	abs, err := reportPath(path)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(abs, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", abs, err)
	}
	return nil
}

func reportPath(path string) (string, error) {
	clean := filepath.Clean(strings.TrimSpace(path))
	switch {
	case clean == "" || clean == ".":
		return "", fmt.Errorf("report path must name a file")
	case filepath.IsAbs(clean):
		return "", fmt.Errorf("report path must be relative, got %s", clean)
	case strings.HasPrefix(clean, ".."):
		return "", fmt.Errorf("report path %s escapes the working directory", clean)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine working directory: %w", err)
	}
	return filepath.Join(wd, clean), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

// formatSize renders a byte count for humans.
func formatSize(n int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
		gb = 1 << 30
	)
	switch {
	case n >= gb:
		return fmt.Sprintf("%.1f GB", float64(n)/gb)
	case n >= mb:
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	case n >= kb:
		return fmt.Sprintf("%.1f KB", float64(n)/kb)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
