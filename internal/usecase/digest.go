package usecase

import (
	"fmt"
	"strings"
	"time"

	"NewsCrawler/internal/domain"
)

// BuildDigest renders run summaries as a short plain-text report.
func BuildDigest(summaries []domain.RunSummary) string {
	if len(summaries) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Crawl report\n")
	for _, s := range summaries {
		status := "ok"
		if !s.OK() {
			status = "error: " + s.Err.Error()
		}
		fmt.Fprintf(&b, "- %s: %d new, %d skipped, %d failed (%s, %s) %s\n",
			s.SourceID,
			s.Inserted,
			s.Skipped,
			s.Failed,
			s.StopReason,
			s.Elapsed.Round(time.Second),
			status)
		for _, w := range s.Warnings {
			fmt.Fprintf(&b, "  warning: %s\n", w)
		}
	}

	return b.String()
}
