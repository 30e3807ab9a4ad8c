package main

import (
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"NewsCrawler/internal/config"
	"NewsCrawler/internal/domain"
)

func renderSummaries(w io.Writer, summaries []domain.RunSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Source", "Inserted", "Skipped", "Failed", "Pages", "Stop", "Elapsed", "Warnings", "Error"})

	var inserted, failed int
	for _, s := range summaries {
		t.AppendRow(table.Row{
			s.SourceID,
			s.Inserted,
			s.Skipped,
			s.Failed,
			s.Pages,
			string(s.StopReason),
			s.Elapsed.Round(time.Millisecond).String(),
			strings.Join(s.Warnings, "; "),
			describeError(s.Err),
		})
		inserted += s.Inserted
		failed += s.Failed
	}
	t.AppendFooter(table.Row{"Total", inserted, "", failed})
	t.Render()
}

func renderSources(w io.Writer, sources []config.SourceConfig) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Adapter", "Enabled", "Query", "Endpoint"})

	for _, s := range sources {
		t.AppendRow(table.Row{s.Name, strings.ToLower(s.Adapter), s.IsEnabled(), s.Query, s.Endpoint})
	}
	t.Render()
}

func describeError(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
