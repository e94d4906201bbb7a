// internal/reporting/console_reporter.go
package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"

	"github.com/xkilldash9x/signup-cli/api/schemas"
)

// ConsoleReporter renders the summary as a table.
type ConsoleReporter struct {
	progressLogger
	writer io.WriteCloser
}

// NewConsoleReporter takes ownership of writer.
func NewConsoleReporter(writer io.WriteCloser, logger *zap.Logger) *ConsoleReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleReporter{
		progressLogger: progressLogger{logger: logger.Named("report")},
		writer:         writer,
	}
}

func (r *ConsoleReporter) Summary(summary schemas.Summary) error {
	t := table.NewWriter()
	t.SetOutputMirror(r.writer)
	t.SetTitle(fmt.Sprintf("Run %s", summary.RunID))
	t.AppendHeader(table.Row{"#", "URL", "Result", "Note", "Attempts"})
	for i, o := range summary.Outcomes {
		t.AppendRow(table.Row{i + 1, o.URL, o.Result, o.Reason, o.Attempts})
	}
	t.AppendFooter(table.Row{"", "Total", summary.Total,
		fmt.Sprintf("%d succeeded, %d failed", summary.Succeeded, summary.Failed),
		summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second).String()})
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

func (r *ConsoleReporter) Close() error {
	return r.writer.Close()
}

// JSONReporter writes the summary as one indented JSON document.
type JSONReporter struct {
	progressLogger
	writer io.WriteCloser
}

// NewJSONReporter takes ownership of writer.
func NewJSONReporter(writer io.WriteCloser, logger *zap.Logger) *JSONReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONReporter{
		progressLogger: progressLogger{logger: logger.Named("report")},
		writer:         writer,
	}
}

type jsonOutcome struct {
	URL       string `json:"url"`
	Email     string `json:"email"`
	Result    string `json:"result"`
	Note      string `json:"note"`
	Attempts  int    `json:"attempts"`
	Timestamp string `json:"timestamp"`
}

type jsonSummary struct {
	RunID      string        `json:"run_id"`
	Total      int           `json:"total"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	FailedURLs []string      `json:"failed_urls"`
	Outcomes   []jsonOutcome `json:"outcomes"`
	StartedAt  string        `json:"started_at"`
	FinishedAt string        `json:"finished_at"`
}

func (r *JSONReporter) Summary(summary schemas.Summary) error {
	out := jsonSummary{
		RunID:      summary.RunID,
		Total:      summary.Total,
		Succeeded:  summary.Succeeded,
		Failed:     summary.Failed,
		FailedURLs: append([]string{}, summary.FailedURLs...),
		Outcomes:   make([]jsonOutcome, 0, len(summary.Outcomes)),
		StartedAt:  summary.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
		FinishedAt: summary.FinishedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, o := range summary.Outcomes {
		out.Outcomes = append(out.Outcomes, jsonOutcome{
			URL:       o.URL,
			Email:     o.Email,
			Result:    string(o.Result),
			Note:      o.Reason,
			Attempts:  o.Attempts,
			Timestamp: o.Timestamp.Format("2006-01-02 15:04:05"),
		})
	}

	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return nil
}

func (r *JSONReporter) Close() error {
	return r.writer.Close()
}
