package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/guildwatch/guildwatch/internal/model"
)

// MarkdownWriter outputs reports in GitHub Flavored Markdown,
// suitable for sharing or archiving alongside other documentation.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the check report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CheckReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeMatches(md, report)
	w.writeFooter(md, report)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and the summary table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CheckReport) {
	md.H1("Guildwatch Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Export File", "`" + report.ExportPath + "`"},
			{"Check Date", report.DateChecked.Format("2006-01-02 15:04:05 MST")},
			{"Communities in Export", strconv.Itoa(report.MembershipCount)},
			{"Exposed Database Size", strconv.Itoa(report.RemoteIndexSize)},
			{"Matches", strconv.Itoa(report.MatchCount())},
		},
	})
	md.PlainText("")

	if report.SkippedRecords > 0 {
		md.Warningf("%d malformed export record(s) were skipped during loading.",
			report.SkippedRecords)
		md.PlainText("")
	}
	if report.EmptyExport {
		md.Note("The membership export contained no communities.")
		md.PlainText("")
	}
}

// writeMatches writes the match table or the no-matches alert.
func (w *MarkdownWriter) writeMatches(md *markdown.Markdown, report *model.CheckReport) {
	md.H2("Matches")
	md.PlainText("")

	if !report.HasMatches() {
		md.Tip("No servers matched. You may not be in the dataset.")
		md.PlainText("")
		return
	}

	md.Cautionf("%d of your communities are listed in the exposed database.",
		report.MatchCount())
	md.PlainText("")

	rows := make([][]string, 0, len(report.Matches))
	for _, match := range report.Matches {
		name := match.Name
		if name == "" {
			name = "(unknown)"
		}
		rows = append(rows, []string{"`" + match.ID.String() + "`", name})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Community ID", "Name"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.DetailErrors > 0 {
		md.Notef("Detail lookup failed for %d match(es).", report.DetailErrors)
		md.PlainText("")
	}
}

// writeFooter writes the elapsed time line.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown, report *model.CheckReport) {
	md.PlainTextf("Completed in %s.", report.Elapsed.Round(time.Millisecond))
}
