package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/guildwatch/guildwatch/internal/model"
)

// SimpleWriter outputs human-readable text reports.
//
// Plain ASCII formatting rather than ANSI colors: it works in every
// terminal and pipes cleanly to files and other tools.
type SimpleWriter struct {
	baseWriter

	// printer formats counts with locale-aware digit grouping; the
	// remote index size runs into the millions and "14,051,207" reads
	// far better than "14051207".
	printer *message.Printer

	// verbose includes per-match detail payloads in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with per-match details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		printer:    message.NewPrinter(language.English),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the check report in human-readable format.
func (w *SimpleWriter) Write(report *model.CheckReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeMatches(&sb, report)
	w.writeFooter(&sb, report)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with check information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.CheckReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        GUILDWATCH REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Export File:    %s\n", report.ExportPath)
	fmt.Fprintf(sb, "Check Date:     %s\n", report.DateChecked.Format("2006-01-02 15:04:05 MST"))
	sb.WriteString("\n")
}

// writeSummary writes the counts section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.CheckReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	w.printer.Fprintf(sb, "  Communities in export:  %d\n", report.MembershipCount)
	w.printer.Fprintf(sb, "  Exposed database size:  %d\n", report.RemoteIndexSize)
	w.printer.Fprintf(sb, "  Pages fetched:          %d\n", report.PagesFetched)
	w.printer.Fprintf(sb, "  Matches:                %d\n", report.MatchCount())

	if report.SkippedRecords > 0 {
		w.printer.Fprintf(sb, "  Skipped export records: %d (malformed)\n", report.SkippedRecords)
	}
	if report.EmptyExport {
		sb.WriteString("\n  Warning: the export contained no communities.\n")
	}
	sb.WriteString("\n")
}

// writeMatches writes one line per matched community, or the distinct
// no-matches outcome.
func (w *SimpleWriter) writeMatches(sb *strings.Builder, report *model.CheckReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("MATCHES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if !report.HasMatches() {
		sb.WriteString("  No servers matched. You may not be in the dataset.\n\n")
		return
	}

	for _, match := range report.Matches {
		if match.Name != "" {
			fmt.Fprintf(sb, "  [!] %s (ID: %s) is listed in the exposed database\n",
				match.Name, match.ID)
		} else {
			fmt.Fprintf(sb, "  [!] %s is listed in the exposed database\n", match.ID)
		}
		if w.verbose && match.Detail != nil {
			fmt.Fprintf(sb, "      detail: %s\n", match.Detail)
		}
	}
	sb.WriteString("\n")

	if report.DetailErrors > 0 {
		w.printer.Fprintf(sb, "  Note: detail lookup failed for %d match(es).\n\n", report.DetailErrors)
	}
}

// writeFooter writes the elapsed time footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, report *model.CheckReport) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Completed in %s\n", report.Elapsed.Round(time.Millisecond))
}
