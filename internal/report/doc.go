// Package report renders check results for output.
//
// Three writers share the Writer interface:
//   - SimpleWriter: human-readable text for terminal display
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: GitHub Flavored Markdown for sharing
//
// Report data lives in the model package; this package only formats
// it, so new output formats never touch the core data structures.
package report
