// Package report renders crawl summaries for operators.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown with tables and a Mermaid chart for sharing
//
// Design decision: We separate report writing from the summary data
// (Summary) to follow the single responsibility principle. This allows
// adding new output formats without touching how the summary is computed.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably.
package report
