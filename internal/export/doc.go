// Package export loads the user's local community membership export.
//
// The export comes from a Discord personal data package. Two shapes are
// accepted, both seen in real packages: a JSON object mapping ID
// strings to server names (the servers/index.json form), and a JSON
// array of {"id": ..., "name": ...} records.
//
// Individually malformed records are skipped and counted rather than
// aborting the load; only a structurally unparseable document is an
// error. The skip count is surfaced to the caller so the report can
// warn about it.
package export
