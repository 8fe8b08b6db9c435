// Package database provides SQLite-based storage of past check runs.
//
// Each completed check saves one row: when it ran, which export it
// checked, the counts, and the matches as JSON. This is a local record
// of results for the history command; the remote index itself is never
// persisted or reused between runs.
package database
