package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// The network defaults are deliberately conservative: the exposed
// database's API rate-limits aggressively, and a banned client helps
// nobody.
const (
	// DefaultIndexURL is the paginated index endpoint of the exposed
	// database. Each page returns a bounded list of community IDs plus
	// a continuation cursor.
	DefaultIndexURL = "https://api.spy.pet/servers"

	// DefaultDetailURL is the per-community detail endpoint. The
	// community ID is appended as a path segment.
	DefaultDetailURL = "https://api.spy.pet/servers"

	// DefaultExportFile is the membership export file name looked up in
	// the working directory when no path is given. Discord data
	// packages ship the server list as index.json.
	DefaultExportFile = "index.json"

	// DefaultPageSize is the number of identifiers requested per page.
	DefaultPageSize = 1000

	// DefaultMaxRetries is the per-page retry ceiling for transient
	// failures. Five attempts with exponential backoff spans roughly
	// 15 seconds, enough to ride out short rate-limit windows.
	DefaultMaxRetries = 5

	// DefaultBackoffBase is the first retry delay; subsequent retries
	// double it. A Retry-After header from the server overrides the
	// computed delay.
	DefaultBackoffBase = 500 * time.Millisecond

	// DefaultTimeout is the per-request timeout. The dataset endpoint
	// is clearnet HTTPS, so 30 seconds is generous.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerSecond caps the request rate between pages as a
	// politeness setting, independent of server-driven rate limits.
	DefaultRequestsPerSecond = 2

	// DefaultConcurrency is the number of concurrent detail lookups.
	// More than one concurrent request risks rate limiting, so the
	// default stays at one.
	DefaultConcurrency = 1

	// DefaultUserAgent identifies guildwatch in HTTP requests.
	DefaultUserAgent = "guildwatch/1.0 (+https://github.com/guildwatch/guildwatch)"

	// DefaultMaxBodySize limits the response body size read per page.
	// 5MB comfortably holds the largest expected page while preventing
	// memory exhaustion from a misbehaving endpoint.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// AppName is the application name used for XDG directory paths.
	AppName = "guildwatch"
)

// Config holds all configuration options for a check run.
// It is populated from defaults, the optional config file, and CLI
// flags, then passed by value through the application.
type Config struct {
	// ExportPath is the path to the local membership export file.
	ExportPath string

	// IndexURL is the paginated index endpoint of the exposed database.
	IndexURL string

	// DetailURL is the per-community detail endpoint.
	DetailURL string

	// PageSize is the number of identifiers requested per index page.
	PageSize int

	// MaxRetries is the per-page retry ceiling for transient failures.
	MaxRetries int

	// BackoffBase is the initial retry delay, doubled per attempt.
	BackoffBase time.Duration

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// RequestsPerSecond caps the client-side request rate.
	// Zero disables the politeness limiter.
	RequestsPerSecond float64

	// Concurrency is the number of concurrent detail lookups.
	Concurrency int

	// FetchDetails enables per-match detail lookup after matching.
	FetchDetails bool

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Verbose enables debug-level log output.
	Verbose bool

	// JSONReport selects JSON report output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to this path instead of stdout.
	ReportFile string

	// ConfigFilePath is an explicit config file path. Empty means
	// search .guildwatch in the current and home directories.
	ConfigFilePath string

	// SaveToDB persists the check report to the history database.
	SaveToDB bool

	// DBDir is the directory holding the history database.
	// Defaults to the XDG data directory.
	DBDir string
}

// NewConfig creates a Config with default values.
//
// Design decision: a constructor rather than zero values because most
// defaults are non-zero, and the constructor doubles as documentation
// of what they are.
func NewConfig() *Config {
	return &Config{
		ExportPath:        DefaultExportFile,
		IndexURL:          DefaultIndexURL,
		DetailURL:         DefaultDetailURL,
		PageSize:          DefaultPageSize,
		MaxRetries:        DefaultMaxRetries,
		BackoffBase:       DefaultBackoffBase,
		Timeout:           DefaultTimeout,
		RequestsPerSecond: DefaultRequestsPerSecond,
		Concurrency:       DefaultConcurrency,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		SaveToDB:          true,
		DBDir:             XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for guildwatch.
// On Linux: ~/.local/share/guildwatch
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for guildwatch.
// On Linux: ~/.config/guildwatch
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks that the configuration is usable and returns the
// first problem found as a sentinel error. Called once after flag
// parsing, before any I/O begins.
func (c *Config) Validate() error {
	if c.IndexURL == "" {
		return ErrNoIndexURL
	}
	if c.FetchDetails && c.DetailURL == "" {
		return ErrNoDetailURL
	}
	if c.PageSize <= 0 {
		return ErrInvalidPageSize
	}
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.BackoffBase <= 0 {
		return ErrInvalidBackoff
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RequestsPerSecond < 0 {
		return ErrInvalidRateLimit
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}
