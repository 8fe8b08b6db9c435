// Package log provides logging with automatic masking of sensitive
// values, built on the standard slog package.
//
// A check run handles personal data: the membership export comes from
// a Discord data package, and users sometimes point guildwatch at
// authenticated mirrors of the dataset endpoint. The SanitizingHandler
// masks credential-shaped attributes (Authorization headers, API keys,
// tokens) before they reach the underlying handler, so verbose logs
// stay safe to share in bug reports.
package log
