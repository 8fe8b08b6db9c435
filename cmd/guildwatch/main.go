// Package main provides the entry point for the guildwatch CLI.
//
// Guildwatch checks a local Discord membership export against the
// spy.pet exposed-database index and reports which of your communities
// the dataset lists.
//
// Usage:
//
//	guildwatch check [export-file]
//	guildwatch history
//
// See --help for all available options.
package main

// main is the entry point for guildwatch.
func main() {
	Execute()
}
