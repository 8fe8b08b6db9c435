// Package model defines the core data structures shared across guildwatch.
//
// The central types are CommunityID (a Discord guild snowflake),
// MembershipSet (the communities found in the user's local export),
// RemoteIndex (the communities listed by the exposed database), and
// CheckReport (the result of one check run, consumed by the report
// writers and the history database).
//
// Both MembershipSet and RemoteIndex are built once by their producers
// and treated as read-only afterwards, so they need no synchronization
// once handed to the matcher.
package model
