// Package match computes the intersection of the user's membership set
// with the remote dataset index.
package match

import (
	"sort"

	"github.com/guildwatch/guildwatch/internal/model"
)

// Intersect returns the communities present in both the membership set
// and the remote index, sorted by identifier.
//
// The result is computed in linear time over the smaller direction:
// memberships are enumerated (they carry the names needed for display)
// and tested against the index's constant-time lookup. A user's guild
// list is orders of magnitude smaller than the remote index, so
// iterating memberships is effectively always the cheap side.
//
// Pure function over two immutable inputs: no errors, and identical
// inputs always yield the identical sorted result.
func Intersect(memberships *model.MembershipSet, index *model.RemoteIndex) []model.Match {
	matches := make([]model.Match, 0)
	for _, c := range memberships.Communities() {
		if index.Contains(c.ID) {
			matches = append(matches, model.Match{Community: c})
		}
	}
	// Communities() already sorts, but the contract of this function
	// is sorted output regardless of input enumeration order.
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches
}
