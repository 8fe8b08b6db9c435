package model

import (
	"errors"
	"sort"
	"strconv"
)

// ErrInvalidCommunityID is returned when a community identifier cannot be
// parsed as a decimal snowflake.
var ErrInvalidCommunityID = errors.New("invalid community id: expected decimal snowflake")

// CommunityID uniquely identifies a Discord community (server/guild).
// It is an opaque 64-bit snowflake; the only meaningful operation is
// equality. Discord serializes snowflakes as decimal strings in JSON
// because they exceed JavaScript's safe integer range.
type CommunityID uint64

// ParseCommunityID parses a decimal snowflake string into a CommunityID.
func ParseCommunityID(s string) (CommunityID, error) {
	if s == "" {
		return 0, ErrInvalidCommunityID
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidCommunityID
	}
	return CommunityID(n), nil
}

// String returns the decimal representation of the identifier.
func (id CommunityID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Community is a tagged record from the membership export.
// The identifier is required; the display name is optional because some
// export formats carry names and some do not.
type Community struct {
	// ID is the community's snowflake identifier.
	ID CommunityID `json:"id"`

	// Name is the community's display name, empty when the export
	// did not provide one.
	Name string `json:"name,omitempty"`
}

// DisplayName returns the community's name, falling back to the raw
// decimal identifier when no name is known.
func (c Community) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID.String()
}

// MembershipSet is the set of communities the user belongs to, built
// once from the local export. It also carries the ID-to-name lookup
// used when rendering matches.
type MembershipSet struct {
	// names maps each member community to its display name.
	// An empty string means the export carried no name for that ID.
	names map[CommunityID]string
}

// NewMembershipSet creates an empty MembershipSet.
func NewMembershipSet() *MembershipSet {
	return &MembershipSet{names: make(map[CommunityID]string)}
}

// Add records a community membership. Adding the same ID twice keeps
// the first non-empty name seen.
func (m *MembershipSet) Add(id CommunityID, name string) {
	if existing, ok := m.names[id]; ok && existing != "" {
		return
	}
	m.names[id] = name
}

// Contains reports whether the set includes the given community.
func (m *MembershipSet) Contains(id CommunityID) bool {
	_, ok := m.names[id]
	return ok
}

// Name returns the display name recorded for the community, if any.
func (m *MembershipSet) Name(id CommunityID) (string, bool) {
	name, ok := m.names[id]
	return name, ok
}

// Len returns the number of communities in the set.
func (m *MembershipSet) Len() int {
	return len(m.names)
}

// Communities returns all memberships sorted by identifier.
// The sort makes enumeration deterministic for output and tests.
func (m *MembershipSet) Communities() []Community {
	out := make([]Community, 0, len(m.names))
	for id, name := range m.names {
		out = append(out, Community{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RemoteIndex is the set of communities known to the remote exposed
// database, accumulated across paginated fetch calls. It becomes
// effectively immutable once the fetch loop terminates.
type RemoteIndex struct {
	ids map[CommunityID]struct{}
}

// NewRemoteIndex creates an empty RemoteIndex.
func NewRemoteIndex() *RemoteIndex {
	return &RemoteIndex{ids: make(map[CommunityID]struct{})}
}

// Add records a community as present in the remote dataset.
// Duplicate adds are harmless; the dataset may repeat identifiers
// across pages when it changes size mid-fetch.
func (r *RemoteIndex) Add(id CommunityID) {
	r.ids[id] = struct{}{}
}

// Contains reports whether the remote dataset lists the community.
func (r *RemoteIndex) Contains(id CommunityID) bool {
	_, ok := r.ids[id]
	return ok
}

// Len returns the number of distinct communities in the index.
func (r *RemoteIndex) Len() int {
	return len(r.ids)
}

// IDs returns all identifiers sorted ascending.
func (r *RemoteIndex) IDs() []CommunityID {
	out := make([]CommunityID, 0, len(r.ids))
	for id := range r.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
