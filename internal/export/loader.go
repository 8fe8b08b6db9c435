package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/guildwatch/guildwatch/internal/model"
)

// Export is the parsed membership export: the community set with its
// ID-to-name lookup, plus the count of records skipped as malformed.
type Export struct {
	// Memberships is the set of communities found in the export.
	Memberships *model.MembershipSet

	// Skipped counts records that were dropped because their
	// identifier was missing or not a decimal snowflake.
	Skipped int
}

// Load reads and parses the membership export at path.
//
// On success it returns the parsed Export. When the export is valid but
// empty, it returns the empty Export together with ErrEmptyExport so
// the caller can warn and still proceed. The source file is only read,
// never modified.
func Load(path string) (*Export, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided export path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrExportNotFound, path)
		}
		return nil, fmt.Errorf("failed to read membership export %s: %w", path, err)
	}

	ex, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if ex.Memberships.Len() == 0 {
		return ex, fmt.Errorf("%w: %s", ErrEmptyExport, path)
	}
	return ex, nil
}

// parse decodes the export document, auto-detecting its shape from the
// first non-whitespace byte.
func parse(data []byte) (*Export, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		// A zero-byte file is empty input, not a parse failure.
		return &Export{Memberships: model.NewMembershipSet()}, nil
	}

	switch trimmed[0] {
	case '{':
		return parseMap(data)
	case '[':
		return parseRecords(data)
	default:
		return nil, fmt.Errorf("%w: document must be a JSON object or array", ErrParse)
	}
}

// parseMap decodes the servers/index.json form: an object mapping ID
// strings to server names.
func parseMap(data []byte) (*Export, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	ex := &Export{Memberships: model.NewMembershipSet()}
	for key, name := range raw {
		id, err := model.ParseCommunityID(key)
		if err != nil {
			ex.Skipped++
			continue
		}
		ex.Memberships.Add(id, name)
	}
	return ex, nil
}

// record is one entry of the array form. The identifier may be a JSON
// string or a JSON number; real exports contain both.
type record struct {
	ID   snowflake `json:"id"`
	Name string    `json:"name"`
}

// snowflake is a CommunityID that tolerates string or number encoding.
// A missing or invalid value leaves ok false so the record is skipped.
type snowflake struct {
	id model.CommunityID
	ok bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *snowflake) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		// Not a string; try a bare number. json.Number avoids
		// float64 precision loss on large snowflakes.
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return nil // leave ok false, record is skipped
		}
		str = num.String()
	}

	id, err := model.ParseCommunityID(str)
	if err != nil {
		return nil // leave ok false, record is skipped
	}
	s.id = id
	s.ok = true
	return nil
}

// parseRecords decodes the array-of-records form.
func parseRecords(data []byte) (*Export, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	ex := &Export{Memberships: model.NewMembershipSet()}
	for _, rec := range records {
		if !rec.ID.ok {
			ex.Skipped++
			continue
		}
		ex.Memberships.Add(rec.ID.id, rec.Name)
	}
	return ex, nil
}
