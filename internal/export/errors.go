package export

import "errors"

// Loader errors.
//
// Design decision: sentinel errors so the CLI can distinguish the soft
// empty-export case from genuinely fatal ones with errors.Is. Load
// wraps these with path context via fmt.Errorf.
var (
	// ErrExportNotFound is returned when the export file does not exist.
	ErrExportNotFound = errors.New("membership export not found")

	// ErrParse is returned when the export document does not conform to
	// any supported shape. Individually malformed records do not
	// trigger this; they are skipped and counted instead.
	ErrParse = errors.New("membership export is malformed")

	// ErrEmptyExport is returned alongside a valid empty result when
	// the export parses cleanly but contains zero records. This is a
	// warning, not necessarily fatal: an empty membership list is not
	// inherently a defect, and callers may proceed to an empty match
	// result.
	ErrEmptyExport = errors.New("membership export contains no communities")
)
