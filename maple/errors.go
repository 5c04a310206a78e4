package maple

import "errors"

// Error kinds mirror spec.md §7: no custom error-struct hierarchy, just
// sentinels wrapped with fmt.Errorf the way database/wal/log.go and
// database/client/io.go do.
var (
	ErrInvalidRange  = errors.New("maple: invalid range (first > last)")
	ErrReservedValue = errors.New("maple: value is reserved for internal sentinels")
	ErrAlreadyExists = errors.New("maple: range already holds a value")
	ErrOOM           = errors.New("maple: out of memory")
	ErrBusy          = errors.New("maple: no fit for requested allocation")
	ErrCorrupt       = errors.New("maple: tree invariant violated during ascent")
	ErrNilContext    = errors.New("maple: nil context")
)
