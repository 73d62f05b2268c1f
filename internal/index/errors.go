package index

import "errors"

// Sentinel errors returned by the index package. NotFound and Corrupt
// failures are reported as NotFoundError and CorruptError, which carry
// the offending key in a field and unwrap to these sentinels, so
// errors.Is composes normally at call sites.
var (
	// ErrNotFound is returned by Get/FindPackage when the queried entity
	// is absent.
	ErrNotFound = errors.New("index: not found")
	// ErrCorrupt is returned by Get when the stored blob fails to decode.
	ErrCorrupt = errors.New("index: stored value is corrupt")
	// ErrCloseFailed is returned by Close when all close retries are
	// exhausted.
	ErrCloseFailed = errors.New("index: close failed after retries")
	// ErrClosed is returned by any operation attempted while Close is in
	// progress. Operations issued after Close has returned reopen the
	// database instead.
	ErrClosed = errors.New("index: engine deinitialized")
)

// NotFoundError wraps ErrNotFound with the identifier or identity that
// was missing, for diagnostics without losing errors.Is(err,
// ErrNotFound).
type NotFoundError struct {
	Subject string
}

func (e *NotFoundError) Error() string {
	return "index: not found: " + e.Subject
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// CorruptError wraps ErrCorrupt with the key of the offending row.
type CorruptError struct {
	Key string
	Err error
}

func (e *CorruptError) Error() string {
	return "index: corrupt value for " + e.Key + ": " + e.Err.Error()
}

func (e *CorruptError) Unwrap() error {
	return ErrCorrupt
}
