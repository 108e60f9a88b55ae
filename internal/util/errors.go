package util

import "errors"

// Sentinel errors for the per-file ingestion failure taxonomy.
var (
	// ErrNotGzip indicates a project file does not carry a gzip magic header.
	ErrNotGzip = errors.New("not a gzip file")

	// ErrTruncated indicates the gzip stream ended before a full member was read.
	ErrTruncated = errors.New("truncated gzip stream")

	// ErrMissingVersion indicates the root element has no MinorVersion attribute.
	ErrMissingVersion = errors.New("missing version attribute")

	// ErrInvalidVersion indicates the MinorVersion attribute could not be parsed.
	ErrInvalidVersion = errors.New("invalid version attribute")

	// ErrInvalidProject indicates a semantic validation failure: tempo <= 0
	// or an invalid time signature, or an unrecoverable sample decode.
	ErrInvalidProject = errors.New("invalid project")

	// ErrXML indicates malformed XML below the parser.
	ErrXML = errors.New("malformed xml")

	// ErrScanInProgress is returned from StartScan while a scan is already live.
	ErrScanInProgress = errors.New("scan already in progress")

	// ErrInvalidConfig indicates invalid configuration; fatal to the hosting process.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotFound indicates a required resource was not found.
	ErrNotFound = errors.New("not found")
)

// DatabaseErrorKind discriminates the reasons a store operation can fail.
type DatabaseErrorKind int

const (
	// KindNotFound indicates a lookup miss.
	KindNotFound DatabaseErrorKind = iota
	// KindInvalidOperation indicates a policy violation, e.g. deleting an active project.
	KindInvalidOperation
	// KindConstraintViolation indicates a unique-key or check-constraint conflict.
	KindConstraintViolation
	// KindTransient indicates a retryable condition (lock contention, busy timeout).
	KindTransient
)

func (k DatabaseErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidOperation:
		return "invalid_operation"
	case KindConstraintViolation:
		return "constraint_violation"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// DatabaseError wraps a catalog failure with a discriminated kind so callers
// can branch with errors.As instead of string matching.
type DatabaseError struct {
	Kind DatabaseErrorKind
	Op   string
	Err  error
}

func (e *DatabaseError) Error() string {
	if e.Err != nil {
		return e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Kind.String()
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// NewDatabaseError constructs a DatabaseError for the given operation and kind.
func NewDatabaseError(op string, kind DatabaseErrorKind, err error) *DatabaseError {
	return &DatabaseError{Op: op, Kind: kind, Err: err}
}

// IOError wraps a filesystem failure with the offending path, matching
// the Io(path, detail) kind of the error taxonomy.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return "io: " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError wraps err with the path that produced it.
func NewIOError(path string, err error) *IOError {
	return &IOError{Path: path, Err: err}
}

// FileError pairs a path with the error produced while ingesting it. A
// batch result accumulates these instead of aborting, per the rule that
// per-file errors are non-fatal to the batch.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return e.Path + ": " + e.Err.Error()
}
