// Package vecerr defines the error taxonomy shared across the vector index
// packages. Every failure that can cross a package boundary is wrapped in an
// *Error carrying a Kind, so the virtual-table layer can translate it into an
// engine error code without string-sniffing.
package vecerr

import "fmt"

// Kind classifies a failure the way the rest of the module reasons about it.
type Kind int

const (
	// Internal marks an invariant violation. Surfaced but never relied upon
	// as control flow.
	Internal Kind = iota
	// InvalidArgument marks malformed input: bad dimension, bad row-id,
	// unparsable declaration.
	InvalidArgument
	// AlreadyExists marks a duplicate live label or a duplicate constraint
	// kind in a single query.
	AlreadyExists
	// NotFound marks a get/delete of an absent label.
	NotFound
	// FailedPrecondition marks a constraint used before materialization.
	FailedPrecondition
	// ResourceExhausted marks HNSW capacity reached.
	ResourceExhausted
	// Unimplemented marks an unsupported update shape.
	Unimplemented
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case AlreadyExists:
		return "AlreadyExists"
	case NotFound:
		return "NotFound"
	case FailedPrecondition:
		return "FailedPrecondition"
	case ResourceExhausted:
		return "ResourceExhausted"
	case Unimplemented:
		return "Unimplemented"
	default:
		return "Internal"
	}
}

// Error is the error type carried across package boundaries in this module.
type Error struct {
	Kind Kind
	Op   string // short operation name, e.g. "insert", "knn", "from_blob"
	Msg  string
	Err  error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, vecerr.ErrNotFound) style checks against the
// sentinels below; KindOf extracts the Kind directly.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error of the given kind.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap constructs an *Error of the given kind wrapping a lower-level cause.
func Wrap(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, otherwise
// returns Internal.
func KindOf(err error) Kind {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return Internal
	}
	return e.Kind
}

// sentinel kind markers usable with errors.Is.
var (
	ErrInvalidArgument     = &Error{Kind: InvalidArgument}
	ErrAlreadyExists       = &Error{Kind: AlreadyExists}
	ErrNotFound            = &Error{Kind: NotFound}
	ErrFailedPrecondition  = &Error{Kind: FailedPrecondition}
	ErrResourceExhausted   = &Error{Kind: ResourceExhausted}
	ErrUnimplemented       = &Error{Kind: Unimplemented}
	ErrInternal            = &Error{Kind: Internal}
)
