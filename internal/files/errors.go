package files

import (
	"errors"
	"fmt"
)

// Sentinel errors for name resolution. Use errors.Is to check.
var (
	ErrNotFound = errors.New("files: not found")
	ErrConflict = errors.New("files: duplicate name")
)

// ResolveError reports a name that did not resolve to exactly one item.
// Err is ErrNotFound or ErrConflict.
type ResolveError struct {
	Name string
	Err  error
}

func (e *ResolveError) Error() string {
	if errors.Is(e.Err, ErrConflict) {
		return fmt.Sprintf("Object with name: '%s' is duplicated by name. Please remove duplicate items", e.Name)
	}

	return fmt.Sprintf("Object with name: '%s' doesn't exist", e.Name)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Kind tags the operation that failed.
type Kind int

const (
	InvalidExecutionRequest Kind = iota
	NotUploaded
	NotUpdated
	NotMoved
	NotDeleted
)

func (k Kind) String() string {
	switch k {
	case InvalidExecutionRequest:
		return "invalid execution request"
	case NotUploaded:
		return "not uploaded"
	case NotUpdated:
		return "not updated"
	case NotMoved:
		return "not moved"
	case NotDeleted:
		return "not deleted"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// OpError wraps a provider failure. InvalidExecutionRequest is returned
// synchronously when a lookup query fails; the other kinds only ever reach
// the task queue.
type OpError struct {
	Kind Kind
	Name string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("files: %s: %q: %v", e.Kind, e.Name, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *OpError of the given kind.
func IsKind(err error, k Kind) bool {
	var opErr *OpError
	return errors.As(err, &opErr) && opErr.Kind == k
}
