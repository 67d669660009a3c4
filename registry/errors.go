package registry

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyName is returned when a name or alias is the empty string.
	ErrEmptyName = errors.New("name must not be empty")

	// ErrAlreadyRegistered is returned when an alias or a singleton name is
	// already bound and overriding is not permitted.
	ErrAlreadyRegistered = errors.New("already registered")

	// ErrCircularAlias is returned when registering an alias would make a
	// name resolve, directly or transitively, back to itself.
	ErrCircularAlias = errors.New("circular alias reference")

	// ErrAliasNotFound is returned by RemoveAlias for an unknown alias.
	ErrAliasNotFound = errors.New("alias not registered")

	// ErrCurrentlyInCreation is returned when a construction chain requests
	// a name that is already being constructed on that same chain — an
	// unresolvable circular reference.
	ErrCurrentlyInCreation = errors.New("currently in creation")

	// ErrCreationNotAllowed is returned when a new singleton is requested
	// while the registry is destroying its singletons.
	ErrCreationNotAllowed = errors.New("creation not allowed while registry is shutting down")
)

// CreationError wraps a factory failure for a specific name. Related holds
// errors that were suppressed during the same construction attempt — nested
// creation failures, or errors recorded via OnSuppressed — as a diagnostic
// aid for cascading circular-reference failures.
type CreationError struct {
	Name    string
	Err     error
	Related []error
}

func (e *CreationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "creating shared instance %q: %v", e.Name, e.Err)
	if len(e.Related) > 0 {
		fmt.Fprintf(&b, " (%d related cause(s):", len(e.Related))
		for _, r := range e.Related {
			fmt.Fprintf(&b, " %v;", r)
		}
		b.WriteString(")")
	}
	return b.String()
}

func (e *CreationError) Unwrap() error { return e.Err }
