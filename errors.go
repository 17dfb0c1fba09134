package ctsim

// file errors.go holds the error types reported while building a topology
// and while driving the simulator through its phases

import (
	"errors"
	"fmt"
	"strings"
)

// A ReferenceError reports a name used by a link, gateway or application
// that is not present in the node registry.
type ReferenceError struct {
	Source string // entity (or application) holding the reference
	Target string // name that could not be resolved
	What   string // "link", "gateway", "application"
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s %s -> %s: node not found", e.What, e.Source, e.Target)
}

// A SchemaError reports an entity, connection or application entry that
// does not carry the fields its type requires.
type SchemaError struct {
	Entity string
	Reason string
}

func (e *SchemaError) Error() string {
	if len(e.Entity) == 0 {
		return "unnamed entity: " + e.Reason
	}
	return fmt.Sprintf("entity %s: %s", e.Entity, e.Reason)
}

// DuplicateNameError is returned by the registry when a name is offered a second time.
type DuplicateNameError struct {
	Name  string
	Layer Layer
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("name %s already registered, rejected in %s layer", e.Name, e.Layer)
}

// DuplicateLinkError marks a declared link whose unordered pair is already realized.
type DuplicateLinkError struct {
	A, B string
}

func (e *DuplicateLinkError) Error() string {
	return fmt.Sprintf("link already exists: %s <-> %s", e.A, e.B)
}

// SourceError wraps a failure to read or decode an input document. It is fatal.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	path := e.Path
	if len(path) == 0 {
		path = "<bytes>"
	}
	return fmt.Sprintf("source %s: %v", path, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// StateError is returned when a simulator phase is called out of order.
type StateError struct {
	Op   string
	Want Phase
	Have Phase
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s requires phase %s, simulator is in phase %s", e.Op, e.Want, e.Have)
}

// ReportErrs transforms a list of errors and transforms the non-nil ones into a single error
// with comma-separated report of all the constituent errors, and returns it.
func ReportErrs(errs []error) error {
	errMsg := make([]string, 0)
	for _, err := range errs {
		if err != nil {
			errMsg = append(errMsg, err.Error())
		}
	}
	if len(errMsg) == 0 {
		return nil
	}

	return errors.New(strings.Join(errMsg, ","))
}
