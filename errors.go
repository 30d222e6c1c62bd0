package atomspace

import "errors"

// Sentinel errors for Space operations.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrAtomNotFound indicates that the requested atom does not exist in the
	// space, either by id or by (kind, name).
	//
	// Example:
	//	atom, err := space.Atom(id)
	//	if errors.Is(err, atomspace.ErrAtomNotFound) {
	//	    // atom was never created, or has been removed
	//	}
	ErrAtomNotFound = errors.New("atom not found")

	// ErrInvalidReference indicates that a link's outgoing list names an id
	// that is not present in this space. The add is rejected and the space is
	// left unchanged.
	//
	// Example:
	//	_, err := space.AddLink("Inheritance", []string{"bogus"})
	//	if errors.Is(err, atomspace.ErrInvalidReference) {
	//	    // referenced atom must be created first
	//	}
	ErrInvalidReference = errors.New("invalid atom reference")

	// ErrInvalidKind indicates that a kind from the wrong family was used:
	// a link kind passed to AddNode, or a node kind passed to AddLink.
	// Unknown kinds are allowed (the taxonomy is open-ended) and only logged.
	ErrInvalidKind = errors.New("invalid atom kind")

	// ErrImportInconsistent indicates that a snapshot could not be imported:
	// a record is malformed, duplicates an earlier id, or references an atom
	// that does not appear earlier in the record list. The import is
	// all-or-nothing, so the space is left exactly as it was.
	ErrImportInconsistent = errors.New("import inconsistent")
)
