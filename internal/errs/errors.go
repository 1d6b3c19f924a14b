package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound  = errors.New("not_found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("invalid")
	// ErrInUse signals a delete rejected because the record is still referenced
	// (tag with usage or children, account type still attached to accounts).
	ErrInUse = errors.New("in_use")
	// ErrImmutable indicates an attempt to change immutable fields or built-in records.
	ErrImmutable = errors.New("immutable")
	// ErrDefaultTag indicates a system-seeded tag cannot be modified or deleted.
	ErrDefaultTag = errors.New("default_tag")
	// ErrAlreadySplit indicates a split was attempted on a transaction that already has splits.
	ErrAlreadySplit = errors.New("already_split")
	// ErrNotSplit indicates a merge or split edit on a transaction without splits.
	ErrNotSplit = errors.New("not_split")
)
