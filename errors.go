package ichain

import "errors"

// Errors reported by chain operations. Failures inside the underlying
// libraries (ntuple reads, entry-list files, expression parsing) are
// wrapped, not translated.
var (
	ErrChainClosed      = errors.New("chain is closed")
	ErrNoTreeName       = errors.New("tree name cannot be empty")
	ErrUnknownDigest    = errors.New("unknown digest algorithm")
	ErrTreeMismatch     = errors.New("file tree name does not match chain")
	ErrColumnsMismatch  = errors.New("file columns do not match chain")
	ErrEntryRange       = errors.New("entry out of range")
	ErrBadSelectionName = errors.New("invalid selection name")
	ErrDupSelection     = errors.New("duplicate selection name")
	ErrUnknownSelection = errors.New("selection was not retrieved")
	ErrCacheDirInvalid  = errors.New("cache path exists but is not a directory")
	ErrBadExpr          = errors.New("invalid selection expression")
	ErrExprNotBool      = errors.New("selection expression did not yield a boolean")
)
