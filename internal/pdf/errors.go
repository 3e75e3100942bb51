package pdf

import "errors"

// Per-document failure conditions. Batch callers match with errors.Is and
// continue with the remaining documents.
var (
	// ErrMissingFile means the named template does not exist in the library.
	ErrMissingFile = errors.New("template file not found")
	// ErrEncryptedSource means the source is password-protected or otherwise
	// access-restricted. Permanent, non-retryable.
	ErrEncryptedSource = errors.New("cannot process encrypted PDF")
	// ErrUnreadableSource means the source could not be parsed.
	ErrUnreadableSource = errors.New("PDF cannot be parsed")
	// ErrNoDocuments is returned by Merge when given zero documents.
	ErrNoDocuments = errors.New("no documents to merge")
)
