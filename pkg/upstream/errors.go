package upstream

import "errors"

// Error kinds reported by the client. Callers branch with errors.Is;
// all of them are recoverable at tick granularity except during
// organization resolution, where the engine treats any failure as
// fatal.
var (
	// ErrHTTP means the upstream answered with status >= 400.
	ErrHTTP = errors.New("upstream returned error status")

	// ErrTransport covers network, DNS, timeout and cancellation
	// failures before a response was read.
	ErrTransport = errors.New("upstream transport failure")

	// ErrJSON means a response body could not be decoded.
	ErrJSON = errors.New("upstream body is not valid JSON")

	// ErrSchema means the response decoded but the expected path or
	// field was absent, or the resolved organization id is not a UUID.
	ErrSchema = errors.New("upstream payload missing expected field")

	// ErrMetadataNotFound means the organization page lacked the
	// embedded metadata script or its content was empty.
	ErrMetadataNotFound = errors.New("organization metadata not found")

	// ErrNotATag means the metadata node exists but has the wrong
	// shape (not a script element with a JSON media type).
	ErrNotATag = errors.New("organization metadata node has wrong shape")
)
