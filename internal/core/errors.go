package core

import "errors"

// Sentinel errors classifying every failure a component operation can
// report. Commands match on these with errors.Is to build the printed
// error document; none of them should abort the process.
var (
	// ErrNotFound: a project, file, or directory the operation needs is absent.
	ErrNotFound = errors.New("not found")

	// ErrNotInitialized: the project directory exists but has no git metadata.
	ErrNotInitialized = errors.New("git repository not initialized")

	// ErrInvalidTarget: the target exists but is the wrong kind
	// (e.g. a directory where a file is expected).
	ErrInvalidTarget = errors.New("invalid target")

	// ErrNetwork: a transport-level failure (dial, timeout, non-200 download).
	ErrNetwork = errors.New("network error")

	// ErrArchiveCorrupt: a downloaded archive could not be extracted.
	ErrArchiveCorrupt = errors.New("archive extraction failed")

	// ErrUnexpectedShape: a server response did not match the expected
	// structure for its endpoint.
	ErrUnexpectedShape = errors.New("unexpected response shape")
)

// Expected reports whether err belongs to the documented taxonomy above.
// Commands print these as {"error": ...} documents and exit zero; anything
// else is an unexpected fault and keeps its non-zero exit.
func Expected(err error) bool {
	for _, sentinel := range []error{
		ErrNotFound, ErrNotInitialized, ErrInvalidTarget,
		ErrNetwork, ErrArchiveCorrupt, ErrUnexpectedShape,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
