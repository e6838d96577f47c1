package videos

import "errors"

var (
	// ErrUnknownFileSize indicates neither the picker-declared size nor a
	// local stat could establish the upload size.
	ErrUnknownFileSize = errors.New("cannot determine file size")
	// ErrTransferFailed wraps any failure while streaming bytes to the
	// pre-signed target.
	ErrTransferFailed = errors.New("file transfer failed")
	// ErrVideoNotFound indicates the requested id is not in the catalog.
	ErrVideoNotFound = errors.New("video not found")
	// ErrUnsupportedSource indicates the upload reference uses a scheme the
	// client has no opener for.
	ErrUnsupportedSource = errors.New("unsupported source reference")
)
