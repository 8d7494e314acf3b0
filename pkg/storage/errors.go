package storage

import "errors"

var (
	// ErrUnsupportedOperation is returned for an operation the engine does
	// not implement.
	ErrUnsupportedOperation = errors.New("storage: unsupported operation")

	// ErrDocumentExists is returned by create when the document id is taken.
	ErrDocumentExists = errors.New("storage: document already exists")

	// ErrDocumentNotFound is returned by update, replace and delete when the
	// target document does not exist.
	ErrDocumentNotFound = errors.New("storage: document not found")

	// ErrMissingDocumentID is returned when an operation requires an "_id"
	// and the document does not carry one.
	ErrMissingDocumentID = errors.New("storage: document id is required")

	// ErrFailedToConnect is returned when the engine cannot reach its
	// backing server.
	ErrFailedToConnect = errors.New("storage: failed to connect")
)
