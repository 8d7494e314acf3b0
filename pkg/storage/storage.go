package storage

import "context"

// Operation enumerates the supported persistence operations.
type Operation string

const (
	OpCreate           Operation = "create"
	OpCreateOrReplace  Operation = "createOrReplace"
	OpUpdate           Operation = "update"
	OpReplace          Operation = "replace"
	OpDelete           Operation = "delete"
	OpDeleteByQuery    Operation = "deleteByQuery"
	OpCreateCollection Operation = "createCollection"
)

// Document is the untyped document shape persisted by an engine.
type Document = map[string]any

// Result describes the outcome of a successful write.
type Result struct {
	Collection string
	ID         string   // affected document id, empty for multi-document operations
	Count      int64    // number of affected documents
	Document   Document // resulting document where applicable (create/replace/update)
}

// Engine is the narrow persistence interface consumed by the write router.
// Implementations must be safe for concurrent use.
type Engine interface {
	// Write applies op to collection. For delete the document carries the
	// target "_id"; for deleteByQuery it carries the match criteria; for
	// createCollection it is ignored.
	Write(ctx context.Context, op Operation, collection string, doc Document) (Result, error)
}
