// Package filters implements the content-based filter tree used by the
// realtime engine to match documents against registered subscriptions.
//
// A filter is written as a nested untyped map (the shape it arrives in from
// the wire) and compiled once, at registration time, into a tagged expression
// tree of leaf predicates combined with and/or/not. Semantically identical
// filters normalize to the same canonical form and therefore to the same
// room identity.
//
// Leaf predicates are stored in a reference-counted arena keyed by their
// normalized identity and indexed by (collection, field). Matching a document
// only evaluates predicates registered on fields the document actually
// carries, so the cost of a match is proportional to the document's field
// count and the predicates on those fields, not to the total number of
// active filters.
//
// Basic usage:
//
//	m := filters.NewMatcher()
//
//	expr, err := filters.Parse(map[string]any{
//		"term": map[string]any{"firstName": "Ada"},
//	})
//	if err != nil {
//		// handle malformed filter
//	}
//
//	roomID, err := m.Register("users", expr)
//	// ...
//
//	matched := m.Test("users", map[string]any{"firstName": "Ada"})
//	// matched contains roomID
//
// Matching is a pure read and safe to run concurrently with other matches;
// Register and Unregister serialize against each other and against matches.
package filters
