package storage

import (
	"context"
	"maps"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process document store. Documents are copied at the top
// level on the way in and out, so callers never alias the engine's own
// maps; nested values still share structure with the caller.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
}

// NewMemory creates an empty in-memory engine.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]Document)}
}

// Write implements Engine.
func (m *Memory) Write(_ context.Context, op Operation, collection string, doc Document) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch op {
	case OpCreate:
		return m.create(collection, doc)
	case OpCreateOrReplace:
		return m.upsert(collection, doc)
	case OpUpdate:
		return m.update(collection, doc)
	case OpReplace:
		return m.replace(collection, doc)
	case OpDelete:
		return m.delete(collection, doc)
	case OpDeleteByQuery:
		return m.deleteByQuery(collection, doc)
	case OpCreateCollection:
		m.coll(collection)
		return Result{Collection: collection}, nil
	}
	return Result{}, ErrUnsupportedOperation
}

// Count reports the number of documents in a collection.
func (m *Memory) Count(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

// Get returns a copy of a document by id.
func (m *Memory) Get(collection, id string) (Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.collections[collection][id]
	if !ok {
		return nil, false
	}
	return maps.Clone(doc), true
}

func (m *Memory) coll(collection string) map[string]Document {
	c, ok := m.collections[collection]
	if !ok {
		c = make(map[string]Document)
		m.collections[collection] = c
	}
	return c
}

func (m *Memory) create(collection string, doc Document) (Result, error) {
	c := m.coll(collection)
	id := documentID(doc)
	if id == "" {
		id = uuid.New().String()
	} else if _, taken := c[id]; taken {
		return Result{}, ErrDocumentExists
	}
	stored := maps.Clone(doc)
	stored["_id"] = id
	c[id] = stored
	return Result{Collection: collection, ID: id, Count: 1, Document: maps.Clone(stored)}, nil
}

func (m *Memory) upsert(collection string, doc Document) (Result, error) {
	c := m.coll(collection)
	id := documentID(doc)
	if id == "" {
		id = uuid.New().String()
	}
	stored := maps.Clone(doc)
	stored["_id"] = id
	c[id] = stored
	return Result{Collection: collection, ID: id, Count: 1, Document: maps.Clone(stored)}, nil
}

func (m *Memory) update(collection string, doc Document) (Result, error) {
	id := documentID(doc)
	if id == "" {
		return Result{}, ErrMissingDocumentID
	}
	existing, ok := m.collections[collection][id]
	if !ok {
		return Result{}, ErrDocumentNotFound
	}
	for k, v := range doc {
		existing[k] = v
	}
	return Result{Collection: collection, ID: id, Count: 1, Document: maps.Clone(existing)}, nil
}

func (m *Memory) replace(collection string, doc Document) (Result, error) {
	id := documentID(doc)
	if id == "" {
		return Result{}, ErrMissingDocumentID
	}
	c := m.collections[collection]
	if _, ok := c[id]; !ok {
		return Result{}, ErrDocumentNotFound
	}
	stored := maps.Clone(doc)
	stored["_id"] = id
	c[id] = stored
	return Result{Collection: collection, ID: id, Count: 1, Document: maps.Clone(stored)}, nil
}

func (m *Memory) delete(collection string, doc Document) (Result, error) {
	id := documentID(doc)
	if id == "" {
		return Result{}, ErrMissingDocumentID
	}
	c := m.collections[collection]
	if _, ok := c[id]; !ok {
		return Result{}, ErrDocumentNotFound
	}
	delete(c, id)
	return Result{Collection: collection, ID: id, Count: 1}, nil
}

func (m *Memory) deleteByQuery(collection string, query Document) (Result, error) {
	c := m.collections[collection]
	var removed int64
	for id, doc := range c {
		if matchesQuery(doc, query) {
			delete(c, id)
			removed++
		}
	}
	return Result{Collection: collection, Count: removed}, nil
}

// matchesQuery checks field-by-field equality of the criteria against the
// document. An empty query matches everything.
func matchesQuery(doc, query Document) bool {
	for k, want := range query {
		got, ok := doc[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func documentID(doc Document) string {
	id, _ := doc["_id"].(string)
	return id
}
