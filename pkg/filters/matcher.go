package filters

import (
	"sort"
	"sync"
)

// Matcher owns the filter tree index for every collection. It deduplicates
// identical filters into a single room, shares identical leaf predicates
// across rooms through reference counting, and answers Test queries without
// scanning unrelated filters.
//
// Filter trees are scoped per collection: identical predicates registered on
// two different collections do not share storage.
type Matcher struct {
	mu          sync.RWMutex
	collections map[string]*collectionIndex
	roomHome    map[string]string // room id -> collection
}

type collectionIndex struct {
	// fields indexes predicate entries by the field they touch, which keeps
	// match evaluation proportional to the document's fields.
	fields   map[string]map[string]*predEntry
	preds    map[string]*predEntry
	rooms    map[string]*roomEntry
	matchAll map[string]struct{}
}

type predEntry struct {
	id    string
	pred  *Predicate
	refs  int
	rooms map[string]struct{}
}

type roomEntry struct {
	id      string
	expr    *Node
	predIDs []string
}

// NewMatcher returns an empty matcher.
func NewMatcher() *Matcher {
	return &Matcher{
		collections: make(map[string]*collectionIndex),
		roomHome:    make(map[string]string),
	}
}

// Resolve computes the room id a filter would register under, without
// touching the index. It is a pure function of (collection, expression).
func (m *Matcher) Resolve(collection string, expr *Node) (string, error) {
	if expr == nil {
		return "", ErrNilExpression
	}
	return RoomID(collection, expr), nil
}

// Register indexes a filter expression for a collection and returns its room
// id. Registering a filter semantically identical to an existing one returns
// the existing room id without creating new index entries.
func (m *Matcher) Register(collection string, expr *Node) (string, error) {
	if expr == nil {
		return "", ErrNilExpression
	}
	roomID := RoomID(collection, expr)

	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.collections[collection]
	if !ok {
		idx = &collectionIndex{
			fields:   make(map[string]map[string]*predEntry),
			preds:    make(map[string]*predEntry),
			rooms:    make(map[string]*roomEntry),
			matchAll: make(map[string]struct{}),
		}
		m.collections[collection] = idx
	}
	if _, exists := idx.rooms[roomID]; exists {
		return roomID, nil
	}

	room := &roomEntry{id: roomID, expr: expr}
	if expr.Kind == KindMatchAll {
		idx.matchAll[roomID] = struct{}{}
	} else {
		// A room references each distinct predicate once, even when the
		// expression repeats the same leaf.
		seen := make(map[string]struct{})
		for _, p := range expr.Leaves(nil) {
			id := p.ID()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			room.predIDs = append(room.predIDs, id)

			entry, ok := idx.preds[id]
			if !ok {
				entry = &predEntry{id: id, pred: p, rooms: make(map[string]struct{})}
				idx.preds[id] = entry
				byField, ok := idx.fields[p.Field]
				if !ok {
					byField = make(map[string]*predEntry)
					idx.fields[p.Field] = byField
				}
				byField[id] = entry
			}
			entry.refs++
			entry.rooms[roomID] = struct{}{}
		}
	}

	idx.rooms[roomID] = room
	m.roomHome[roomID] = collection
	return roomID, nil
}

// Unregister removes a room's contribution to the index, releasing its
// predicates. A predicate node is dropped once no remaining room references
// it. Returns ErrRoomNotFound for an unknown room id.
func (m *Matcher) Unregister(roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	collection, ok := m.roomHome[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	idx := m.collections[collection]
	room := idx.rooms[roomID]

	for _, id := range room.predIDs {
		entry := idx.preds[id]
		delete(entry.rooms, roomID)
		entry.refs--
		if entry.refs <= 0 {
			delete(idx.preds, id)
			byField := idx.fields[entry.pred.Field]
			delete(byField, id)
			if len(byField) == 0 {
				delete(idx.fields, entry.pred.Field)
			}
		}
	}
	delete(idx.matchAll, roomID)
	delete(idx.rooms, roomID)
	delete(m.roomHome, roomID)
	if len(idx.rooms) == 0 {
		delete(m.collections, collection)
	}
	return nil
}

// Test evaluates a document against every filter registered on a collection
// and returns the ids of matching rooms, sorted for determinism. Only
// predicates indexed under fields the document carries are evaluated; rooms
// none of whose predicates touch a present field do not match, except
// match-all rooms.
func (m *Matcher) Test(collection string, doc Document) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.collections[collection]
	if !ok {
		return nil
	}

	flat := Flatten(doc)

	leafResults := make(map[string]bool)
	candidates := make(map[string]struct{})
	for field, value := range flat {
		for id, entry := range idx.fields[field] {
			leafResults[id] = entry.pred.Match(value, true)
			for r := range entry.rooms {
				candidates[r] = struct{}{}
			}
		}
	}

	matched := make([]string, 0, len(candidates)+len(idx.matchAll))
	for r := range idx.matchAll {
		matched = append(matched, r)
	}
	for r := range candidates {
		if evalTree(idx.rooms[r].expr, leafResults, flat) {
			matched = append(matched, r)
		}
	}
	sort.Strings(matched)
	return matched
}

// RoomCount reports the number of rooms currently indexed for a collection.
func (m *Matcher) RoomCount(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.collections[collection]
	if !ok {
		return 0
	}
	return len(idx.rooms)
}

// evalTree evaluates a room's expression bottom-up against the leaf results
// computed during the field scan, short-circuiting and/or. Leaves that were
// never evaluated reference fields absent from the document: they are false,
// except missing predicates, which match absent fields by definition.
func evalTree(n *Node, leafResults map[string]bool, flat map[string]any) bool {
	switch n.Kind {
	case KindMatchAll:
		return true
	case KindLeaf:
		if res, ok := leafResults[n.Pred.ID()]; ok {
			return res
		}
		if n.Pred.Op == OpMissing {
			_, present := flat[n.Pred.Field]
			return !present
		}
		return false
	case KindNot:
		return !evalTree(n.Children[0], leafResults, flat)
	case KindAnd:
		for _, c := range n.Children {
			if !evalTree(c, leafResults, flat) {
				return false
			}
		}
		return true
	case KindOr:
		for _, c := range n.Children {
			if evalTree(c, leafResults, flat) {
				return true
			}
		}
		return false
	}
	return false
}

// Flatten expands nested objects into dot-separated field paths, so a filter
// on "address.city" sees documents shaped as {"address": {"city": ...}}.
// Non-object values, including arrays, are kept as-is.
func Flatten(doc Document) map[string]any {
	flat := make(map[string]any, len(doc))
	flattenInto(flat, "", doc)
	return flat
}

func flattenInto(dst map[string]any, prefix string, obj map[string]any) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok && len(sub) > 0 {
			flattenInto(dst, key, sub)
			continue
		}
		dst[key] = v
	}
}
