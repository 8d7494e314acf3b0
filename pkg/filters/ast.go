package filters

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Document is the untyped document shape evaluated against filters.
type Document = map[string]any

// Operator identifies a leaf predicate operator.
type Operator string

const (
	OpTerm    Operator = "term"
	OpTerms   Operator = "terms"
	OpExists  Operator = "exists"
	OpMissing Operator = "missing"
	OpRange   Operator = "range"
)

// NodeKind tags the variants of the expression tree.
type NodeKind uint8

const (
	// KindMatchAll is the empty filter; it matches every document in its
	// collection.
	KindMatchAll NodeKind = iota + 1
	KindLeaf
	KindAnd
	KindOr
	KindNot
)

// Node is one node of a compiled filter expression tree. Leaf nodes carry a
// predicate; and/or carry two or more children; not carries exactly one.
type Node struct {
	Kind     NodeKind
	Pred     *Predicate
	Children []*Node
}

// RangeBounds holds the numeric bounds of a range predicate. Nil bounds are
// unconstrained.
type RangeBounds struct {
	Gt  *float64
	Gte *float64
	Lt  *float64
	Lte *float64
}

// Predicate is an atomic field-level condition. Predicates with the same
// normalized identity are shared across rooms through the matcher's
// reference-counted arena.
type Predicate struct {
	Field  string
	Op     Operator
	Value  any         // term operand
	Values []any       // terms operand
	Bounds RangeBounds // range operand
}

// ID returns the normalized predicate identity: two predicates with the same
// field, operator and (canonicalized) operand always produce the same ID.
func (p *Predicate) ID() string {
	return p.Field + "\x00" + string(p.Op) + "\x00" + p.operandCanonical()
}

func (p *Predicate) operandCanonical() string {
	switch p.Op {
	case OpTerm:
		return canonicalValue(p.Value)
	case OpTerms:
		vals := make([]string, 0, len(p.Values))
		for _, v := range p.Values {
			vals = append(vals, canonicalValue(v))
		}
		sort.Strings(vals)
		// Dedup: membership is insensitive to repeated operands.
		vals = dedupSorted(vals)
		return "[" + strings.Join(vals, ",") + "]"
	case OpExists, OpMissing:
		return ""
	case OpRange:
		var sb strings.Builder
		writeBound := func(name string, v *float64) {
			if v != nil {
				sb.WriteString(name)
				sb.WriteByte(':')
				sb.WriteString(formatNumber(*v))
				sb.WriteByte(';')
			}
		}
		writeBound("gt", p.Bounds.Gt)
		writeBound("gte", p.Bounds.Gte)
		writeBound("lt", p.Bounds.Lt)
		writeBound("lte", p.Bounds.Lte)
		return sb.String()
	}
	return ""
}

// Match evaluates the predicate against a single field value. The present
// flag reports whether the document carries the field at all; a missing field
// never matches except for the missing operator.
func (p *Predicate) Match(value any, present bool) bool {
	switch p.Op {
	case OpTerm:
		return present && canonicalValue(value) == canonicalValue(p.Value)
	case OpTerms:
		if !present {
			return false
		}
		cv := canonicalValue(value)
		for _, v := range p.Values {
			if cv == canonicalValue(v) {
				return true
			}
		}
		return false
	case OpExists:
		return present
	case OpMissing:
		return !present
	case OpRange:
		if !present {
			return false
		}
		n, ok := toFloat(value)
		if !ok {
			// Type-mismatched comparisons are non-matching, not errors.
			return false
		}
		b := p.Bounds
		if b.Gt != nil && !(n > *b.Gt) {
			return false
		}
		if b.Gte != nil && !(n >= *b.Gte) {
			return false
		}
		if b.Lt != nil && !(n < *b.Lt) {
			return false
		}
		if b.Lte != nil && !(n <= *b.Lte) {
			return false
		}
		return true
	}
	return false
}

// Canonical renders the expression in its normalized textual form: and/or
// children are sorted and deduplicated, single-child combinators collapse to
// the child. Two semantically identical filters render identically.
func (n *Node) Canonical() string {
	switch n.Kind {
	case KindMatchAll:
		return "all"
	case KindLeaf:
		return string(n.Pred.Op) + "(" + n.Pred.Field + ":" + n.Pred.operandCanonical() + ")"
	case KindNot:
		return "not(" + n.Children[0].Canonical() + ")"
	case KindAnd, KindOr:
		parts := make([]string, 0, len(n.Children))
		for _, c := range n.Children {
			parts = append(parts, c.Canonical())
		}
		sort.Strings(parts)
		parts = dedupSorted(parts)
		if len(parts) == 1 {
			return parts[0]
		}
		name := "and"
		if n.Kind == KindOr {
			name = "or"
		}
		return name + "(" + strings.Join(parts, ",") + ")"
	}
	return ""
}

// Leaves appends every leaf predicate of the tree to dst and returns it.
func (n *Node) Leaves(dst []*Predicate) []*Predicate {
	switch n.Kind {
	case KindLeaf:
		dst = append(dst, n.Pred)
	case KindAnd, KindOr, KindNot:
		for _, c := range n.Children {
			dst = c.Leaves(dst)
		}
	}
	return dst
}

// RoomID computes the deterministic room identity for a filter on a
// collection. Identity is a pure function of (collection, normalized filter).
func RoomID(collection string, expr *Node) string {
	sum := sha256.Sum256([]byte(collection + "\n" + expr.Canonical()))
	return hex.EncodeToString(sum[:])[:32]
}

// canonicalValue renders a scalar operand or document value into a stable,
// type-tagged string so that equality comparisons are consistent regardless
// of the numeric type JSON decoding produced.
func canonicalValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		return "b:" + strconv.FormatBool(t)
	case string:
		return "s:" + strconv.Quote(t)
	default:
		if n, ok := toFloat(v); ok {
			return "n:" + formatNumber(n)
		}
		return "x:" + strconv.Quote(stringify(v))
	}
}

func stringify(v any) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return ""
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// toFloat widens any numeric value the JSON decoder or a caller may hand us.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case interface{ Float64() (float64, error) }: // json.Number
		n, err := t.Float64()
		return n, err == nil
	}
	return 0, false
}

func dedupSorted(s []string) []string {
	if len(s) < 2 {
		return s
	}
	out := s[:1]
	for _, v := range s[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
