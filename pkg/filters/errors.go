package filters

import "errors"

var (
	// ErrUnsupportedOperator is returned when a filter references an operator
	// the matcher does not implement.
	ErrUnsupportedOperator = errors.New("filters: unsupported operator")

	// ErrMalformedFilter is returned when a filter expression is structurally
	// invalid (wrong operand shape, multiple keys in a leaf, and so on).
	ErrMalformedFilter = errors.New("filters: malformed filter expression")

	// ErrEmptyOperand is returned when an operator that requires a non-empty
	// operand (terms, and, or, range) is given an empty one.
	ErrEmptyOperand = errors.New("filters: operator requires a non-empty operand")

	// ErrNilExpression is returned when a nil expression is registered.
	ErrNilExpression = errors.New("filters: nil expression")

	// ErrRoomNotFound is returned when unregistering a room id the matcher
	// does not know about.
	ErrRoomNotFound = errors.New("filters: room not found")
)
