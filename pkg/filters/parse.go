package filters

import "fmt"

// Parse compiles a raw filter body into an expression tree. The empty map is
// the match-all filter. Parse never mutates the input and the returned tree
// shares no structure with it.
func Parse(raw map[string]any) (*Node, error) {
	if len(raw) == 0 {
		return &Node{Kind: KindMatchAll}, nil
	}
	if len(raw) > 1 {
		return nil, fmt.Errorf("%w: expected a single operator, got %d keys", ErrMalformedFilter, len(raw))
	}

	var op string
	var operand any
	for k, v := range raw {
		op, operand = k, v
	}

	switch op {
	case "and", "or":
		return parseCombinator(op, operand)
	case "not":
		child, ok := operand.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: not requires an object operand", ErrMalformedFilter)
		}
		sub, err := Parse(child)
		if err != nil {
			return nil, err
		}
		if sub.Kind == KindMatchAll {
			return nil, fmt.Errorf("%w: not requires a non-empty operand", ErrEmptyOperand)
		}
		return &Node{Kind: KindNot, Children: []*Node{sub}}, nil
	case "term":
		return parseTerm(operand)
	case "terms":
		return parseTerms(operand)
	case "exists", "missing":
		return parseFieldRef(Operator(op), operand)
	case "range":
		return parseRange(operand)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedOperator, op)
}

func parseCombinator(op string, operand any) (*Node, error) {
	list, ok := operand.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s requires an array operand", ErrMalformedFilter, op)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %s requires at least one clause", ErrEmptyOperand, op)
	}
	kind := KindAnd
	if op == "or" {
		kind = KindOr
	}
	children := make([]*Node, 0, len(list))
	for _, item := range list {
		sub, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s clauses must be objects", ErrMalformedFilter, op)
		}
		child, err := Parse(sub)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return &Node{Kind: kind, Children: children}, nil
}

func parseTerm(operand any) (*Node, error) {
	field, value, err := singleField("term", operand)
	if err != nil {
		return nil, err
	}
	switch value.(type) {
	case map[string]any, []any:
		return nil, fmt.Errorf("%w: term value for %q must be a scalar", ErrMalformedFilter, field)
	}
	return leaf(&Predicate{Field: field, Op: OpTerm, Value: value}), nil
}

func parseTerms(operand any) (*Node, error) {
	field, value, err := singleField("terms", operand)
	if err != nil {
		return nil, err
	}
	list, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: terms value for %q must be an array", ErrMalformedFilter, field)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: terms value for %q is empty", ErrEmptyOperand, field)
	}
	values := make([]any, 0, len(list))
	for _, v := range list {
		switch v.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("%w: terms values for %q must be scalars", ErrMalformedFilter, field)
		}
		values = append(values, v)
	}
	return leaf(&Predicate{Field: field, Op: OpTerms, Values: values}), nil
}

func parseFieldRef(op Operator, operand any) (*Node, error) {
	obj, ok := operand.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s requires an object operand", ErrMalformedFilter, op)
	}
	raw, ok := obj["field"]
	if !ok || len(obj) != 1 {
		return nil, fmt.Errorf("%w: %s requires a single %q key", ErrMalformedFilter, op, "field")
	}
	field, ok := raw.(string)
	if !ok || field == "" {
		return nil, fmt.Errorf("%w: %s field name must be a non-empty string", ErrMalformedFilter, op)
	}
	return leaf(&Predicate{Field: field, Op: op}), nil
}

func parseRange(operand any) (*Node, error) {
	field, value, err := singleField("range", operand)
	if err != nil {
		return nil, err
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: range value for %q must be an object", ErrMalformedFilter, field)
	}
	if len(obj) == 0 {
		return nil, fmt.Errorf("%w: range for %q has no bounds", ErrEmptyOperand, field)
	}
	var bounds RangeBounds
	for k, v := range obj {
		n, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("%w: range bound %q for %q must be numeric", ErrMalformedFilter, k, field)
		}
		switch k {
		case "gt":
			bounds.Gt = &n
		case "gte":
			bounds.Gte = &n
		case "lt":
			bounds.Lt = &n
		case "lte":
			bounds.Lte = &n
		default:
			return nil, fmt.Errorf("%w: unknown range bound %q for %q", ErrMalformedFilter, k, field)
		}
	}
	return leaf(&Predicate{Field: field, Op: OpRange, Bounds: bounds}), nil
}

func singleField(op string, operand any) (string, any, error) {
	obj, ok := operand.(map[string]any)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s requires an object operand", ErrMalformedFilter, op)
	}
	if len(obj) != 1 {
		return "", nil, fmt.Errorf("%w: %s requires exactly one field, got %d", ErrMalformedFilter, op, len(obj))
	}
	for field, value := range obj {
		if field == "" {
			return "", nil, fmt.Errorf("%w: %s field name is empty", ErrMalformedFilter, op)
		}
		return field, value, nil
	}
	return "", nil, nil // unreachable
}

func leaf(p *Predicate) *Node {
	return &Node{Kind: KindLeaf, Pred: p}
}
