package kadedb

// DocPredicate is the Document-flavored analog of Predicate. Unlike
// Predicate's relational evaluator, a DocPredicate referencing an unknown
// field is a validation error, not a silent false — the document engine
// validates a query predicate against the collection's DocumentSchema
// before evaluating it (§4.4: "unknown-column-is-false for relational,
// validated-upfront for document").
type DocPredicate struct {
	kind     predicateKind
	field    string
	op       Op
	operand  Value
	children []DocPredicate
}

// DocComparison builds a leaf predicate: field <op> operand.
func DocComparison(field string, op Op, operand Value) DocPredicate {
	return DocPredicate{kind: predComparison, field: field, op: op, operand: operand}
}

// DocAnd builds a conjunction of children. DocAnd() with no children is true.
func DocAnd(children ...DocPredicate) DocPredicate {
	return DocPredicate{kind: predAnd, children: append([]DocPredicate(nil), children...)}
}

// DocOr builds a disjunction of children. DocOr() with no children is false.
func DocOr(children ...DocPredicate) DocPredicate {
	return DocPredicate{kind: predOr, children: append([]DocPredicate(nil), children...)}
}

// DocNot negates a single child predicate.
func DocNot(child DocPredicate) DocPredicate {
	return DocPredicate{kind: predNot, children: []DocPredicate{child}}
}

// Validate walks p and reports InvalidArgument on the first field name not
// present in schema. Callers must validate before Evaluate.
func (p DocPredicate) Validate(schema *DocumentSchema) *Status {
	switch p.kind {
	case predComparison:
		if _, ok := schema.GetField(p.field); !ok {
			return InvalidArgument("docpredicate: unknown field %q", p.field)
		}
		return nil
	case predAnd, predOr:
		for _, c := range p.children {
			if st := c.Validate(schema); st != nil {
				return st
			}
		}
		return nil
	case predNot:
		if len(p.children) != 1 {
			return InvalidArgument("docpredicate: not() requires exactly one child")
		}
		return p.children[0].Validate(schema)
	default:
		return InvalidArgument("docpredicate: unknown predicate kind")
	}
}

// Evaluate reports whether doc satisfies p. Callers must have already
// called Validate; Evaluate itself treats an unknown field or a Null field
// value as false, mirroring Predicate's relational semantics once
// field-name validity is established.
func (p DocPredicate) Evaluate(doc Document) bool {
	switch p.kind {
	case predComparison:
		return evaluateDocComparison(doc, p.field, p.op, p.operand)
	case predAnd:
		for _, c := range p.children {
			if !c.Evaluate(doc) {
				return false
			}
		}
		return true
	case predOr:
		for _, c := range p.children {
			if c.Evaluate(doc) {
				return true
			}
		}
		return false
	case predNot:
		if len(p.children) != 1 {
			return false
		}
		return !p.children[0].Evaluate(doc)
	default:
		return false
	}
}

func evaluateDocComparison(doc Document, field string, op Op, operand Value) bool {
	actual, st := doc.Get(field)
	if st != nil || actual.IsNull() {
		return false
	}
	if actual.Type() != operand.Type() {
		return false
	}
	switch op {
	case OpEq:
		return Equals(actual, operand)
	case OpNe:
		return !Equals(actual, operand)
	}
	cmp, st := Compare(actual, operand)
	if st != nil {
		return false
	}
	switch op {
	case OpLt:
		return cmp < 0
	case OpLe:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGe:
		return cmp >= 0
	default:
		return false
	}
}
