package store

import (
	"fmt"
	"strings"
	"time"
)

// Op is a comparison operator for a predicate.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpGt
	OpLt
	OpGe
	OpLe
	OpIsNull
	OpNotNull
)

// sqlOp returns the SQL fragment for the operator.
func (op Op) sqlOp() string {
	switch op {
	case OpEq:
		return "= ?"
	case OpNe:
		return "!= ?"
	case OpGt:
		return "> ?"
	case OpLt:
		return "< ?"
	case OpGe:
		return ">= ?"
	case OpLe:
		return "<= ?"
	case OpIsNull:
		return "IS NULL"
	case OpNotNull:
		return "IS NOT NULL"
	default:
		return "= ?"
	}
}

// takesValue reports whether the operator binds a comparison value.
func (op Op) takesValue() bool {
	return op != OpIsNull && op != OpNotNull
}

// Predicate is a single typed filter condition on an entity field.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

// Eq builds an equality predicate.
func Eq(field string, value any) Predicate { return Predicate{Field: field, Op: OpEq, Value: value} }

// Ne builds an inequality predicate.
func Ne(field string, value any) Predicate { return Predicate{Field: field, Op: OpNe, Value: value} }

// Gt builds a greater-than predicate.
func Gt(field string, value any) Predicate { return Predicate{Field: field, Op: OpGt, Value: value} }

// Lt builds a less-than predicate.
func Lt(field string, value any) Predicate { return Predicate{Field: field, Op: OpLt, Value: value} }

// Ge builds a greater-or-equal predicate.
func Ge(field string, value any) Predicate { return Predicate{Field: field, Op: OpGe, Value: value} }

// Le builds a less-or-equal predicate.
func Le(field string, value any) Predicate { return Predicate{Field: field, Op: OpLe, Value: value} }

// IsNull builds a null-check predicate.
func IsNull(field string) Predicate { return Predicate{Field: field, Op: OpIsNull} }

// NotNull builds a non-null-check predicate.
func NotNull(field string) Predicate { return Predicate{Field: field, Op: OpNotNull} }

// whereClause renders predicates as a WHERE fragment plus bind arguments.
// Every referenced field must exist in the column set.
func whereClause(columns map[string]struct{}, preds []Predicate) (string, []any, error) {
	if len(preds) == 0 {
		return "", nil, nil
	}

	clauses := make([]string, 0, len(preds))
	args := make([]any, 0, len(preds))
	for _, p := range preds {
		if _, ok := columns[p.Field]; !ok {
			return "", nil, fmt.Errorf("%w: %s", ErrUnknownField, p.Field)
		}
		clauses = append(clauses, p.Field+" "+p.Op.sqlOp())
		if p.Op.takesValue() {
			args = append(args, bindValue(p.Value))
		}
	}

	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// bindValue normalises Go values for SQLite binding.
// Timestamps are stored as RFC3339 UTC text.
func bindValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return v
}
