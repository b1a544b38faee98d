package store

import (
	"fmt"
)

// Constraint types accepted by CreateQueries.
const (
	ConstraintWhere   = "where"
	ConstraintOrderBy = "orderBy"
	ConstraintLimit   = "limit"
)

// Constraint is a declarative query constraint: a type tag and its arguments.
//
//	where:   field, operator, value
//	orderBy: field[, "asc"|"desc"]
//	limit:   n
type Constraint struct {
	Type string
	Args []any
}

// Where returns a where constraint.
func Where(field, op string, value any) Constraint {
	return Constraint{Type: ConstraintWhere, Args: []any{field, op, value}}
}

// OrderBy returns an orderBy constraint. Direction defaults to ascending.
func OrderBy(field string, direction ...Direction) Constraint {
	args := []any{field}
	if len(direction) > 0 {
		args = append(args, string(direction[0]))
	}
	return Constraint{Type: ConstraintOrderBy, Args: args}
}

// LimitTo returns a limit constraint.
func LimitTo(n int) Constraint {
	return Constraint{Type: ConstraintLimit, Args: []any{n}}
}

// Clause is a store-native query clause produced by CreateQueries.
type Clause interface {
	applyTo(q *Query)
}

func (p Predicate) applyTo(q *Query) { q.Where = append(q.Where, p) }

func (o Order) applyTo(q *Query) { q.OrderBy = append(q.OrderBy, o) }

// MaxResults is a limit clause.
type MaxResults int

func (m MaxResults) applyTo(q *Query) { q.Limit = int(m) }

// CreateQueries translates constraints into store clauses, in order.
func CreateQueries(constraints ...Constraint) ([]Clause, error) {
	clauses := make([]Clause, 0, len(constraints))
	for i, c := range constraints {
		clause, err := c.clause()
		if err != nil {
			return nil, fmt.Errorf("constraint %d: %w", i, err)
		}
		clauses = append(clauses, clause)
	}
	return clauses, nil
}

func (c Constraint) clause() (Clause, error) {
	switch c.Type {
	case ConstraintWhere:
		if len(c.Args) != 3 {
			return nil, invalidArg("where takes field, operator and value, got %d args", len(c.Args))
		}
		field, ok := c.Args[0].(string)
		if !ok || field == "" {
			return nil, invalidArg("where field must be a non-empty string")
		}
		op, ok := c.Args[1].(string)
		if !ok || !validOp(op) {
			return nil, invalidArg("where operator %v is not supported", c.Args[1])
		}
		return Predicate{Field: field, Op: op, Value: c.Args[2]}, nil

	case ConstraintOrderBy:
		if len(c.Args) < 1 || len(c.Args) > 2 {
			return nil, invalidArg("orderBy takes field and optional direction, got %d args", len(c.Args))
		}
		field, ok := c.Args[0].(string)
		if !ok || field == "" {
			return nil, invalidArg("orderBy field must be a non-empty string")
		}
		dir := Asc
		if len(c.Args) == 2 {
			switch d := c.Args[1].(type) {
			case string:
				dir = Direction(d)
			case Direction:
				dir = d
			default:
				return nil, invalidArg("orderBy direction must be a string")
			}
			if dir != Asc && dir != Desc {
				return nil, invalidArg("orderBy direction %q must be asc or desc", dir)
			}
		}
		return Order{Field: field, Direction: dir}, nil

	case ConstraintLimit:
		if len(c.Args) != 1 {
			return nil, invalidArg("limit takes one argument, got %d", len(c.Args))
		}
		n, ok := toInt64(c.Args[0])
		if !ok || n <= 0 {
			return nil, invalidArg("limit %v must be a positive integer", c.Args[0])
		}
		return MaxResults(n), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidQueryType, c.Type)
}

func validOp(op string) bool {
	switch op {
	case OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual, OpIn, OpArrayContains:
		return true
	}
	return false
}
