package store

import (
	"context"
	"strings"
)

// Backend is the document store the engine runs against.
type Backend interface {
	// NewID returns a store-generated document id.
	NewID() string

	// Get reads one document outside any transaction.
	Get(ctx context.Context, path, id string) (Fields, bool, error)

	// Query runs q outside any transaction.
	Query(ctx context.Context, q Query) ([]Snapshot, error)

	// RunTransaction runs fn in a new atomic scope. An error from fn aborts
	// the scope with no writes applied. A concurrent commit touching a
	// document fn read fails the commit with ErrConflict.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is an atomic read-modify-write scope. All reads must precede the first
// staged write; staged writes are applied together on commit.
type Tx interface {
	// Get reads one document inside the transaction.
	Get(ctx context.Context, path, id string) (Fields, bool, error)

	// Set stages a full overwrite of the document.
	Set(path, id string, data Fields) error

	// Update stages a merge of the top-level fields into an existing document.
	Update(path, id string, data Fields) error

	// Delete stages removal of the document.
	Delete(path, id string) error
}

// Snapshot is a document returned by a query.
type Snapshot struct {
	Path   string
	ID     string
	Fields Fields
}

// Ref returns the document reference of the snapshot.
func (s Snapshot) Ref() DocRef { return DocRef{Path: s.Path, ID: s.ID} }

// Direction is a query sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Operators accepted in predicates.
const (
	OpEqual         = "=="
	OpNotEqual      = "!="
	OpLess          = "<"
	OpLessEqual     = "<="
	OpGreater       = ">"
	OpGreaterEqual  = ">="
	OpIn            = "in"
	OpArrayContains = "array-contains"
)

// Predicate filters documents on a dotted field path.
type Predicate struct {
	Field string
	Op    string
	Value any
}

// Order sorts query results on a dotted field path.
type Order struct {
	Field     string
	Direction Direction
}

// Query describes a read against a collection or collection group.
type Query struct {
	// Collection is a collection path, or a leaf collection name when Group is set.
	Collection string

	// Group scopes the query to every collection named Collection.
	Group bool

	Where   []Predicate
	OrderBy []Order

	// Limit is the maximum number of results (0 = no limit).
	Limit int
}

// Apply returns q with clauses applied in order.
func (q Query) Apply(clauses ...Clause) Query {
	for _, c := range clauses {
		c.applyTo(&q)
	}
	return q
}

// Lookup resolves a dotted field path against nested maps.
func Lookup(fields Fields, path string) (any, bool) {
	var cur any = map[string]any(fields)
	for _, part := range strings.Split(path, ".") {
		switch m := cur.(type) {
		case map[string]any:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		case Fields:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]bool:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}
