package store

import (
	"context"
	"fmt"
)

// hasChild queries each relation in order for a document whose Field equals
// docID and returns the first relation with a match.
//
// Backends only query outside transactions, so the check is not isolated
// from the delete that follows it.
func (s *Store) hasChild(ctx context.Context, d *Descriptor, docID string) (*Relation, error) {
	for i := range d.HasMany {
		rel := &d.HasMany[i]
		q, err := relationQuery(rel, docID)
		if err != nil {
			return nil, err
		}
		snaps, err := s.backend.Query(ctx, q)
		if err != nil {
			return nil, storeErr(fmt.Sprintf("query %s", rel.Collection), err)
		}
		if len(snaps) > 0 {
			return rel, nil
		}
	}
	return nil, nil
}

func relationQuery(rel *Relation, docID string) (Query, error) {
	q := Query{Collection: rel.Collection}
	switch rel.Type {
	case RelationCollection, "":
	case RelationCollectionGroup:
		q.Group = true
	default:
		return Query{}, invalidArg("relation %s has unknown type %q", rel.Collection, rel.Type)
	}
	if rel.Collection == "" || rel.Field == "" {
		return Query{}, invalidArg("relation needs a collection and a field")
	}

	clauses, err := CreateQueries(rel.Condition...)
	if err != nil {
		return Query{}, fmt.Errorf("relation %s condition: %w", rel.Collection, err)
	}
	q = q.Apply(Predicate{Field: rel.Field, Op: OpEqual, Value: docID}).Apply(clauses...)
	q.Limit = 1
	return q, nil
}
