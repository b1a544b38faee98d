package store

import (
	"context"
	"fmt"
)

// FetchMany reads the documents of T's collection matching constraints.
func FetchMany[T any, PT ModelPtr[T]](ctx context.Context, s *Store, prefix string, constraints ...Constraint) ([]*T, error) {
	d := PT(new(T)).Descriptor()
	clauses, err := CreateQueries(constraints...)
	if err != nil {
		return nil, s.fail(ctx, "fetchMany", d, "", err)
	}
	out, err := queryModels[T, PT](ctx, s, d, prefix, clauses)
	if err != nil {
		return nil, s.fail(ctx, "fetchMany", d, "", err)
	}
	return out, nil
}

// Search reads the documents of T's collection whose token map holds every
// N-gram of text, narrowed by constraints. Text with no indexed characters
// matches nothing.
func Search[T any, PT ModelPtr[T]](ctx context.Context, s *Store, prefix, text string, constraints ...Constraint) ([]*T, error) {
	d := PT(new(T)).Descriptor()
	preds, err := s.CreateTokenMapQueries(text)
	if err != nil {
		return nil, s.fail(ctx, "search", d, "", err)
	}
	rest, err := CreateQueries(constraints...)
	if err != nil {
		return nil, s.fail(ctx, "search", d, "", err)
	}
	if len(preds) == 0 {
		return nil, nil
	}
	clauses := make([]Clause, 0, len(preds)+len(rest))
	for _, p := range preds {
		clauses = append(clauses, p)
	}
	clauses = append(clauses, rest...)

	out, err := queryModels[T, PT](ctx, s, d, prefix, clauses)
	if err != nil {
		return nil, s.fail(ctx, "search", d, "", err)
	}
	return out, nil
}

func queryModels[T any, PT ModelPtr[T]](ctx context.Context, s *Store, d *Descriptor, prefix string, clauses []Clause) ([]*T, error) {
	path, err := d.CollectionPath(prefix)
	if err != nil {
		return nil, err
	}
	snaps, err := s.backend.Query(ctx, Query{Collection: path}.Apply(clauses...))
	if err != nil {
		return nil, storeErr("query", err)
	}
	out := make([]*T, 0, len(snaps))
	for _, snap := range snaps {
		v := PT(new(T))
		if err := decode(v, snap.ID, snap.Fields); err != nil {
			return nil, fmt.Errorf("%s/%s: %w", snap.Path, snap.ID, err)
		}
		out = append(out, (*T)(v))
	}
	return out, nil
}

// Reindex recomputes the token map of one document from the descriptor's
// search fields and writes it if it changed. It reports whether a write
// was made. Documents of types without search fields are left alone.
func (s *Store) Reindex(ctx context.Context, d *Descriptor, path, docID string) (bool, error) {
	if len(d.SearchFields) == 0 {
		return false, nil
	}
	changed := false
	err := s.RunTransaction(ctx, nil, func(ctx context.Context, tx Tx) error {
		changed = false
		fields, found, err := tx.Get(ctx, path, docID)
		if err != nil {
			return storeErr("get", err)
		}
		if !found {
			return notFoundErr("document", path, docID)
		}
		want := s.tokenIndex(d, fields)
		if tokenMapEqual(fields[s.config.TokenMapField], want) {
			return nil
		}
		changed = true
		return storeErr("update", tx.Update(path, docID, Fields{s.config.TokenMapField: want}))
	})
	if err != nil {
		return false, s.fail(ctx, "reindex", d, docID, err)
	}
	if changed {
		s.logger.DebugContext(ctx, "reindexed document", "collection", path, "docId", docID)
	}
	return changed, nil
}

// stampTokens writes the token map for the descriptor's search fields.
func (s *Store) stampTokens(d *Descriptor, fields Fields) {
	if len(d.SearchFields) == 0 {
		return
	}
	fields[s.config.TokenMapField] = s.tokenIndex(d, fields)
}

// tokenIndex unions the tokens of each search field. Fields are tokenized
// separately so no token spans two fields.
func (s *Store) tokenIndex(d *Descriptor, fields Fields) map[string]bool {
	index := make(map[string]bool)
	for _, name := range d.SearchFields {
		text, ok := fields[name].(string)
		if !ok {
			continue
		}
		for tok := range TokenMap(text) {
			index[tok] = true
		}
	}
	return index
}

func tokenMapEqual(have any, want map[string]bool) bool {
	switch m := have.(type) {
	case map[string]bool:
		if len(m) != len(want) {
			return false
		}
		for k, v := range m {
			if !v || !want[k] {
				return false
			}
		}
		return true
	case map[string]any:
		if len(m) != len(want) {
			return false
		}
		for k, v := range m {
			if b, ok := v.(bool); !ok || !b || !want[k] {
				return false
			}
		}
		return true
	case nil:
		return len(want) == 0
	}
	return false
}
