package memstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jacentio/docket/memstore"
	"github.com/jacentio/docket/store"
)

func TestGet_Missing(t *testing.T) {
	s := memstore.New()
	_, found, err := s.Get(context.Background(), "customers", "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected missing document")
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	s := memstore.New()
	s.Put("customers", "c1", store.Fields{"name": "Ada", "tags": []any{"a"}})

	got, _, _ := s.Get(context.Background(), "customers", "c1")
	got["name"] = "changed"
	got["tags"].([]any)[0] = "changed"

	again, _, _ := s.Get(context.Background(), "customers", "c1")
	if again["name"] != "Ada" {
		t.Errorf("expected stored name to be unchanged, got %v", again["name"])
	}
	if again["tags"].([]any)[0] != "a" {
		t.Errorf("expected stored tags to be unchanged, got %v", again["tags"])
	}
}

func TestRunTransaction_Commit(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Set("customers", "c1", store.Fields{"name": "Ada"}); err != nil {
			return err
		}
		return tx.Set("customers", "c2", store.Fields{"name": "Grace"})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Count("customers") != 2 {
		t.Errorf("expected 2 documents, got %d", s.Count("customers"))
	}
}

func TestRunTransaction_AbortDiscardsWrites(t *testing.T) {
	s := memstore.New()
	boom := errors.New("boom")

	err := s.RunTransaction(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_ = tx.Set("customers", "c1", store.Fields{"name": "Ada"})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if s.Count("customers") != 0 {
		t.Errorf("expected no documents after abort, got %d", s.Count("customers"))
	}
}

func TestRunTransaction_Conflict(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	s.Put("counters", "c", store.Fields{"n": 1})

	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, _, err := tx.Get(ctx, "counters", "c"); err != nil {
			return err
		}
		// A concurrent writer commits between the read and this commit.
		s.Put("counters", "c", store.Fields{"n": 2})
		return tx.Update("counters", "c", store.Fields{"n": 3})
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	got, _, _ := s.Get(ctx, "counters", "c")
	if got["n"] != 2 {
		t.Errorf("expected concurrent value 2 to survive, got %v", got["n"])
	}
}

func TestRunTransaction_ConflictOnCreatedDocument(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, found, _ := tx.Get(ctx, "customers", "c1"); found {
			t.Fatal("expected missing document")
		}
		s.Put("customers", "c1", store.Fields{"name": "other"})
		return tx.Set("customers", "c1", store.Fields{"name": "mine"})
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRunTransaction_ReadAfterWrite(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		_ = tx.Set("customers", "c1", store.Fields{})
		_, _, err := tx.Get(ctx, "customers", "c1")
		return err
	})
	if !errors.Is(err, store.ErrReadAfterWrite) {
		t.Fatalf("expected ErrReadAfterWrite, got %v", err)
	}
}

func TestRunTransaction_UpdateMissing(t *testing.T) {
	s := memstore.New()
	err := s.RunTransaction(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.Update("customers", "nope", store.Fields{"name": "x"})
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunTransaction_UpdateMerges(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	s.Put("customers", "c1", store.Fields{"name": "Ada", "city": "London"})

	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Update("customers", "c1", store.Fields{"city": "Paris"})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _, _ := s.Get(ctx, "customers", "c1")
	if got["name"] != "Ada" || got["city"] != "Paris" {
		t.Errorf("unexpected merged document %v", got)
	}
}

func TestQuery_FilterOrderLimit(t *testing.T) {
	s := memstore.New()
	s.Put("orders", "o1", store.Fields{"customer": "c1", "total": 30})
	s.Put("orders", "o2", store.Fields{"customer": "c1", "total": 10})
	s.Put("orders", "o3", store.Fields{"customer": "c2", "total": 20})
	s.Put("orders", "o4", store.Fields{"customer": "c1", "total": 20.0})

	snaps, err := s.Query(context.Background(), store.Query{
		Collection: "orders",
		Where:      []store.Predicate{{Field: "customer", Op: store.OpEqual, Value: "c1"}},
		OrderBy:    []store.Order{{Field: "total", Direction: store.Desc}},
		Limit:      2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 results, got %d", len(snaps))
	}
	if snaps[0].ID != "o1" || snaps[1].ID != "o4" {
		t.Errorf("unexpected order %s, %s", snaps[0].ID, snaps[1].ID)
	}
}

func TestQuery_CollectionGroup(t *testing.T) {
	s := memstore.New()
	s.Put("orgs/a/members", "m1", store.Fields{"user": "u1"})
	s.Put("orgs/b/members", "m2", store.Fields{"user": "u1"})
	s.Put("orgs/b/guests", "g1", store.Fields{"user": "u1"})

	snaps, err := s.Query(context.Background(), store.Query{
		Collection: "members",
		Group:      true,
		Where:      []store.Predicate{{Field: "user", Op: store.OpEqual, Value: "u1"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 group results, got %d", len(snaps))
	}
	if snaps[0].Path != "orgs/a/members" || snaps[1].Path != "orgs/b/members" {
		t.Errorf("unexpected paths %s, %s", snaps[0].Path, snaps[1].Path)
	}
}

func TestQuery_NestedTokenMap(t *testing.T) {
	s := memstore.New()
	s.Put("items", "i1", store.Fields{"tokenMap": map[string]bool{"a": true, "b": true, "ab": true}})
	s.Put("items", "i2", store.Fields{"tokenMap": map[string]any{"a": true}})

	preds, err := store.CreateTokenMapQueries("ab")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snaps, err := s.Query(context.Background(), store.Query{Collection: "items", Where: preds})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snaps) != 1 || snaps[0].ID != "i1" {
		t.Errorf("expected only i1, got %v", snaps)
	}
}

func TestQuery_Operators(t *testing.T) {
	s := memstore.New()
	s.Put("items", "i1", store.Fields{"n": 1, "tags": []any{"x", "y"}})
	s.Put("items", "i2", store.Fields{"n": 2, "tags": []any{"y"}})
	s.Put("items", "i3", store.Fields{"n": 3})

	tests := []struct {
		name     string
		pred     store.Predicate
		expected int
	}{
		{"not equal", store.Predicate{Field: "n", Op: store.OpNotEqual, Value: 2}, 2},
		{"less", store.Predicate{Field: "n", Op: store.OpLess, Value: 2}, 1},
		{"less equal", store.Predicate{Field: "n", Op: store.OpLessEqual, Value: 2}, 2},
		{"greater", store.Predicate{Field: "n", Op: store.OpGreater, Value: 1}, 2},
		{"greater equal", store.Predicate{Field: "n", Op: store.OpGreaterEqual, Value: 3}, 1},
		{"in", store.Predicate{Field: "n", Op: store.OpIn, Value: []int{1, 3}}, 2},
		{"array contains", store.Predicate{Field: "tags", Op: store.OpArrayContains, Value: "y"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snaps, err := s.Query(context.Background(), store.Query{
				Collection: "items",
				Where:      []store.Predicate{tt.pred},
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(snaps) != tt.expected {
				t.Errorf("expected %d results, got %d", tt.expected, len(snaps))
			}
		})
	}
}
