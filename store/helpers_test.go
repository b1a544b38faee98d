package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jacentio/docket/memstore"
	"github.com/jacentio/docket/store"
)

// --- Test Entity Types ---

var customers = &store.Descriptor{
	Name:          "customers",
	LogicalDelete: true,
	UseAutonumber: true,
	HasMany: []store.Relation{
		{Type: store.RelationCollection, Collection: "invoices", Field: "customerId"},
		{Type: store.RelationCollectionGroup, Collection: "orders", Field: "customerId"},
	},
	SearchFields: []string{"name"},
}

// Customer uses autonumbering, logical delete, dependents and search.
type Customer struct {
	store.Meta
	Code string
	Name string
	Tier int

	calls     []string
	createErr error
	editErr   error
	deleteErr error
	invalid   bool
}

func (c *Customer) Descriptor() *store.Descriptor { return customers }

func (c *Customer) Fields() (store.Fields, error) {
	return store.Fields{"code": c.Code, "name": c.Name, "tier": c.Tier}, nil
}

func (c *Customer) Load(f store.Fields) error {
	c.Code, _ = f["code"].(string)
	c.Name, _ = f["name"].(string)
	if n, ok := f["tier"].(int); ok {
		c.Tier = n
	}
	return nil
}

func (c *Customer) Reset() {
	c.Code, c.Name, c.Tier = "", "", 0
}

func (c *Customer) BeforeCreate(ctx context.Context) error {
	c.calls = append(c.calls, "beforeCreate")
	return c.createErr
}

func (c *Customer) BeforeUpdate(ctx context.Context) error {
	c.calls = append(c.calls, "beforeUpdate")
	return nil
}

func (c *Customer) BeforeEdit(ctx context.Context) error {
	c.calls = append(c.calls, "beforeEdit")
	return c.editErr
}

func (c *Customer) BeforeDelete(ctx context.Context) error {
	c.calls = append(c.calls, "beforeDelete")
	return c.deleteErr
}

func (c *Customer) Validate() error {
	c.calls = append(c.calls, "validate")
	if c.invalid || c.Name == "" {
		return errInvalidCustomer
	}
	return nil
}

var errInvalidCustomer = errors.New("customer needs a name")

var notes = &store.Descriptor{Name: "notes"}

// Note is a plain entity: no autonumber, hard delete, no hooks.
type Note struct {
	store.Meta
	Body string
}

func (n *Note) Descriptor() *store.Descriptor { return notes }
func (n *Note) Fields() (store.Fields, error) { return store.Fields{"body": n.Body}, nil }
func (n *Note) Load(f store.Fields) error {
	n.Body, _ = f["body"].(string)
	return nil
}
func (n *Note) Reset() { n.Body = "" }

// --- Test Backend ---

// spyBackend counts calls into the wrapped backend.
type spyBackend struct {
	*memstore.Store
	gets    atomic.Int64
	queries atomic.Int64
	txs     atomic.Int64
}

func (b *spyBackend) Get(ctx context.Context, path, id string) (store.Fields, bool, error) {
	b.gets.Add(1)
	return b.Store.Get(ctx, path, id)
}

func (b *spyBackend) Query(ctx context.Context, q store.Query) ([]store.Snapshot, error) {
	b.queries.Add(1)
	return b.Store.Query(ctx, q)
}

func (b *spyBackend) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	b.txs.Add(1)
	return b.Store.RunTransaction(ctx, fn)
}

func (b *spyBackend) calls() int64 {
	return b.gets.Load() + b.queries.Load() + b.txs.Load()
}

// fakeClock advances one second per call.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	backend *spyBackend
	store   *store.Store
	clock   *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := &spyBackend{Store: memstore.New()}
	s := store.New(backend, store.DefaultConfig())
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s.SetClock(clock.Now)
	return &fixture{backend: backend, store: s, clock: clock}
}

// seedCounter writes the customers counter at prefix.
func (f *fixture) seedCounter(t *testing.T, prefix string, current int64, length int) {
	t.Helper()
	require.NoError(t, f.store.SetCounter(context.Background(), customers, prefix, store.Counter{
		Status:  true,
		Current: current,
		Length:  length,
		Field:   "code",
	}))
}
