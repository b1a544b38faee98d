// Package store provides transactional CRUD orchestration over a document store.
//
// Docket manages the lifecycle of entities in collections of a document
// store: create, fetch, update, delete and restore. Every mutation runs in
// an atomic transaction, created for the call unless the caller supplies one.
//
// # Key Features
//
//   - Sequential zero-padded codes allocated per collection (autonumber)
//   - Delete blocked while dependent documents reference the entity
//   - Logical delete into an archive collection, with restore
//   - Declarative query constraints and an N-gram token map search index
//
// # Models
//
// All entities implement [Model], usually by embedding [Meta]:
//
//	type Customer struct {
//	    store.Meta
//	    Name string
//	}
//
//	func (c *Customer) Descriptor() *store.Descriptor { return customers }
//	func (c *Customer) Fields() (store.Fields, error) { return store.Fields{"name": c.Name}, nil }
//	func (c *Customer) Load(f store.Fields) error      { c.Name, _ = f["name"].(string); return nil }
//	func (c *Customer) Reset()                         { c.Name = "" }
//
// Models may also implement [BeforeCreater], [BeforeUpdater], [BeforeDeleter],
// [BeforeEditer] and [Validator]. These run before any store access and a
// failure aborts the operation.
//
// # Autonumbers
//
// A type with [Descriptor].UseAutonumber reads its counter from the
// Autonumbers collection, keyed by the resolved collection path:
//
//	{status: true, current: 41, length: 4, field: "code"}
//
// The next create stamps code "0042". The counter write is the last write of
// the transaction, so a failed create never consumes a code. Concurrent
// creates conflict on the counter and all but one fail with [ErrConflict];
// the caller decides whether to retry.
//
// # Referential Integrity
//
// [Descriptor].HasMany lists dependent collections. Delete fails with a
// [DependencyError] while any of them holds a document whose field equals the
// entity's doc id. The check runs as a query outside the transaction, so a
// dependent created concurrently with the delete is not detected.
//
// # Backends
//
// The engine runs against any [Backend]. Package memstore holds documents in
// memory with optimistic version checks on commit. Package dynamo stores them
// in a single DynamoDB table and commits each transaction with one
// TransactWriteItems call. Package stream keeps the token map of searchable
// collections current from a DynamoDB stream.
//
// # Errors
//
//   - [ErrInvalidArgument] - malformed doc id, prefix or query constraint
//   - [ErrPreconditionFailed] - update or delete without a doc id
//   - [ErrNotFound] - missing counter, archive record or vanished document
//   - [ErrDisabled] - autonumber counter status is false
//   - [ErrOverflow] - autonumber counter exhausted its width
//   - [ErrDependencyExists] - delete blocked by a dependent document
//   - [ErrUnsupported] - change subscriptions
//   - [ErrStoreFailure] - any backend failure, see [StoreError]
package store
