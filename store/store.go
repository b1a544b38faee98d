package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jacentio/docket/internal/keys"
)

// Store orchestrates entity lifecycles over a Backend.
type Store struct {
	backend  Backend
	config   Config
	registry *Registry
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a new Store instance.
func New(backend Backend, config Config) *Store {
	config.validate()
	return &Store{
		backend: backend,
		config:  config,
		logger:  slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NewWithRegistry creates a new Store instance with a descriptor registry.
func NewWithRegistry(backend Backend, config Config, registry *Registry) *Store {
	s := New(backend, config)
	s.registry = registry
	return s
}

// SetRegistry sets the descriptor registry.
func (s *Store) SetRegistry(registry *Registry) {
	s.registry = registry
}

// Registry returns the descriptor registry, or nil if not set.
func (s *Store) Registry() *Registry {
	return s.registry
}

// SetLogger sets the logger. A nil logger restores slog.Default.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger
}

// SetClock overrides the clock used for createdAt and updatedAt.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Config returns the effective configuration.
func (s *Store) Config() Config {
	return s.config
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Callback runs inside the operation's transaction after its writes are staged.
type Callback func(ctx context.Context, tx Tx, ref DocRef) error

// CreateOptions configures Create.
type CreateOptions struct {
	// DocID is the id to create. If empty, the backend generates one.
	DocID string

	// DisableAutonumber skips code allocation for types that use it.
	DisableAutonumber bool

	// Tx runs the create in a caller-owned transaction.
	Tx Tx

	Callback Callback
	Prefix   string
}

// ReadOptions configures Fetch and FetchDoc.
type ReadOptions struct {
	// Tx reads inside a caller-owned transaction.
	Tx     Tx
	Prefix string
}

// WriteOptions configures Update and Delete.
type WriteOptions struct {
	Tx       Tx
	Callback Callback
	Prefix   string
}

// RestoreOptions configures Restore.
type RestoreOptions struct {
	Tx     Tx
	Prefix string
}

// Create persists a detached model and returns its reference.
func (s *Store) Create(ctx context.Context, m Model, opts CreateOptions) (DocRef, error) {
	d := m.Descriptor()
	ref, err := s.create(ctx, m, d, opts)
	if err != nil {
		return DocRef{}, s.fail(ctx, "create", d, opts.DocID, err)
	}
	s.logger.DebugContext(ctx, "created document", "collection", ref.Path, "docId", ref.ID)
	return ref, nil
}

func (s *Store) create(ctx context.Context, m Model, d *Descriptor, opts CreateOptions) (DocRef, error) {
	if opts.DocID != "" {
		if err := keys.ValidateDocID(opts.DocID); err != nil {
			return DocRef{}, invalidArg("%v", err)
		}
	}
	if err := runHooks(ctx, m, hookCreate); err != nil {
		return DocRef{}, err
	}
	path, err := d.CollectionPath(opts.Prefix)
	if err != nil {
		return DocRef{}, err
	}

	var (
		ref     DocRef
		written Fields
	)
	err = s.RunTransaction(ctx, opts.Tx, func(ctx context.Context, tx Tx) error {
		if opts.DocID != "" && d.LogicalDelete {
			if err := s.checkNotArchived(ctx, tx, path, opts.DocID); err != nil {
				return err
			}
		}

		var alloc *Allocation
		if d.UseAutonumber && !opts.DisableAutonumber {
			a, err := s.Allocate(ctx, tx, d, opts.Prefix)
			if err != nil {
				return err
			}
			alloc = a
		}

		id := opts.DocID
		if id == "" {
			id = s.backend.NewID()
		}
		ref = DocRef{Path: path, ID: id}

		now := s.now()
		fields, err := s.encodeWith(m, Meta{DocID: id, CreatedAt: now, UpdatedAt: now, UID: s.config.SystemActor})
		if err != nil {
			return err
		}
		if alloc != nil {
			fields[alloc.Field] = alloc.Code
		}
		s.stampTokens(d, fields)

		if err := tx.Set(path, id, fields); err != nil {
			return storeErr("set", err)
		}
		// The counter write goes last so a failed entity write never consumes a code.
		if alloc != nil {
			if err := alloc.Commit(); err != nil {
				return err
			}
		}
		if opts.Callback != nil {
			if err := opts.Callback(ctx, tx, ref); err != nil {
				return err
			}
		}
		written = fields
		return nil
	})
	if err != nil {
		return DocRef{}, err
	}

	if err := decode(m, ref.ID, written); err != nil {
		return DocRef{}, err
	}
	return ref, nil
}

// Fetch loads docID into m. If the document is absent, m is reset and
// Fetch returns false.
func (s *Store) Fetch(ctx context.Context, m Model, docID string, opts ReadOptions) (bool, error) {
	d := m.Descriptor()
	found, err := s.fetch(ctx, m, d, docID, opts)
	if err != nil {
		return false, s.fail(ctx, "fetch", d, docID, err)
	}
	return found, nil
}

func (s *Store) fetch(ctx context.Context, m Model, d *Descriptor, docID string, opts ReadOptions) (bool, error) {
	if err := keys.ValidateDocID(docID); err != nil {
		return false, invalidArg("%v", err)
	}
	path, err := d.CollectionPath(opts.Prefix)
	if err != nil {
		return false, err
	}

	var (
		fields Fields
		found  bool
	)
	if opts.Tx != nil {
		fields, found, err = opts.Tx.Get(ctx, path, docID)
	} else {
		fields, found, err = s.backend.Get(ctx, path, docID)
	}
	if err != nil {
		return false, storeErr("get", err)
	}
	if !found {
		reset(m)
		return false, nil
	}
	if err := decode(m, docID, fields); err != nil {
		return false, err
	}
	return true, nil
}

// FetchDoc reads docID into a new value. It returns nil if the document is absent.
func FetchDoc[T any, PT ModelPtr[T]](ctx context.Context, s *Store, docID string, opts ReadOptions) (*T, error) {
	v := PT(new(T))
	found, err := s.Fetch(ctx, v, docID, opts)
	if err != nil || !found {
		return nil, err
	}
	return (*T)(v), nil
}

// Update overwrites the persisted document of m. It fails with ErrNotFound
// if the document no longer exists, including after a logical delete.
func (s *Store) Update(ctx context.Context, m Model, opts WriteOptions) error {
	d := m.Descriptor()
	meta := m.GetMeta()
	if err := s.update(ctx, m, d, opts); err != nil {
		return s.fail(ctx, "update", d, meta.DocID, err)
	}
	s.logger.DebugContext(ctx, "updated document", "collection", d.Name, "docId", meta.DocID)
	return nil
}

func (s *Store) update(ctx context.Context, m Model, d *Descriptor, opts WriteOptions) error {
	meta := m.GetMeta()
	if meta.DocID == "" {
		return preconditionErr("update")
	}
	if err := runHooks(ctx, m, hookUpdate); err != nil {
		return err
	}
	path, err := d.CollectionPath(opts.Prefix)
	if err != nil {
		return err
	}

	stamped := *meta
	stamped.UpdatedAt = s.now()
	stamped.UID = s.config.SystemActor

	err = s.RunTransaction(ctx, opts.Tx, func(ctx context.Context, tx Tx) error {
		// A document archived or deleted since the caller's fetch stays gone.
		_, found, err := tx.Get(ctx, path, stamped.DocID)
		if err != nil {
			return storeErr("get", err)
		}
		if !found {
			return notFoundErr("document", path, stamped.DocID)
		}
		fields, err := s.encodeWith(m, stamped)
		if err != nil {
			return err
		}
		s.stampTokens(d, fields)
		if err := tx.Set(path, stamped.DocID, fields); err != nil {
			return storeErr("set", err)
		}
		if opts.Callback != nil {
			return opts.Callback(ctx, tx, DocRef{Path: path, ID: stamped.DocID})
		}
		return nil
	})
	if err != nil {
		return err
	}
	*meta = stamped
	return nil
}

// Delete removes the persisted document of m, archiving it first when the
// type uses logical delete. It fails with a DependencyError if any relation
// in the descriptor's HasMany still references the document.
func (s *Store) Delete(ctx context.Context, m Model, opts WriteOptions) error {
	d := m.Descriptor()
	docID := m.GetMeta().DocID
	if err := s.delete(ctx, m, d, opts); err != nil {
		return s.fail(ctx, "delete", d, docID, err)
	}
	s.logger.DebugContext(ctx, "deleted document", "collection", d.Name, "docId", docID, "archived", d.LogicalDelete)
	return nil
}

func (s *Store) delete(ctx context.Context, m Model, d *Descriptor, opts WriteOptions) error {
	docID := m.GetMeta().DocID
	if docID == "" {
		return preconditionErr("delete")
	}
	if h, ok := m.(BeforeDeleter); ok {
		if err := h.BeforeDelete(ctx); err != nil {
			return err
		}
	}
	path, err := d.CollectionPath(opts.Prefix)
	if err != nil {
		return err
	}

	// Outside the transaction: a dependent created between this check and
	// the commit below is not detected.
	rel, err := s.hasChild(ctx, d, docID)
	if err != nil {
		return err
	}
	if rel != nil {
		return &DependencyError{Collection: rel.Collection}
	}

	err = s.RunTransaction(ctx, opts.Tx, func(ctx context.Context, tx Tx) error {
		if d.LogicalDelete {
			snapshot, found, err := tx.Get(ctx, path, docID)
			if err != nil {
				return storeErr("get", err)
			}
			if !found {
				return notFoundErr("document", path, docID)
			}
			if err := s.moveToArchive(tx, path, docID, snapshot); err != nil {
				return err
			}
		} else if err := tx.Delete(path, docID); err != nil {
			return storeErr("delete", err)
		}
		if opts.Callback != nil {
			return opts.Callback(ctx, tx, DocRef{Path: path, ID: docID})
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !d.LogicalDelete {
		reset(m)
	}
	return nil
}

// Restore moves an archived document back to its primary collection.
func (s *Store) Restore(ctx context.Context, d *Descriptor, docID string, opts RestoreOptions) (DocRef, error) {
	ref, err := s.restore(ctx, d, docID, opts)
	if err != nil {
		return DocRef{}, s.fail(ctx, "restore", d, docID, err)
	}
	s.logger.DebugContext(ctx, "restored document", "collection", ref.Path, "docId", ref.ID)
	return ref, nil
}

func (s *Store) restore(ctx context.Context, d *Descriptor, docID string, opts RestoreOptions) (DocRef, error) {
	if err := keys.ValidateDocID(docID); err != nil {
		return DocRef{}, invalidArg("%v", err)
	}
	path, err := d.CollectionPath(opts.Prefix)
	if err != nil {
		return DocRef{}, err
	}
	err = s.RunTransaction(ctx, opts.Tx, func(ctx context.Context, tx Tx) error {
		return s.restoreFromArchive(ctx, tx, path, docID)
	})
	if err != nil {
		return DocRef{}, err
	}
	return DocRef{Path: path, ID: docID}, nil
}

// HasChild returns the first relation in the descriptor's HasMany with a
// document referencing m, or nil if there is none.
func (s *Store) HasChild(ctx context.Context, m Model) (*Relation, error) {
	d := m.Descriptor()
	docID := m.GetMeta().DocID
	if docID == "" {
		return nil, s.fail(ctx, "hasChild", d, docID, preconditionErr("hasChild"))
	}
	rel, err := s.hasChild(ctx, d, docID)
	if err != nil {
		return nil, s.fail(ctx, "hasChild", d, docID, err)
	}
	return rel, nil
}

// Subscribe is not supported for one-shot transactional contexts.
func (s *Store) Subscribe(ctx context.Context, ref DocRef, fn func(Snapshot)) (func(), error) {
	return nil, s.fail(ctx, "subscribe", nil, ref.ID, ErrUnsupported)
}

// SubscribeDocs is not supported for one-shot transactional contexts.
func (s *Store) SubscribeDocs(ctx context.Context, q Query, fn func([]Snapshot)) (func(), error) {
	return nil, s.fail(ctx, "subscribeDocs", nil, "", ErrUnsupported)
}

// Unsubscribe is not supported for one-shot transactional contexts.
func (s *Store) Unsubscribe(ctx context.Context) error {
	return s.fail(ctx, "unsubscribe", nil, "", ErrUnsupported)
}

// encodeWith serializes m with meta in place of its current Meta.
func (s *Store) encodeWith(m Model, meta Meta) (Fields, error) {
	current := m.GetMeta()
	saved := *current
	*current = meta
	fields, err := encode(m)
	*current = saved
	return fields, err
}

// fail records err once with its operation context and returns it.
func (s *Store) fail(ctx context.Context, op string, d *Descriptor, docID string, err error) error {
	collection := ""
	if d != nil {
		collection = d.Name
	}
	s.logger.ErrorContext(ctx, "operation failed",
		"op", op,
		"collection", collection,
		"docId", docID,
		"error", err,
	)
	return err
}

type hookPoint int

const (
	hookCreate hookPoint = iota
	hookUpdate
)

// runHooks runs the pre-write hooks in order: the create or update hook,
// then BeforeEdit, then Validate.
func runHooks(ctx context.Context, m Model, point hookPoint) error {
	switch point {
	case hookCreate:
		if h, ok := m.(BeforeCreater); ok {
			if err := h.BeforeCreate(ctx); err != nil {
				return err
			}
		}
	case hookUpdate:
		if h, ok := m.(BeforeUpdater); ok {
			if err := h.BeforeUpdate(ctx); err != nil {
				return err
			}
		}
	}
	if h, ok := m.(BeforeEditer); ok {
		if err := h.BeforeEdit(ctx); err != nil {
			return err
		}
	}
	if v, ok := m.(Validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
