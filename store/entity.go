package store

import (
	"context"
	"fmt"
	"time"
)

// Fields is the serialized form of a document.
type Fields map[string]any

// Reserved field names for the engine-managed Meta values.
const (
	FieldDocID     = "docId"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
	FieldUID       = "uid"
)

// Meta holds the engine-managed fields common to every entity.
// Embedding Meta provides Model.GetMeta.
type Meta struct {
	DocID     string
	CreatedAt time.Time
	UpdatedAt time.Time
	UID       string
}

// GetMeta returns m.
func (m *Meta) GetMeta() *Meta { return m }

// Model is the base interface for all storable types.
type Model interface {
	// Descriptor returns the static collection configuration for this type.
	Descriptor() *Descriptor

	// GetMeta returns the engine-managed fields of this instance.
	GetMeta() *Meta

	// Fields serializes the model-specific fields.
	Fields() (Fields, error)

	// Load deserializes model-specific fields into the instance.
	Load(Fields) error

	// Reset restores the model-specific fields to their defaults.
	Reset()
}

// ModelPtr constrains a pointer type *T implementing Model, so generic
// readers can construct fresh values.
type ModelPtr[T any] interface {
	*T
	Model
}

// BeforeCreater is implemented by models with a pre-create hook.
type BeforeCreater interface {
	BeforeCreate(ctx context.Context) error
}

// BeforeUpdater is implemented by models with a pre-update hook.
type BeforeUpdater interface {
	BeforeUpdate(ctx context.Context) error
}

// BeforeDeleter is implemented by models with a pre-delete hook.
type BeforeDeleter interface {
	BeforeDelete(ctx context.Context) error
}

// BeforeEditer is implemented by models with a hook run before both create and update.
type BeforeEditer interface {
	BeforeEdit(ctx context.Context) error
}

// Validator is implemented by models that can reject invalid state.
type Validator interface {
	Validate() error
}

// DocRef locates a document.
type DocRef struct {
	Path string
	ID   string
}

func (r DocRef) String() string { return r.Path + "/" + r.ID }

// encode serializes m and layers the Meta fields on top.
func encode(m Model) (Fields, error) {
	fields, err := m.Fields()
	if err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}
	if fields == nil {
		fields = Fields{}
	}
	meta := m.GetMeta()
	fields[FieldDocID] = meta.DocID
	fields[FieldCreatedAt] = meta.CreatedAt
	fields[FieldUpdatedAt] = meta.UpdatedAt
	fields[FieldUID] = meta.UID
	return fields, nil
}

// decode loads fields into m, splitting out the Meta fields.
func decode(m Model, id string, fields Fields) error {
	meta := m.GetMeta()
	meta.DocID = id
	if v, ok := fields[FieldDocID].(string); ok && v != "" {
		meta.DocID = v
	}
	meta.CreatedAt = toTime(fields[FieldCreatedAt])
	meta.UpdatedAt = toTime(fields[FieldUpdatedAt])
	meta.UID, _ = fields[FieldUID].(string)

	rest := make(Fields, len(fields))
	for k, v := range fields {
		switch k {
		case FieldDocID, FieldCreatedAt, FieldUpdatedAt, FieldUID:
			continue
		}
		rest[k] = v
	}
	m.Reset()
	if err := m.Load(rest); err != nil {
		return fmt.Errorf("deserialize: %w", err)
	}
	return nil
}

// reset clears both the Meta and the model-specific fields.
func reset(m Model) {
	*m.GetMeta() = Meta{}
	m.Reset()
}

// toTime accepts the time representations backends hand back.
func toTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case *time.Time:
		if t != nil {
			return *t
		}
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// toInt64 accepts the numeric representations backends hand back.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		return int64(n), float32(int64(n)) == n
	case float64:
		return int64(n), float64(int64(n)) == n
	}
	return 0, false
}
