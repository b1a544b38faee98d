package store

import (
	"github.com/jacentio/docket/internal/keys"
)

// RelationType selects how a dependent relation is queried.
type RelationType string

const (
	// RelationCollection queries one named collection.
	RelationCollection RelationType = "collection"

	// RelationCollectionGroup queries every collection with the given name
	// at any depth.
	RelationCollectionGroup RelationType = "collectionGroup"
)

// Relation declares a dependent collection checked before a delete.
type Relation struct {
	// Type is RelationCollection or RelationCollectionGroup.
	Type RelationType

	// Collection is the collection path (or leaf name for collection groups).
	Collection string

	// Field is the attribute in the dependent document that holds the parent's doc id.
	Field string

	// Condition holds extra constraints narrowing the dependent query.
	Condition []Constraint
}

// Descriptor is the static configuration of an entity type.
type Descriptor struct {
	// Name is the collection name.
	Name string

	// Path resolves the collection path for a prefix.
	// If nil, the prefix and Name are joined.
	Path func(prefix string) (string, error)

	// LogicalDelete moves deleted documents to the archive collection.
	LogicalDelete bool

	// UseAutonumber stamps an allocated code on create.
	UseAutonumber bool

	// HasMany lists dependent relations in check order.
	HasMany []Relation

	// SearchFields names string fields indexed into the token map on write.
	SearchFields []string
}

// CollectionPath resolves the collection path for prefix.
func (d *Descriptor) CollectionPath(prefix string) (string, error) {
	if d.Path != nil {
		path, err := d.Path(prefix)
		if err != nil {
			return "", invalidArg("resolve path for %s: %v", d.Name, err)
		}
		if path == "" {
			return "", invalidArg("empty collection path for %s", d.Name)
		}
		return path, nil
	}
	path, err := keys.CollectionPath(prefix, d.Name)
	if err != nil {
		return "", invalidArg("%v", err)
	}
	return path, nil
}

// Registry holds known descriptors by collection name.
type Registry struct {
	descriptors []*Descriptor
	byName      map[string]*Descriptor
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		descriptors: []*Descriptor{},
		byName:      make(map[string]*Descriptor),
	}
}

// Register adds a descriptor to the registry, replacing one with the same name.
func (r *Registry) Register(d *Descriptor) {
	if _, ok := r.byName[d.Name]; !ok {
		r.descriptors = append(r.descriptors, d)
	} else {
		for i, existing := range r.descriptors {
			if existing.Name == d.Name {
				r.descriptors[i] = d
			}
		}
	}
	r.byName[d.Name] = d
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// ForPath returns the descriptor for a resolved collection path, matching
// on the path's leaf collection name.
func (r *Registry) ForPath(path string) (*Descriptor, bool) {
	return r.Lookup(keys.GroupName(path))
}

// All returns all registered descriptors in registration order.
func (r *Registry) All() []*Descriptor {
	return r.descriptors
}
