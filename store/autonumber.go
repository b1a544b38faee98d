package store

import (
	"context"
	"fmt"
)

// Counter field names in the autonumber collection.
const (
	counterStatus  = "status"
	counterCurrent = "current"
	counterLength  = "length"
	counterField   = "field"
)

// maxCounterLength keeps 10^length within int64.
const maxCounterLength = 18

// Counter is the autonumber state of one collection path.
type Counter struct {
	// Status enables allocation.
	Status bool

	// Current is the last allocated number.
	Current int64

	// Length is the zero-padded width of allocated codes.
	Length int

	// Field is the entity field that receives the code.
	Field string
}

// Capacity returns the largest number the counter can allocate.
func (c Counter) Capacity() int64 {
	limit := int64(1)
	for i := 0; i < c.Length; i++ {
		limit *= 10
	}
	return limit - 1
}

func (c Counter) fields() Fields {
	return Fields{
		counterStatus:  c.Status,
		counterCurrent: c.Current,
		counterLength:  c.Length,
		counterField:   c.Field,
	}
}

func counterFromFields(f Fields) (Counter, error) {
	var c Counter
	c.Status, _ = f[counterStatus].(bool)
	current, ok := toInt64(f[counterCurrent])
	if !ok {
		return Counter{}, invalidArg("counter current %v is not an integer", f[counterCurrent])
	}
	length, ok := toInt64(f[counterLength])
	if !ok || length < 1 || length > maxCounterLength {
		return Counter{}, invalidArg("counter length %v must be an integer in [1, %d]", f[counterLength], maxCounterLength)
	}
	field, ok := f[counterField].(string)
	if !ok || field == "" {
		return Counter{}, invalidArg("counter field must be a non-empty string")
	}
	c.Current = current
	c.Length = int(length)
	c.Field = field
	return c, nil
}

// Allocation is a reserved autonumber code. The counter is advanced only
// when Commit is called, in the same transaction it was read in.
type Allocation struct {
	// Code is Number zero-padded to the counter length.
	Code string

	// Field is the entity field that receives Code.
	Field string

	Number int64

	commit func() error
}

// Commit stages the counter increment.
func (a *Allocation) Commit() error {
	return a.commit()
}

// Allocate reads the counter for the descriptor's collection path and
// reserves the next code. It fails with ErrNotFound when the counter is
// missing, ErrDisabled when its status is false and ErrOverflow when the next
// number does not fit in its length.
func (s *Store) Allocate(ctx context.Context, tx Tx, d *Descriptor, prefix string) (*Allocation, error) {
	path, err := d.CollectionPath(prefix)
	if err != nil {
		return nil, err
	}
	coll := s.config.AutonumberCollection

	raw, found, err := tx.Get(ctx, coll, path)
	if err != nil {
		return nil, storeErr("get counter", err)
	}
	if !found {
		return nil, notFoundErr("autonumber counter", coll, path)
	}
	counter, err := counterFromFields(raw)
	if err != nil {
		return nil, fmt.Errorf("autonumber counter %s: %w", path, err)
	}
	if !counter.Status {
		return nil, fmt.Errorf("%w: counter %s", ErrDisabled, path)
	}

	next := counter.Current + 1
	if next > counter.Capacity() {
		return nil, fmt.Errorf("%w: counter %s reached %d", ErrOverflow, path, counter.Capacity())
	}

	return &Allocation{
		Code:   fmt.Sprintf("%0*d", counter.Length, next),
		Field:  counter.Field,
		Number: next,
		commit: func() error {
			if err := tx.Update(coll, path, Fields{counterCurrent: next}); err != nil {
				return storeErr("update counter", err)
			}
			return nil
		},
	}, nil
}

// SetCounter writes the autonumber counter for the descriptor's collection path.
func (s *Store) SetCounter(ctx context.Context, d *Descriptor, prefix string, c Counter) error {
	path, err := d.CollectionPath(prefix)
	if err != nil {
		return s.fail(ctx, "setCounter", d, "", err)
	}
	if c.Length < 1 || c.Length > maxCounterLength || c.Field == "" || c.Current < 0 {
		return s.fail(ctx, "setCounter", d, "", invalidArg("counter %+v is malformed", c))
	}
	err = s.RunTransaction(ctx, nil, func(ctx context.Context, tx Tx) error {
		return storeErr("set counter", tx.Set(s.config.AutonumberCollection, path, c.fields()))
	})
	if err != nil {
		return s.fail(ctx, "setCounter", d, "", err)
	}
	return nil
}

// GetCounter reads the autonumber counter for the descriptor's collection path.
func (s *Store) GetCounter(ctx context.Context, d *Descriptor, prefix string) (Counter, error) {
	path, err := d.CollectionPath(prefix)
	if err != nil {
		return Counter{}, s.fail(ctx, "getCounter", d, "", err)
	}
	raw, found, err := s.backend.Get(ctx, s.config.AutonumberCollection, path)
	if err != nil {
		return Counter{}, s.fail(ctx, "getCounter", d, "", storeErr("get counter", err))
	}
	if !found {
		return Counter{}, s.fail(ctx, "getCounter", d, "", notFoundErr("autonumber counter", s.config.AutonumberCollection, path))
	}
	c, err := counterFromFields(raw)
	if err != nil {
		return Counter{}, s.fail(ctx, "getCounter", d, "", err)
	}
	return c, nil
}
