// Package match evaluates store predicates and orderings against decoded
// documents.
package match

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/jacentio/docket/store"
)

// Filter returns the snapshots matching every predicate.
func Filter(snaps []store.Snapshot, preds []store.Predicate) ([]store.Snapshot, error) {
	out := snaps[:0:0]
	for _, snap := range snaps {
		ok, err := Matches(snap.Fields, preds)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, snap)
		}
	}
	return out, nil
}

// Matches reports whether fields satisfy every predicate.
func Matches(fields store.Fields, preds []store.Predicate) (bool, error) {
	for _, p := range preds {
		v, present := store.Lookup(fields, p.Field)
		ok, err := match(v, present, p)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func match(v any, present bool, p store.Predicate) (bool, error) {
	switch p.Op {
	case store.OpEqual:
		return present && Equal(v, p.Value), nil
	case store.OpNotEqual:
		return present && !Equal(v, p.Value), nil
	case store.OpLess, store.OpLessEqual, store.OpGreater, store.OpGreaterEqual:
		if !present {
			return false, nil
		}
		c, ok := Compare(v, p.Value)
		if !ok {
			return false, nil
		}
		switch p.Op {
		case store.OpLess:
			return c < 0, nil
		case store.OpLessEqual:
			return c <= 0, nil
		case store.OpGreater:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case store.OpIn:
		return present && containsValue(p.Value, v), nil
	case store.OpArrayContains:
		return present && containsValue(v, p.Value), nil
	}
	return false, fmt.Errorf("match: unsupported operator %q", p.Op)
}

// Sort orders snapshots by each order in turn. Documents missing an
// ordered field are excluded.
func Sort(snaps []store.Snapshot, orders []store.Order) []store.Snapshot {
	if len(orders) == 0 {
		return snaps
	}
	out := snaps[:0:0]
	for _, snap := range snaps {
		keep := true
		for _, o := range orders {
			if _, ok := store.Lookup(snap.Fields, o.Field); !ok {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, snap)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		for _, o := range orders {
			a, _ := store.Lookup(out[i].Fields, o.Field)
			b, _ := store.Lookup(out[j].Fields, o.Field)
			c, ok := Compare(a, b)
			if !ok || c == 0 {
				continue
			}
			if o.Direction == store.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return out
}

// Equal compares numbers by value across types and times by instant.
func Equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Equal(tb)
		}
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders numbers, strings, times and bools. It reports false for
// values of different kinds.
func Compare(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func containsValue(list, v any) bool {
	rv := reflect.ValueOf(list)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if Equal(rv.Index(i).Interface(), v) {
			return true
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
