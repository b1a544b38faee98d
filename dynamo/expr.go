package dynamo

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/docket/store"
)

// errNoMatch short-circuits a query whose filter can match nothing.
var errNoMatch = errors.New("dynamo: filter matches nothing")

// filterBuilder assembles a FilterExpression over the data attribute.
type filterBuilder struct {
	names  map[string]string
	values map[string]types.AttributeValue
	byName map[string]string
}

func newFilterBuilder() *filterBuilder {
	return &filterBuilder{
		names:  map[string]string{"#data": attrData},
		values: map[string]types.AttributeValue{},
		byName: map[string]string{},
	}
}

// path returns the expression path for a dotted field inside data.
func (b *filterBuilder) path(field string) string {
	parts := []string{"#data"}
	for _, seg := range strings.Split(field, ".") {
		ph, ok := b.byName[seg]
		if !ok {
			ph = fmt.Sprintf("#attr%d", len(b.byName))
			b.byName[seg] = ph
			b.names[ph] = seg
		}
		parts = append(parts, ph)
	}
	return strings.Join(parts, ".")
}

func (b *filterBuilder) value(v any) (string, error) {
	av, err := encodeValue(v)
	if err != nil {
		return "", err
	}
	ph := fmt.Sprintf(":val%d", len(b.values))
	b.values[ph] = av
	return ph, nil
}

func (b *filterBuilder) predicate(p store.Predicate) (string, error) {
	path := b.path(p.Field)
	switch p.Op {
	case store.OpEqual, store.OpLess, store.OpLessEqual, store.OpGreater, store.OpGreaterEqual:
		v, err := b.value(p.Value)
		if err != nil {
			return "", err
		}
		op := p.Op
		if op == store.OpEqual {
			op = "="
		}
		return fmt.Sprintf("%s %s %s", path, op, v), nil

	case store.OpNotEqual:
		v, err := b.value(p.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(attribute_exists(%s) AND %s <> %s)", path, path, v), nil

	case store.OpIn:
		rv := reflect.ValueOf(p.Value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return "", fmt.Errorf("%w: in needs a list, got %T", store.ErrInvalidArgument, p.Value)
		}
		if rv.Len() == 0 {
			return "", errNoMatch
		}
		phs := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			v, err := b.value(rv.Index(i).Interface())
			if err != nil {
				return "", err
			}
			phs = append(phs, v)
		}
		return fmt.Sprintf("%s IN (%s)", path, strings.Join(phs, ", ")), nil

	case store.OpArrayContains:
		v, err := b.value(p.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("contains(%s, %s)", path, v), nil
	}
	return "", fmt.Errorf("%w: unsupported operator %q", store.ErrInvalidArgument, p.Op)
}

// filter returns the AND of preds, or "" when there are none.
func (b *filterBuilder) filter(preds []store.Predicate) (string, error) {
	clauses := make([]string, 0, len(preds))
	for _, p := range preds {
		c, err := b.predicate(p)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, c)
	}
	return strings.Join(clauses, " AND "), nil
}
