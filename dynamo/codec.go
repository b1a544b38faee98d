package dynamo

import (
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/docket/internal/keys"
	"github.com/jacentio/docket/store"
)

// Attribute names of the table layout.
const (
	attrPK      = "pk"
	attrSK      = "sk"
	attrGroup   = "grp"
	attrVersion = "version"
	attrData    = "data"
)

type docKey struct {
	path string
	id   string
}

func (k docKey) key() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: k.path},
		attrSK: &types.AttributeValueMemberS{Value: k.id},
	}
}

func (k docKey) group() types.AttributeValue {
	return &types.AttributeValueMemberS{Value: keys.GroupName(k.path)}
}

// item is a decoded table row.
type item struct {
	key     docKey
	version int64
	data    map[string]types.AttributeValue
}

func parseItem(raw map[string]types.AttributeValue) (item, error) {
	var it item
	pk, ok := raw[attrPK].(*types.AttributeValueMemberS)
	if !ok {
		return item{}, fmt.Errorf("dynamo: item has no %s", attrPK)
	}
	sk, ok := raw[attrSK].(*types.AttributeValueMemberS)
	if !ok {
		return item{}, fmt.Errorf("dynamo: item %s has no %s", pk.Value, attrSK)
	}
	it.key = docKey{path: pk.Value, id: sk.Value}
	if v, ok := raw[attrVersion].(*types.AttributeValueMemberN); ok {
		n, err := strconv.ParseInt(v.Value, 10, 64)
		if err != nil {
			return item{}, fmt.Errorf("dynamo: item %s/%s version: %w", pk.Value, sk.Value, err)
		}
		it.version = n
	}
	if m, ok := raw[attrData].(*types.AttributeValueMemberM); ok {
		it.data = m.Value
	}
	return it, nil
}

func encodeFields(f store.Fields) (map[string]types.AttributeValue, error) {
	if f == nil {
		return map[string]types.AttributeValue{}, nil
	}
	av, err := attributevalue.MarshalMap(map[string]any(f))
	if err != nil {
		return nil, fmt.Errorf("dynamo: encode: %w", err)
	}
	return av, nil
}

// decoder keeps numbers as their decimal text, so integers beyond 2^53
// survive decoding.
var decoder = attributevalue.NewDecoder(func(o *attributevalue.DecoderOptions) {
	o.UseNumber = true
})

// decodeFields decodes a data map. Integral numbers come back as int64 and
// all other numbers as float64.
func decodeFields(av map[string]types.AttributeValue) (store.Fields, error) {
	out := map[string]any{}
	if err := decoder.Decode(&types.AttributeValueMemberM{Value: av}, &out); err != nil {
		return nil, fmt.Errorf("dynamo: decode: %w", err)
	}
	for k, v := range out {
		out[k] = numbers(v)
	}
	return store.Fields(out), nil
}

// numbers replaces every attributevalue.Number in v.
func numbers(v any) any {
	switch x := v.(type) {
	case attributevalue.Number:
		return parseNumber(string(x))
	case map[string]any:
		for k, e := range x {
			x[k] = numbers(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = numbers(e)
		}
		return x
	case []attributevalue.Number:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = parseNumber(string(n))
		}
		return out
	}
	return v
}

func parseNumber(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func encodeValue(v any) (types.AttributeValue, error) {
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("dynamo: encode %T: %w", v, err)
	}
	return av, nil
}

func number(n int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

// merge layers the top-level fields of patch over base into a new map.
func merge(base, patch map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
