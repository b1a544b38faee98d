package dynamo

import (
	"context"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeAPI serves GetItem from items, Query from pages, and records every
// TransactWriteItems request.
type fakeAPI struct {
	mu sync.Mutex

	items map[docKey]map[string]types.AttributeValue
	pages [][]map[string]types.AttributeValue
	txErr error

	gets    []*dynamodb.GetItemInput
	queries []*dynamodb.QueryInput
	txs     []*dynamodb.TransactWriteItemsInput
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: make(map[docKey]map[string]types.AttributeValue)}
}

func (f *fakeAPI) put(path, id string, version int64, data map[string]types.AttributeValue) {
	f.items[docKey{path, id}] = rawItem(path, id, version, data)
}

func (f *fakeAPI) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, params)
	pk := params.Key[attrPK].(*types.AttributeValueMemberS).Value
	sk := params.Key[attrSK].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[docKey{pk, sk}]}, nil
}

func (f *fakeAPI) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, params)

	page := 0
	if v, ok := params.ExclusiveStartKey["page"].(*types.AttributeValueMemberN); ok {
		page, _ = strconv.Atoi(v.Value)
	}
	out := &dynamodb.QueryOutput{}
	if page < len(f.pages) {
		out.Items = f.pages[page]
	}
	if page+1 < len(f.pages) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"page": &types.AttributeValueMemberN{Value: strconv.Itoa(page + 1)},
		}
	}
	return out, nil
}

func (f *fakeAPI) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs = append(f.txs, params)
	if f.txErr != nil {
		return nil, f.txErr
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func rawItem(path, id string, version int64, data map[string]types.AttributeValue) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK:      &types.AttributeValueMemberS{Value: path},
		attrSK:      &types.AttributeValueMemberS{Value: id},
		attrGroup:   docKey{path, id}.group(),
		attrVersion: number(version),
		attrData:    &types.AttributeValueMemberM{Value: data},
	}
}

func strAV(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func numAV(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }

func boolAV(v bool) types.AttributeValue { return &types.AttributeValueMemberBOOL{Value: v} }

func newTestBackend() (*Backend, *fakeAPI) {
	api := newFakeAPI()
	return New(api, Config{Table: "docket-test"}), api
}
