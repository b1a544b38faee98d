// Package dynamo provides a store.Backend on a single DynamoDB table.
//
// Every document is one item keyed by its collection path (pk) and doc id
// (sk). The leaf collection name is copied to grp, which a global secondary
// index uses for collection-group queries. Each item carries a version that
// transactions condition their writes on.
//
// Table layout:
//
//	pk      S  collection path, e.g. "orgs/o1/customers"
//	sk      S  doc id
//	grp     S  leaf collection name, e.g. "customers"
//	version N  incremented on every write
//	data    M  document fields
package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/docket/internal/match"
	"github.com/jacentio/docket/store"
)

// API is the subset of the DynamoDB client the backend uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// maxTransactItems is the DynamoDB limit on items in one transaction.
const maxTransactItems = 100

// Backend is a store.Backend on DynamoDB.
type Backend struct {
	client API
	config Config
}

var _ store.Backend = (*Backend)(nil)

// New creates a new Backend.
func New(client API, config Config) *Backend {
	config.validate()
	return &Backend{
		client: client,
		config: config,
	}
}

// NewID returns a random UUID.
func (b *Backend) NewID() string {
	return uuid.NewString()
}

// Get reads one document.
func (b *Backend) Get(ctx context.Context, path, id string) (store.Fields, bool, error) {
	it, found, err := b.getItem(ctx, docKey{path, id}, b.config.ConsistentRead)
	if err != nil || !found {
		return nil, false, err
	}
	fields, err := decodeFields(it.data)
	if err != nil {
		return nil, false, err
	}
	return fields, true, nil
}

func (b *Backend) getItem(ctx context.Context, k docKey, consistent bool) (item, bool, error) {
	result, err := b.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(b.config.Table),
		Key:            k.key(),
		ConsistentRead: aws.Bool(consistent),
	})
	if err != nil {
		return item{}, false, err
	}
	if result.Item == nil {
		return item{}, false, nil
	}
	it, err := parseItem(result.Item)
	if err != nil {
		return item{}, false, err
	}
	return it, true, nil
}

// Query runs q. Predicates are evaluated by DynamoDB as a filter; ordering
// and the limit are applied to the filtered result.
func (b *Backend) Query(ctx context.Context, q store.Query) ([]store.Snapshot, error) {
	input := &dynamodb.QueryInput{
		TableName: aws.String(b.config.Table),
	}
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	if q.Group {
		input.IndexName = aws.String(b.config.GroupIndex)
		input.KeyConditionExpression = aws.String("#grp = :grp")
		names["#grp"] = attrGroup
		values[":grp"] = &types.AttributeValueMemberS{Value: q.Collection}
	} else {
		input.KeyConditionExpression = aws.String("#pk = :pk")
		input.ConsistentRead = aws.Bool(b.config.ConsistentRead)
		names["#pk"] = attrPK
		values[":pk"] = &types.AttributeValueMemberS{Value: q.Collection}
	}

	if len(q.Where) > 0 {
		fb := newFilterBuilder()
		expr, err := fb.filter(q.Where)
		if errors.Is(err, errNoMatch) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		input.FilterExpression = aws.String(expr)
		for k, v := range fb.names {
			names[k] = v
		}
		for k, v := range fb.values {
			values[k] = v
		}
	}
	input.ExpressionAttributeNames = names
	input.ExpressionAttributeValues = values

	// Without an ordering the first Limit matches are the result.
	stopAt := 0
	if len(q.OrderBy) == 0 {
		stopAt = q.Limit
	}

	var snaps []store.Snapshot
	paginator := dynamodb.NewQueryPaginator(b.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			it, err := parseItem(raw)
			if err != nil {
				return nil, err
			}
			fields, err := decodeFields(it.data)
			if err != nil {
				return nil, err
			}
			snaps = append(snaps, store.Snapshot{Path: it.key.path, ID: it.key.id, Fields: fields})
		}
		if stopAt > 0 && len(snaps) >= stopAt {
			break
		}
	}

	snaps = match.Sort(snaps, q.OrderBy)
	if q.Limit > 0 && len(snaps) > q.Limit {
		snaps = snaps[:q.Limit]
	}
	return snaps, nil
}

// RunTransaction runs fn and commits its staged writes in one
// TransactWriteItems call.
func (b *Backend) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	t := newTx(b)
	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.commit(ctx)
}

func tooManyItems(n int) error {
	return fmt.Errorf("dynamo: transaction has %d items, limit is %d", n, maxTransactItems)
}
