package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/docket/store"
)

type writeKind int

const (
	writeSet writeKind = iota
	writeUpdate
	writeDelete
)

// write is the net staged write to one document. Later writes to the same
// document fold into it.
type write struct {
	kind writeKind
	data map[string]types.AttributeValue
}

// read is what the transaction observed for one document.
type read struct {
	exists  bool
	version int64
	data    map[string]types.AttributeValue
}

// itemKind records what each TransactWriteItem guards, for error mapping.
type itemKind int

const (
	itemVersioned itemKind = iota
	itemBlindUpdate
)

type tx struct {
	backend    *Backend
	reads      map[docKey]read
	readOrder  []docKey
	writes     map[docKey]*write
	writeOrder []docKey
}

var _ store.Tx = (*tx)(nil)

func newTx(b *Backend) *tx {
	return &tx{
		backend: b,
		reads:   make(map[docKey]read),
		writes:  make(map[docKey]*write),
	}
}

func (t *tx) Get(ctx context.Context, path, id string) (store.Fields, bool, error) {
	if len(t.writeOrder) > 0 {
		return nil, false, store.ErrReadAfterWrite
	}
	k := docKey{path, id}
	r, seen := t.reads[k]
	if !seen {
		it, found, err := t.backend.getItem(ctx, k, true)
		if err != nil {
			return nil, false, err
		}
		r = read{exists: found, version: it.version, data: it.data}
		t.reads[k] = r
		t.readOrder = append(t.readOrder, k)
	}
	if !r.exists {
		return nil, false, nil
	}
	fields, err := decodeFields(r.data)
	if err != nil {
		return nil, false, err
	}
	return fields, true, nil
}

func (t *tx) Set(path, id string, data store.Fields) error {
	av, err := encodeFields(data)
	if err != nil {
		return err
	}
	t.stage(docKey{path, id}, &write{kind: writeSet, data: av})
	return nil
}

func (t *tx) Update(path, id string, data store.Fields) error {
	av, err := encodeFields(data)
	if err != nil {
		return err
	}
	k := docKey{path, id}
	if w, ok := t.writes[k]; ok {
		if w.kind == writeDelete {
			return fmt.Errorf("%w: update of deleted document %s/%s", store.ErrNotFound, path, id)
		}
		w.data = merge(w.data, av)
		return nil
	}
	t.stage(k, &write{kind: writeUpdate, data: av})
	return nil
}

func (t *tx) Delete(path, id string) error {
	t.stage(docKey{path, id}, &write{kind: writeDelete})
	return nil
}

func (t *tx) stage(k docKey, w *write) {
	if _, ok := t.writes[k]; !ok {
		t.writeOrder = append(t.writeOrder, k)
	}
	t.writes[k] = w
}

// commit sends every staged write, each conditioned on the version the
// transaction read, plus a condition check for each document read but not
// written.
func (t *tx) commit(ctx context.Context) error {
	items, kinds, err := t.transactItems()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	if len(items) > maxTransactItems {
		return tooManyItems(len(items))
	}
	_, err = t.backend.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	return mapTransactionError(err, kinds)
}

func (t *tx) transactItems() ([]types.TransactWriteItem, []itemKind, error) {
	table := aws.String(t.backend.config.Table)
	var (
		items []types.TransactWriteItem
		kinds []itemKind
	)

	for _, k := range t.writeOrder {
		w := t.writes[k]
		r, seen := t.reads[k]

		if w.kind == writeUpdate && seen {
			if !r.exists {
				return nil, nil, fmt.Errorf("%w: update of missing document %s/%s", store.ErrNotFound, k.path, k.id)
			}
			w = &write{kind: writeSet, data: merge(r.data, w.data)}
		}

		switch w.kind {
		case writeSet:
			names := map[string]string{"#data": attrData, "#grp": attrGroup, "#version": attrVersion}
			values := map[string]types.AttributeValue{
				":data": &types.AttributeValueMemberM{Value: w.data},
				":grp":  k.group(),
				":one":  number(1),
			}
			cond := versionCondition(r, seen, names, values)
			items = append(items, types.TransactWriteItem{Update: &types.Update{
				TableName:                 table,
				Key:                       k.key(),
				UpdateExpression:          aws.String("SET #data = :data, #grp = :grp ADD #version :one"),
				ConditionExpression:       cond,
				ExpressionAttributeNames:  names,
				ExpressionAttributeValues: values,
			}})
			kinds = append(kinds, itemVersioned)

		case writeUpdate:
			names := map[string]string{"#version": attrVersion, "#pk": attrPK}
			values := map[string]types.AttributeValue{":one": number(1)}
			fields := make([]string, 0, len(w.data))
			for field := range w.data {
				fields = append(fields, field)
			}
			sort.Strings(fields)
			sets := make([]string, 0, len(fields))
			for i, field := range fields {
				nameKey := fmt.Sprintf("#attr%d", i)
				valueKey := fmt.Sprintf(":val%d", i)
				names[nameKey] = field
				values[valueKey] = w.data[field]
				sets = append(sets, fmt.Sprintf("#data.%s = %s", nameKey, valueKey))
			}
			expr := "ADD #version :one"
			if len(sets) > 0 {
				names["#data"] = attrData
				expr = "SET " + strings.Join(sets, ", ") + " " + expr
			}
			items = append(items, types.TransactWriteItem{Update: &types.Update{
				TableName:                 table,
				Key:                       k.key(),
				UpdateExpression:          aws.String(expr),
				ConditionExpression:       aws.String("attribute_exists(#pk)"),
				ExpressionAttributeNames:  names,
				ExpressionAttributeValues: values,
			}})
			kinds = append(kinds, itemBlindUpdate)

		case writeDelete:
			del := &types.Delete{TableName: table, Key: k.key()}
			if seen {
				names := map[string]string{}
				values := map[string]types.AttributeValue{}
				del.ConditionExpression = versionCondition(r, seen, names, values)
				del.ExpressionAttributeNames = names
				if len(values) > 0 {
					del.ExpressionAttributeValues = values
				}
			}
			items = append(items, types.TransactWriteItem{Delete: del})
			kinds = append(kinds, itemVersioned)
		}
	}

	for _, k := range t.readOrder {
		if _, written := t.writes[k]; written {
			continue
		}
		r := t.reads[k]
		names := map[string]string{}
		values := map[string]types.AttributeValue{}
		cond := versionCondition(r, true, names, values)
		check := &types.ConditionCheck{
			TableName:                table,
			Key:                      k.key(),
			ConditionExpression:      cond,
			ExpressionAttributeNames: names,
		}
		if len(values) > 0 {
			check.ExpressionAttributeValues = values
		}
		items = append(items, types.TransactWriteItem{ConditionCheck: check})
		kinds = append(kinds, itemVersioned)
	}
	return items, kinds, nil
}

// versionCondition returns the condition that the document is unchanged
// since it was read, adding its placeholders to names and values. It returns
// nil for a document that was not read.
func versionCondition(r read, seen bool, names map[string]string, values map[string]types.AttributeValue) *string {
	if !seen {
		return nil
	}
	if !r.exists {
		names["#pk"] = attrPK
		return aws.String("attribute_not_exists(#pk)")
	}
	names["#version"] = attrVersion
	values[":expected_version"] = number(r.version)
	return aws.String("#version = :expected_version")
}

// mapTransactionError maps a cancelled transaction to the engine's errors.
// kinds holds the kind of each item in request order.
func mapTransactionError(err error, kinds []itemKind) error {
	if err == nil {
		return nil
	}

	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for i, reason := range txErr.CancellationReasons {
			if reason.Code == nil {
				continue
			}
			switch *reason.Code {
			case "ConditionalCheckFailed":
				if i < len(kinds) && kinds[i] == itemBlindUpdate {
					return fmt.Errorf("%w: update of missing document", store.ErrNotFound)
				}
				return fmt.Errorf("%w: %s", store.ErrConflict, aws.ToString(reason.Message))
			case "TransactionConflict":
				return fmt.Errorf("%w: %s", store.ErrConflict, aws.ToString(reason.Message))
			}
		}
	}

	var conflictErr *types.TransactionConflictException
	if errors.As(err, &conflictErr) {
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	}
	return err
}
