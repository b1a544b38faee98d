package dynamo

import (
	"context"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/docket/store"
)

func TestQuery_CollectionFilterAndPages(t *testing.T) {
	backend, api := newTestBackend()
	api.pages = [][]map[string]types.AttributeValue{
		{rawItem("customers", "c1", 1, map[string]types.AttributeValue{"name": strAV("Bo"), "tier": numAV("2")})},
		{rawItem("customers", "c2", 1, map[string]types.AttributeValue{"name": strAV("Al"), "tier": numAV("2")})},
	}

	q := store.Query{Collection: "customers"}.Apply(
		store.Predicate{Field: "tier", Op: store.OpEqual, Value: 2},
		store.Predicate{Field: "tags", Op: store.OpArrayContains, Value: "vip"},
		store.Order{Field: "name", Direction: store.Asc},
	)
	snaps, err := backend.Query(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(api.queries) != 2 {
		t.Errorf("expected 2 pages, got %d", len(api.queries))
	}
	if len(snaps) != 2 || snaps[0].ID != "c2" || snaps[1].ID != "c1" {
		t.Errorf("expected results ordered by name, got %+v", snaps)
	}
	if snaps[0].Path != "customers" {
		t.Errorf("unexpected path %q", snaps[0].Path)
	}

	in := api.queries[0]
	if got := aws.ToString(in.KeyConditionExpression); got != "#pk = :pk" {
		t.Errorf("unexpected key condition %q", got)
	}
	if got := aws.ToString(in.FilterExpression); got != "#data.#attr0 = :val0 AND contains(#data.#attr1, :val1)" {
		t.Errorf("unexpected filter %q", got)
	}
	wantNames := map[string]string{"#pk": "pk", "#data": "data", "#attr0": "tier", "#attr1": "tags"}
	if !reflect.DeepEqual(in.ExpressionAttributeNames, wantNames) {
		t.Errorf("expected names %v, got %v", wantNames, in.ExpressionAttributeNames)
	}
	if !reflect.DeepEqual(in.ExpressionAttributeValues[":val0"], numAV("2")) {
		t.Errorf("unexpected value %#v", in.ExpressionAttributeValues[":val0"])
	}
	if in.IndexName != nil {
		t.Error("collection queries use the table")
	}
}

func TestQuery_Group(t *testing.T) {
	backend, api := newTestBackend()
	api.pages = [][]map[string]types.AttributeValue{
		{rawItem("shops/s1/orders", "o1", 1, map[string]types.AttributeValue{"customerId": strAV("c1")})},
	}

	snaps, err := backend.Query(context.Background(), store.Query{Collection: "orders", Group: true, Limit: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Path != "shops/s1/orders" {
		t.Errorf("unexpected results %+v", snaps)
	}

	in := api.queries[0]
	if aws.ToString(in.IndexName) != "grp-index" {
		t.Errorf("expected group index, got %q", aws.ToString(in.IndexName))
	}
	if got := aws.ToString(in.KeyConditionExpression); got != "#grp = :grp" {
		t.Errorf("unexpected key condition %q", got)
	}
	if in.FilterExpression != nil {
		t.Error("expected no filter")
	}
	if _, ok := in.ExpressionAttributeNames["#data"]; ok {
		t.Error("unused names are rejected by DynamoDB")
	}
	if in.ConsistentRead != nil {
		t.Error("global secondary indexes do not support consistent reads")
	}
}

func TestQuery_LimitStopsPaging(t *testing.T) {
	backend, api := newTestBackend()
	api.pages = [][]map[string]types.AttributeValue{
		{rawItem("invoices", "i1", 1, map[string]types.AttributeValue{})},
		{rawItem("invoices", "i2", 1, map[string]types.AttributeValue{})},
	}

	snaps, err := backend.Query(context.Background(), store.Query{Collection: "invoices", Limit: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snaps) != 1 {
		t.Errorf("expected 1 result, got %d", len(snaps))
	}
	if len(api.queries) != 1 {
		t.Errorf("expected paging to stop after the first page, got %d requests", len(api.queries))
	}
}

func TestQuery_NestedTokenPath(t *testing.T) {
	backend, api := newTestBackend()

	preds, err := store.CreateTokenMapQueries("ab")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q := store.Query{Collection: "customers"}
	for _, p := range preds {
		q = q.Apply(p)
	}
	if _, err := backend.Query(context.Background(), q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := api.queries[0]
	want := "#data.#attr0.#attr1 = :val0 AND #data.#attr0.#attr2 = :val1 AND #data.#attr0.#attr3 = :val2"
	if got := aws.ToString(in.FilterExpression); got != want {
		t.Errorf("expected filter %q, got %q", want, got)
	}
	if in.ExpressionAttributeNames["#attr0"] != "tokenMap" || in.ExpressionAttributeNames["#attr3"] != "ab" {
		t.Errorf("unexpected names %v", in.ExpressionAttributeNames)
	}
	if !reflect.DeepEqual(in.ExpressionAttributeValues[":val0"], boolAV(true)) {
		t.Errorf("unexpected value %#v", in.ExpressionAttributeValues[":val0"])
	}
}

func TestQuery_In(t *testing.T) {
	backend, api := newTestBackend()

	q := store.Query{Collection: "customers", Where: []store.Predicate{{Field: "tier", Op: store.OpIn, Value: []int{1, 2}}}}
	if _, err := backend.Query(context.Background(), q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := aws.ToString(api.queries[0].FilterExpression); got != "#data.#attr0 IN (:val0, :val1)" {
		t.Errorf("unexpected filter %q", got)
	}

	q.Where[0].Value = []int{}
	snaps, err := backend.Query(context.Background(), q)
	if err != nil || snaps != nil {
		t.Errorf("expected no results, got %v, %v", snaps, err)
	}
	if len(api.queries) != 1 {
		t.Error("an empty in list must not reach DynamoDB")
	}
}

func TestQuery_NotEqualRequiresAttribute(t *testing.T) {
	backend, api := newTestBackend()

	q := store.Query{Collection: "orders", Where: []store.Predicate{{Field: "status", Op: store.OpNotEqual, Value: "void"}}}
	if _, err := backend.Query(context.Background(), q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "(attribute_exists(#data.#attr0) AND #data.#attr0 <> :val0)"
	if got := aws.ToString(api.queries[0].FilterExpression); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
