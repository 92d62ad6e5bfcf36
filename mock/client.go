/*
 * Copyright © 2025 Quayside Systems Inc., All rights reserved.
 */

package mock

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// Client is an in-memory implementation of store.Client. Tables live in
// process memory and every operation is guarded by a single mutex, so a
// Client is safe for concurrent use.
//
// OnRequest, when set, runs before each operation with the operation name
// ("PutItem", "Query", ...). A non-nil return is surfaced as that request's
// failure, which is how tests inject throttling and availability faults.
type Client struct {
	mu     sync.Mutex
	tables map[string]*table

	OnRequest func(op string) error
}

// NewClient returns an empty in-memory client.
func NewClient() *Client {
	return &Client{tables: make(map[string]*table)}
}

type table struct {
	keySchema []types.KeySchemaElement
	defs      []types.AttributeDefinition
	gsis      []types.GlobalSecondaryIndex
	items     map[string]map[string]types.AttributeValue
}

func (c *Client) hook(op string) error {
	c.mu.Lock()
	fn := c.OnRequest
	c.mu.Unlock()
	if fn != nil {
		return fn(op)
	}
	return nil
}

func (c *Client) ensure() {
	if c.tables == nil {
		c.tables = make(map[string]*table)
	}
}

func (c *Client) lookup(name string) (*table, error) {
	c.ensure()
	t, ok := c.tables[name]
	if !ok {
		return nil, &types.ResourceNotFoundException{
			Message: aws.String("Requested resource not found: Table: " + name + " not found"),
		}
	}
	return t, nil
}

// TableNames returns the names of the existing tables, sorted.
func (c *Client) TableNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensure()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasTable reports whether the named table exists.
func (c *Client) HasTable(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensure()
	_, ok := c.tables[name]
	return ok
}

// CreateTable creates an in-memory table from the input's key schema and
// secondary indexes. An existing table name fails with ResourceInUseException.
func (c *Client) CreateTable(ctx context.Context, input *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	if err := c.hook("CreateTable"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensure()
	name := aws.ToString(input.TableName)
	if name == "" || len(input.KeySchema) == 0 {
		return nil, validationError("table name and key schema are required")
	}
	if _, ok := c.tables[name]; ok {
		return nil, &types.ResourceInUseException{
			Message: aws.String("Table already exists: " + name),
		}
	}
	t := &table{
		keySchema: input.KeySchema,
		defs:      input.AttributeDefinitions,
		gsis:      input.GlobalSecondaryIndexes,
		items:     make(map[string]map[string]types.AttributeValue),
	}
	c.tables[name] = t
	return &dynamodb.CreateTableOutput{TableDescription: t.describe(name)}, nil
}

// DeleteTable removes the named table and its items.
func (c *Client) DeleteTable(ctx context.Context, input *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
	if err := c.hook("DeleteTable"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	name := aws.ToString(input.TableName)
	t, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	desc := t.describe(name)
	desc.TableStatus = types.TableStatusDeleting
	delete(c.tables, name)
	return &dynamodb.DeleteTableOutput{TableDescription: desc}, nil
}

// DescribeTable reports the named table as immediately active, which lets the
// SDK's table waiters complete on their first poll.
func (c *Client) DescribeTable(ctx context.Context, input *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if err := c.hook("DescribeTable"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	name := aws.ToString(input.TableName)
	t, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	return &dynamodb.DescribeTableOutput{Table: t.describe(name)}, nil
}

// PutItem stores the item, evaluating any condition expression against the
// current item under the same key first.
func (c *Client) PutItem(ctx context.Context, input *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if err := c.hook("PutItem"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.lookup(aws.ToString(input.TableName))
	if err != nil {
		return nil, err
	}
	key, err := t.itemKey(input.Item)
	if err != nil {
		return nil, err
	}
	existing := t.items[key]
	if cond := aws.ToString(input.ConditionExpression); cond != "" {
		ok, err := evalCondition(cond, evalEnv{
			names:  input.ExpressionAttributeNames,
			values: input.ExpressionAttributeValues,
			item:   existing,
		})
		if err != nil {
			return nil, validationError(err.Error())
		}
		if !ok {
			return nil, &types.ConditionalCheckFailedException{
				Message: aws.String("The conditional request failed"),
			}
		}
	}
	t.items[key] = copyItem(input.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// GetItem returns a copy of the item under the given key, if any.
func (c *Client) GetItem(ctx context.Context, input *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if err := c.hook("GetItem"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.lookup(aws.ToString(input.TableName))
	if err != nil {
		return nil, err
	}
	key, err := t.itemKey(input.Key)
	if err != nil {
		return nil, err
	}
	out := &dynamodb.GetItemOutput{}
	if item, ok := t.items[key]; ok {
		out.Item = copyItem(item)
	}
	return out, nil
}

// DeleteItem removes the item under the given key. With ReturnValues ALL_OLD
// the removed attributes are returned, matching the real service.
func (c *Client) DeleteItem(ctx context.Context, input *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if err := c.hook("DeleteItem"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.lookup(aws.ToString(input.TableName))
	if err != nil {
		return nil, err
	}
	key, err := t.itemKey(input.Key)
	if err != nil {
		return nil, err
	}
	old, existed := t.items[key]
	delete(t.items, key)
	out := &dynamodb.DeleteItemOutput{}
	if existed && input.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = copyItem(old)
	}
	return out, nil
}

// Query evaluates the key condition against every item, sorts matches by the
// selected key schema, and applies start key, limit, and filter the way the
// service does: the filter runs after the page window is cut.
func (c *Client) Query(ctx context.Context, input *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if err := c.hook("Query"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.lookup(aws.ToString(input.TableName))
	if err != nil {
		return nil, err
	}
	index := aws.ToString(input.IndexName)
	hashName, rangeName, err := t.schemaFor(index)
	if err != nil {
		return nil, err
	}
	keyCond := aws.ToString(input.KeyConditionExpression)
	if keyCond == "" {
		return nil, validationError("key condition expression is required")
	}

	var matched []map[string]types.AttributeValue
	for _, item := range t.items {
		ok, err := evalCondition(keyCond, evalEnv{
			names:  input.ExpressionAttributeNames,
			values: input.ExpressionAttributeValues,
			item:   item,
		})
		if err != nil {
			return nil, validationError(err.Error())
		}
		if ok {
			matched = append(matched, item)
		}
	}
	sortItems(matched, hashName, rangeName)
	if input.ScanIndexForward != nil && !*input.ScanIndexForward {
		reverse(matched)
	}

	window, lastItem := cutPage(matched, input.ExclusiveStartKey, input.Limit)
	var lastKey map[string]types.AttributeValue
	if lastItem != nil {
		lastKey = t.lastEvaluatedKey(lastItem, index)
	}
	return t.buildResults(window, lastKey, input.FilterExpression,
		input.ExpressionAttributeNames, input.ExpressionAttributeValues, input.Select)
}

// Scan walks every item in primary-key order with the same paging and
// filtering semantics as Query.
func (c *Client) Scan(ctx context.Context, input *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if err := c.hook("Scan"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.lookup(aws.ToString(input.TableName))
	if err != nil {
		return nil, err
	}
	index := aws.ToString(input.IndexName)
	hashName, rangeName, err := t.schemaFor(index)
	if err != nil {
		return nil, err
	}

	var matched []map[string]types.AttributeValue
	for _, item := range t.items {
		// Sparse indexes omit items lacking the index hash attribute.
		if _, ok := item[hashName]; !ok {
			continue
		}
		matched = append(matched, item)
	}
	sortItems(matched, hashName, rangeName)

	window, lastItem := cutPage(matched, input.ExclusiveStartKey, input.Limit)
	var lastKey map[string]types.AttributeValue
	if lastItem != nil {
		lastKey = t.lastEvaluatedKey(lastItem, index)
	}
	queryOut, err := t.buildResults(window, lastKey, input.FilterExpression,
		input.ExpressionAttributeNames, input.ExpressionAttributeValues, input.Select)
	if err != nil {
		return nil, err
	}
	return &dynamodb.ScanOutput{
		Items:            queryOut.Items,
		Count:            queryOut.Count,
		ScannedCount:     queryOut.ScannedCount,
		LastEvaluatedKey: queryOut.LastEvaluatedKey,
	}, nil
}

// buildResults applies the filter to a page window and assembles the output.
func (t *table) buildResults(
	window []map[string]types.AttributeValue,
	lastKey map[string]types.AttributeValue,
	filter *string,
	names map[string]string,
	values map[string]types.AttributeValue,
	sel types.Select,
) (*dynamodb.QueryOutput, error) {
	var items []map[string]types.AttributeValue
	for _, item := range window {
		if f := aws.ToString(filter); f != "" {
			ok, err := evalCondition(f, evalEnv{names: names, values: values, item: item})
			if err != nil {
				return nil, validationError(err.Error())
			}
			if !ok {
				continue
			}
		}
		items = append(items, copyItem(item))
	}
	out := &dynamodb.QueryOutput{
		Count:            int32(len(items)),
		ScannedCount:     int32(len(window)),
		LastEvaluatedKey: lastKey,
	}
	if sel != types.SelectCount {
		out.Items = items
	}
	return out, nil
}

// cutPage applies the exclusive start key and limit to a sorted result set.
// It returns the page window and, when more items remain past the window,
// the last item of the window for LastEvaluatedKey construction.
func cutPage(
	matched []map[string]types.AttributeValue,
	startKey map[string]types.AttributeValue,
	limit *int32,
) ([]map[string]types.AttributeValue, map[string]types.AttributeValue) {
	start := 0
	if len(startKey) > 0 {
		for i, item := range matched {
			if keyMatches(item, startKey) {
				start = i + 1
				break
			}
		}
	}
	end := len(matched)
	if limit != nil && start+int(*limit) < end {
		end = start + int(*limit)
	}
	window := matched[start:end]
	if end < len(matched) && len(window) > 0 {
		return window, window[len(window)-1]
	}
	return window, nil
}

func keyMatches(item, key map[string]types.AttributeValue) bool {
	if len(key) == 0 {
		return false
	}
	for name, want := range key {
		got, ok := item[name]
		if !ok || !attrEqual(got, want) {
			return false
		}
	}
	return true
}

func sortItems(items []map[string]types.AttributeValue, hashName, rangeName string) {
	sort.SliceStable(items, func(i, j int) bool {
		if c := compareNamed(items[i], items[j], hashName); c != 0 {
			return c < 0
		}
		if rangeName != "" {
			if c := compareNamed(items[i], items[j], rangeName); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

func compareNamed(a, b map[string]types.AttributeValue, name string) int {
	av, aok := a[name]
	bv, bok := b[name]
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	if c, ok := compareAttr(av, bv); ok {
		return c
	}
	return strings.Compare(avKeyString(av), avKeyString(bv))
}

func reverse(items []map[string]types.AttributeValue) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

func (t *table) describe(name string) *types.TableDescription {
	desc := &types.TableDescription{
		TableName:            aws.String(name),
		TableStatus:          types.TableStatusActive,
		KeySchema:            t.keySchema,
		AttributeDefinitions: t.defs,
		ItemCount:            aws.Int64(int64(len(t.items))),
	}
	for _, gsi := range t.gsis {
		desc.GlobalSecondaryIndexes = append(desc.GlobalSecondaryIndexes, types.GlobalSecondaryIndexDescription{
			IndexName:   gsi.IndexName,
			KeySchema:   gsi.KeySchema,
			Projection:  gsi.Projection,
			IndexStatus: types.IndexStatusActive,
		})
	}
	return desc
}

func (t *table) primaryKey() (string, string) {
	return keyNames(t.keySchema)
}

func (t *table) schemaFor(index string) (string, string, error) {
	if index == "" {
		hash, rng := t.primaryKey()
		return hash, rng, nil
	}
	for _, gsi := range t.gsis {
		if aws.ToString(gsi.IndexName) == index {
			hash, rng := keyNames(gsi.KeySchema)
			return hash, rng, nil
		}
	}
	return "", "", validationError(fmt.Sprintf("index %s does not exist on table", index))
}

func keyNames(elements []types.KeySchemaElement) (hash, rng string) {
	for _, element := range elements {
		switch element.KeyType {
		case types.KeyTypeHash:
			hash = aws.ToString(element.AttributeName)
		case types.KeyTypeRange:
			rng = aws.ToString(element.AttributeName)
		}
	}
	return hash, rng
}

// itemKey derives the storage key for an item or key map from the table's
// primary key attributes.
func (t *table) itemKey(item map[string]types.AttributeValue) (string, error) {
	hash, rng := t.primaryKey()
	hashVal, ok := item[hash]
	if !ok {
		return "", validationError("missing key attribute " + hash)
	}
	key := avKeyString(hashVal)
	if rng != "" {
		rangeVal, ok := item[rng]
		if !ok {
			return "", validationError("missing key attribute " + rng)
		}
		key += "\x00" + avKeyString(rangeVal)
	}
	return key, nil
}

// lastEvaluatedKey mirrors the service contract: the table's primary key
// attributes plus, for index reads, the index key attributes.
func (t *table) lastEvaluatedKey(item map[string]types.AttributeValue, index string) map[string]types.AttributeValue {
	key := make(map[string]types.AttributeValue)
	hash, rng := t.primaryKey()
	if v, ok := item[hash]; ok {
		key[hash] = v
	}
	if rng != "" {
		if v, ok := item[rng]; ok {
			key[rng] = v
		}
	}
	if index != "" {
		if indexHash, indexRange, err := t.schemaFor(index); err == nil {
			if v, ok := item[indexHash]; ok {
				key[indexHash] = v
			}
			if indexRange != "" {
				if v, ok := item[indexRange]; ok {
					key[indexRange] = v
				}
			}
		}
	}
	return key
}

func avKeyString(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return "S:" + v.Value
	case *types.AttributeValueMemberN:
		return "N:" + v.Value
	case *types.AttributeValueMemberB:
		return "B:" + base64.StdEncoding.EncodeToString(v.Value)
	}
	return fmt.Sprintf("?:%v", av)
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func validationError(message string) error {
	return &smithy.GenericAPIError{Code: "ValidationException", Message: message}
}
