/*
 * Copyright © 2025 Quayside Systems Inc., All rights reserved.
 */

package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	apperrors "github.com/quayside/modelstore/errors"
)

// Query describes a key-condition query: equality on the hash key plus an
// optional range-key condition. A query never falls back to a table scan;
// callers without a full key predicate use Scan explicitly.
type Query struct {
	// HashKey is the required equality condition on the hash key.
	HashKey any

	// Range is an optional condition on the range key.
	Range *RangeCondition

	// Filter is an optional non-key filter applied after the key condition.
	Filter *expression.ConditionBuilder

	// Index selects a secondary index declared in the binding.
	Index string

	// Limit caps the number of items per page. Zero means no explicit cap.
	Limit int32

	// Cursor resumes a paged query from a previously returned page cursor.
	Cursor string

	// Descending reverses the range-key traversal order.
	Descending bool

	// Consistent requests a strongly consistent read. Ignored for index
	// queries, which DynamoDB serves eventually consistent only.
	Consistent bool
}

// Scan describes an explicit full-table (or full-index) scan.
type Scan struct {
	Filter *expression.ConditionBuilder
	Index  string
	Limit  int32
	Cursor string
}

// Page is one page of a lazy, restartable result sequence. Passing Cursor
// back in fetches the next page; an empty Cursor means the sequence is
// exhausted.
type Page[T any] struct {
	Items  []T
	Cursor string
}

type rangeOp int

const (
	rangeEqual rangeOp = iota
	rangeLess
	rangeAtMost
	rangeGreater
	rangeAtLeast
	rangeBeginsWith
	rangeBetween
)

// RangeCondition is a condition on the range key of a query.
type RangeCondition struct {
	op     rangeOp
	lo, hi any
	prefix string
}

// RangeEqual matches items whose range key equals v.
func RangeEqual(v any) *RangeCondition { return &RangeCondition{op: rangeEqual, lo: v} }

// RangeLessThan matches items whose range key is strictly less than v.
func RangeLessThan(v any) *RangeCondition { return &RangeCondition{op: rangeLess, lo: v} }

// RangeAtMost matches items whose range key is less than or equal to v.
func RangeAtMost(v any) *RangeCondition { return &RangeCondition{op: rangeAtMost, lo: v} }

// RangeGreaterThan matches items whose range key is strictly greater than v.
func RangeGreaterThan(v any) *RangeCondition { return &RangeCondition{op: rangeGreater, lo: v} }

// RangeAtLeast matches items whose range key is greater than or equal to v.
func RangeAtLeast(v any) *RangeCondition { return &RangeCondition{op: rangeAtLeast, lo: v} }

// RangeBeginsWith matches items whose range key starts with the prefix.
func RangeBeginsWith(prefix string) *RangeCondition {
	return &RangeCondition{op: rangeBeginsWith, prefix: prefix}
}

// RangeBetween matches items whose range key is between lo and hi, inclusive.
func RangeBetween(lo, hi any) *RangeCondition { return &RangeCondition{op: rangeBetween, lo: lo, hi: hi} }

func (c *RangeCondition) build(name string) expression.KeyConditionBuilder {
	key := expression.Key(name)
	switch c.op {
	case rangeLess:
		return key.LessThan(expression.Value(c.lo))
	case rangeAtMost:
		return key.LessThanEqual(expression.Value(c.lo))
	case rangeGreater:
		return key.GreaterThan(expression.Value(c.lo))
	case rangeAtLeast:
		return key.GreaterThanEqual(expression.Value(c.lo))
	case rangeBeginsWith:
		return key.BeginsWith(c.prefix)
	case rangeBetween:
		return key.Between(expression.Value(c.lo), expression.Value(c.hi))
	default:
		return key.Equal(expression.Value(c.lo))
	}
}

// Query retrieves one page of items matching a key condition. The returned
// page cursor restarts the sequence exactly where it left off.
func (s *Store[T]) Query(ctx context.Context, q Query) (Page[T], error) {
	input, err := s.queryInput(q, false)
	if err != nil {
		return Page[T]{}, err
	}
	var out *dynamodb.QueryOutput
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		o, err := s.client.Query(ctx, input)
		if err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return Page[T]{}, s.classify("query", err)
	}
	return s.page(out.Items, out.LastEvaluatedKey)
}

// Scan retrieves one page of an explicit full-table scan.
func (s *Store[T]) Scan(ctx context.Context, sc Scan) (Page[T], error) {
	input, err := s.scanInput(sc, false)
	if err != nil {
		return Page[T]{}, err
	}
	var out *dynamodb.ScanOutput
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		o, err := s.client.Scan(ctx, input)
		if err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return Page[T]{}, s.classify("scan", err)
	}
	return s.page(out.Items, out.LastEvaluatedKey)
}

// Count returns the number of items matching the query, or the size of the
// whole table when q is nil. Item bodies are never materialized; the
// underlying requests select COUNT and page until exhausted.
func (s *Store[T]) Count(ctx context.Context, q *Query) (int64, error) {
	if q == nil {
		return s.countScan(ctx)
	}
	qc := *q
	qc.Limit = 0
	qc.Cursor = ""
	input, err := s.queryInput(qc, true)
	if err != nil {
		return 0, err
	}
	var total int64
	for {
		var out *dynamodb.QueryOutput
		err = s.retry.Do(ctx, func(ctx context.Context) error {
			o, err := s.client.Query(ctx, input)
			if err != nil {
				return err
			}
			out = o
			return nil
		})
		if err != nil {
			return 0, s.classify("count", err)
		}
		total += int64(out.Count)
		if len(out.LastEvaluatedKey) == 0 {
			return total, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (s *Store[T]) countScan(ctx context.Context) (int64, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(s.binding.Table),
		Select:    types.SelectCount,
	}
	var total int64
	for {
		var out *dynamodb.ScanOutput
		err := s.retry.Do(ctx, func(ctx context.Context) error {
			o, err := s.client.Scan(ctx, input)
			if err != nil {
				return err
			}
			out = o
			return nil
		})
		if err != nil {
			return 0, s.classify("count", err)
		}
		total += int64(out.Count)
		if len(out.LastEvaluatedKey) == 0 {
			return total, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// querySchema resolves the key schema the query runs against: the table's
// primary keys, or the named index's keys.
func (s *Store[T]) querySchema(index string) (KeySchema, error) {
	if index == "" {
		return s.binding.Keys, nil
	}
	ks, ok := s.binding.Indexes[index]
	if !ok {
		return KeySchema{}, apperrors.NewValidationError("index", fmt.Sprintf("index %q is not declared in the binding for table %q", index, s.binding.Table))
	}
	return ks, nil
}

func (s *Store[T]) queryInput(q Query, count bool) (*dynamodb.QueryInput, error) {
	keys, err := s.querySchema(q.Index)
	if err != nil {
		return nil, err
	}
	if emptyKeyValue(q.HashKey) {
		return nil, apperrors.NewValidationError(keys.Hash.Name, "hash key condition is required; use Scan for full-table reads")
	}
	keyCond := expression.Key(keys.Hash.Name).Equal(expression.Value(q.HashKey))
	if q.Range != nil {
		if keys.Range == nil {
			return nil, apperrors.NewValidationError(keys.Hash.Name, "key schema has no range key")
		}
		keyCond = keyCond.And(q.Range.build(keys.Range.Name))
	}
	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if q.Filter != nil {
		builder = builder.WithFilter(*q.Filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build query expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.binding.Table),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if q.Index != "" {
		input.IndexName = aws.String(q.Index)
	}
	if q.Limit > 0 {
		input.Limit = aws.Int32(q.Limit)
	}
	if q.Descending {
		input.ScanIndexForward = aws.Bool(false)
	}
	if q.Consistent && q.Index == "" {
		input.ConsistentRead = aws.Bool(true)
	}
	if q.Cursor != "" {
		start, err := decodeCursor(q.Cursor)
		if err != nil {
			return nil, err
		}
		input.ExclusiveStartKey = start
	}
	if count {
		input.Select = types.SelectCount
	}
	return input, nil
}

func (s *Store[T]) scanInput(sc Scan, count bool) (*dynamodb.ScanInput, error) {
	if sc.Index != "" {
		if _, err := s.querySchema(sc.Index); err != nil {
			return nil, err
		}
	}
	input := &dynamodb.ScanInput{
		TableName: aws.String(s.binding.Table),
	}
	if sc.Filter != nil {
		expr, err := expression.NewBuilder().WithFilter(*sc.Filter).Build()
		if err != nil {
			return nil, fmt.Errorf("build scan expression: %w", err)
		}
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}
	if sc.Index != "" {
		input.IndexName = aws.String(sc.Index)
	}
	if sc.Limit > 0 {
		input.Limit = aws.Int32(sc.Limit)
	}
	if sc.Cursor != "" {
		start, err := decodeCursor(sc.Cursor)
		if err != nil {
			return nil, err
		}
		input.ExclusiveStartKey = start
	}
	if count {
		input.Select = types.SelectCount
	}
	return input, nil
}

func (s *Store[T]) page(raw []map[string]types.AttributeValue, lastKey map[string]types.AttributeValue) (Page[T], error) {
	items := make([]T, 0, len(raw))
	for _, av := range raw {
		var m T
		if err := attributevalue.UnmarshalMap(av, &m); err != nil {
			return Page[T]{}, fmt.Errorf("unmarshal %s item: %w", s.binding.Table, err)
		}
		items = append(items, m)
	}
	cursor, err := encodeCursor(lastKey)
	if err != nil {
		return Page[T]{}, err
	}
	return Page[T]{Items: items, Cursor: cursor}, nil
}
