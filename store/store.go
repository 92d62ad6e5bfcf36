/*
 * Copyright © 2025 Quayside Systems Inc., All rights reserved.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/quayside/modelstore/errors"
)

// Store provides uniform CRUD and query operations for one model type.
// A Store is stateless beyond its table binding and client handle: every
// operation resolves to direct requests against the backing table, and
// deletes never cascade to related models.
type Store[T Model] struct {
	client  Client
	binding Binding
	retry   retryPolicy
	logger  zerolog.Logger
	newID   func() string
}

// Option configures a Store.
type Option func(*settings)

type settings struct {
	logger      zerolog.Logger
	maxAttempts int
	baseBackoff time.Duration
	timeout     time.Duration
	newID       func() string
}

// WithLogger sets the structured logger used by the store.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithRetry sets the maximum attempts per request and the base backoff
// between retries of transient failures. A zero backoff keeps the default.
func WithRetry(maxAttempts int, baseBackoff time.Duration) Option {
	return func(s *settings) {
		s.maxAttempts = maxAttempts
		if baseBackoff > 0 {
			s.baseBackoff = baseBackoff
		}
	}
}

// WithRequestTimeout bounds each round trip to the table service.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *settings) { s.timeout = timeout }
}

// WithIDGenerator overrides the identifier generator used for models that
// implement Identified. Injectable to facilitate deterministic tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *settings) { s.newID = fn }
}

// New constructs a Store for type T bound to a resolved table name.
func New[T Model](client Client, binding Binding, opts ...Option) (*Store[T], error) {
	if client == nil {
		return nil, apperrors.NewValidationError("client", "client is required")
	}
	if err := binding.Validate(); err != nil {
		return nil, err
	}
	s := settings{
		logger:      zerolog.Nop(),
		maxAttempts: defaultMaxAttempts,
		baseBackoff: defaultBaseBackoff,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &Store[T]{
		client:  client,
		binding: binding,
		retry: retryPolicy{
			maxAttempts: s.maxAttempts,
			baseBackoff: s.baseBackoff,
			timeout:     s.timeout,
		},
		logger: s.logger.With().Str("table", binding.Table).Logger(),
		newID:  s.newID,
	}, nil
}

// Binding returns the store's table binding.
func (s *Store[T]) Binding() Binding {
	return s.binding
}

// Table returns the resolved name of the backing table.
func (s *Store[T]) Table() string {
	return s.binding.Table
}

// Create writes a new item. The hash key must not already exist in the
// table; a collision fails with an AlreadyExistsError. When the model's
// hash key is empty and the type implements Identified, a generated
// identifier is assigned before the write. Returns the stored model.
func (s *Store[T]) Create(ctx context.Context, m T) (T, error) {
	var zero T
	m = s.ensureID(m)
	if emptyKeyValue(m.HashKey()) {
		return zero, apperrors.NewValidationError(s.binding.Keys.Hash.Name, "missing hash key value")
	}
	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return zero, fmt.Errorf("marshal %s item: %w", s.binding.Table, err)
	}
	input := &dynamodb.PutItemInput{
		TableName:                aws.String(s.binding.Table),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#hk)"),
		ExpressionAttributeNames: map[string]string{"#hk": s.binding.Keys.Hash.Name},
	}
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		_, err := s.client.PutItem(ctx, input)
		return err
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return zero, apperrors.NewAlreadyExistsError(s.binding.Table, s.instanceKey(m))
		}
		return zero, s.classify("create", err)
	}
	s.logger.Debug().Str("key", s.instanceKey(m)).Msg("item created")
	return m, nil
}

// Retrieve performs a consistent point lookup by hash (and range) key.
// It fails with a NotFoundError when no item matches.
func (s *Store[T]) Retrieve(ctx context.Context, hashKey any, rangeKey ...any) (T, error) {
	var zero T
	key, err := s.keyMap(hashKey, rangeKey)
	if err != nil {
		return zero, err
	}
	input := &dynamodb.GetItemInput{
		TableName:      aws.String(s.binding.Table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	}
	var out *dynamodb.GetItemOutput
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		o, err := s.client.GetItem(ctx, input)
		if err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return zero, s.classify("retrieve", err)
	}
	if out.Item == nil {
		return zero, apperrors.NewNotFoundError(s.binding.Table, formatKey(hashKey, rangeKey))
	}
	var m T
	if err := attributevalue.UnmarshalMap(out.Item, &m); err != nil {
		return zero, fmt.Errorf("unmarshal %s item: %w", s.binding.Table, err)
	}
	return m, nil
}

// Update fully replaces an existing item keyed by the model's hash (and
// range) key. It fails with a NotFoundError when the keyed item does not
// exist; unlike Upsert it never creates.
func (s *Store[T]) Update(ctx context.Context, m T) (T, error) {
	var zero T
	if emptyKeyValue(m.HashKey()) {
		return zero, apperrors.NewValidationError(s.binding.Keys.Hash.Name, "missing hash key value")
	}
	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return zero, fmt.Errorf("marshal %s item: %w", s.binding.Table, err)
	}
	input := &dynamodb.PutItemInput{
		TableName:                aws.String(s.binding.Table),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_exists(#hk)"),
		ExpressionAttributeNames: map[string]string{"#hk": s.binding.Keys.Hash.Name},
	}
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		_, err := s.client.PutItem(ctx, input)
		return err
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return zero, apperrors.NewNotFoundError(s.binding.Table, s.instanceKey(m))
		}
		return zero, s.classify("update", err)
	}
	return m, nil
}

// Upsert creates or replaces an item. It never fails due to existence.
func (s *Store[T]) Upsert(ctx context.Context, m T) (T, error) {
	var zero T
	m = s.ensureID(m)
	if emptyKeyValue(m.HashKey()) {
		return zero, apperrors.NewValidationError(s.binding.Keys.Hash.Name, "missing hash key value")
	}
	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return zero, fmt.Errorf("marshal %s item: %w", s.binding.Table, err)
	}
	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.binding.Table),
		Item:      item,
	}
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		_, err := s.client.PutItem(ctx, input)
		return err
	})
	if err != nil {
		return zero, s.classify("upsert", err)
	}
	return m, nil
}

// Delete removes exactly one item by key and reports whether an item was
// actually present. A missing key is not an error. Related models are never
// touched: callers issue separate explicit deletes for dependent records.
func (s *Store[T]) Delete(ctx context.Context, hashKey any, rangeKey ...any) (bool, error) {
	key, err := s.keyMap(hashKey, rangeKey)
	if err != nil {
		return false, err
	}
	input := &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.binding.Table),
		Key:          key,
		ReturnValues: types.ReturnValueAllOld,
	}
	var out *dynamodb.DeleteItemOutput
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		o, err := s.client.DeleteItem(ctx, input)
		if err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return false, s.classify("delete", err)
	}
	removed := len(out.Attributes) > 0
	if removed {
		s.logger.Debug().Str("key", formatKey(hashKey, rangeKey)).Msg("item deleted")
	}
	return removed, nil
}

// ensureID assigns a generated hash key to models that support it.
func (s *Store[T]) ensureID(m T) T {
	if !emptyKeyValue(m.HashKey()) {
		return m
	}
	if ident, ok := any(m).(Identified[T]); ok {
		return ident.WithID(s.newID())
	}
	return m
}

// keyMap builds the full DynamoDB key for a point operation, validating the
// caller's key parts against the binding's schema.
func (s *Store[T]) keyMap(hashKey any, rangeKey []any) (map[string]types.AttributeValue, error) {
	keys := s.binding.Keys
	if emptyKeyValue(hashKey) {
		return nil, apperrors.NewValidationError(keys.Hash.Name, "missing hash key value")
	}
	hv, err := attributevalue.Marshal(hashKey)
	if err != nil {
		return nil, apperrors.NewValidationError(keys.Hash.Name, fmt.Sprintf("unmarshalable hash key: %v", err))
	}
	key := map[string]types.AttributeValue{keys.Hash.Name: hv}

	switch {
	case keys.Range == nil:
		if len(rangeKey) > 0 {
			return nil, apperrors.NewValidationError(keys.Hash.Name, "table has no range key")
		}
	case len(rangeKey) != 1:
		return nil, apperrors.NewValidationError(keys.Range.Name, "range key value is required")
	default:
		if emptyKeyValue(rangeKey[0]) {
			return nil, apperrors.NewValidationError(keys.Range.Name, "missing range key value")
		}
		rv, err := attributevalue.Marshal(rangeKey[0])
		if err != nil {
			return nil, apperrors.NewValidationError(keys.Range.Name, fmt.Sprintf("unmarshalable range key: %v", err))
		}
		key[keys.Range.Name] = rv
	}
	return key, nil
}

// instanceKey renders a model's key for error messages and logs.
func (s *Store[T]) instanceKey(m T) string {
	if s.binding.Keys.Range == nil {
		return formatKey(m.HashKey(), nil)
	}
	return formatKey(m.HashKey(), []any{m.RangeKey()})
}

func formatKey(hashKey any, rangeKey []any) string {
	if len(rangeKey) == 0 {
		return fmt.Sprintf("%v", hashKey)
	}
	return fmt.Sprintf("%v/%v", hashKey, rangeKey[0])
}

func emptyKeyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}
