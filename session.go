/*
 * Copyright © 2025 Quayside Systems Inc., All rights reserved.
 */

package modelstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	apperrors "github.com/quayside/modelstore/errors"
	"github.com/quayside/modelstore/store"
)

// TestNamespace is the fixed table-name prefix for testing scopes. Concurrent
// test runs sharing this prefix also share tables; runs needing isolation
// from each other must configure distinct namespaces.
const TestNamespace = "test_"

// State is the lifecycle state of a session's managed tables.
type State int

const (
	// StateUnbound means no table-existence guarantee has been established.
	StateUnbound State = iota

	// StateActive means every registered table is confirmed to exist.
	StateActive

	// StateTornDown means every registered table is confirmed absent.
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateTornDown:
		return "torn down"
	default:
		return "unbound"
	}
}

const defaultWaitTimeout = 3 * time.Minute

// Session manages the existence of the backing tables for a collection of
// stores within one runtime scope (a test run, a service bootstrap). Stores
// register their table bindings explicitly; provisioning operations then act
// on the whole set.
//
// Provisioning must not run concurrently with application traffic against
// the same tables. That is a scope-level discipline: the session serializes
// its own operations but does not lock out stores.
type Session struct {
	client      store.Client
	namespace   string
	logger      zerolog.Logger
	waitTimeout time.Duration

	mu       sync.Mutex
	bindings map[string]store.Binding
	state    State
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithNamespace sets the table-name prefix for this session's scope.
func WithNamespace(namespace string) SessionOption {
	return func(s *Session) { s.namespace = namespace }
}

// WithTestNamespace applies the fixed testing prefix.
func WithTestNamespace() SessionOption {
	return func(s *Session) { s.namespace = TestNamespace }
}

// WithSessionLogger sets the structured logger used for provisioning steps.
func WithSessionLogger(logger zerolog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithWaitTimeout bounds how long provisioning waits for a table to become
// active or disappear.
func WithWaitTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.waitTimeout = d }
}

// NewSession constructs an unbound session over the given client.
func NewSession(client store.Client, opts ...SessionOption) *Session {
	s := &Session{
		client:      client,
		logger:      zerolog.Nop(),
		waitTimeout: defaultWaitTimeout,
		bindings:    make(map[string]store.Binding),
		state:       StateUnbound,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TableName resolves a base table name within this session's namespace.
func (s *Session) TableName(base string) string {
	return s.namespace + base
}

// Namespace returns the session's table-name prefix.
func (s *Session) Namespace() string {
	return s.namespace
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Register adds a store's table binding to the managed set.
func (s *Session) Register(b store.TableBinder) error {
	return s.RegisterBinding(b.Binding())
}

// RegisterBinding adds a table binding to the managed set. Registering the
// same binding twice is a no-op; registering a different schema under an
// already-bound table name fails with a SchemaMismatchError.
func (s *Session) RegisterBinding(binding store.Binding) error {
	if err := binding.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.bindings[binding.Table]; ok {
		if !existing.Equal(binding) {
			return apperrors.NewSchemaMismatchError(binding.Table, "conflicting binding already registered")
		}
		return nil
	}
	s.bindings[binding.Table] = binding
	return nil
}

// Bindings returns the registered bindings in deterministic table-name order.
func (s *Session) Bindings() []store.Binding {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.bindings))
	for name := range s.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	bindings := make([]store.Binding, 0, len(names))
	for _, name := range names {
		bindings = append(bindings, s.bindings[name])
	}
	return bindings
}

// CreateAll creates every registered table that does not already exist.
// It is idempotent: a table that exists with a compatible key schema is
// accepted as-is; an incompatible schema fails with a SchemaMismatchError.
// The batch aborts on the first unretryable error rather than reporting a
// partially created table set as success.
func (s *Session) CreateAll(ctx context.Context) error {
	for _, b := range s.Bindings() {
		if err := s.createTable(ctx, b); err != nil {
			return err
		}
	}
	s.setState(StateActive)
	return nil
}

// RecreateAll drops and re-creates every registered table, guaranteeing
// empty tables. Destructive by design; intended strictly for testing scopes.
func (s *Session) RecreateAll(ctx context.Context) error {
	for _, b := range s.Bindings() {
		if err := s.dropTable(ctx, b); err != nil {
			return err
		}
	}
	for _, b := range s.Bindings() {
		if err := s.createTable(ctx, b); err != nil {
			return err
		}
	}
	s.setState(StateActive)
	return nil
}

// DropAll deletes every registered table that exists. Idempotent.
func (s *Session) DropAll(ctx context.Context) error {
	for _, b := range s.Bindings() {
		if err := s.dropTable(ctx, b); err != nil {
			return err
		}
	}
	s.setState(StateTornDown)
	return nil
}

// Run provisions the registered tables, invokes fn, and tears the tables
// down on every exit path, including fn failures. The first error
// encountered is returned.
func (s *Session) Run(ctx context.Context, fn func(context.Context) error) (err error) {
	if err = s.CreateAll(ctx); err != nil {
		return err
	}
	defer func() {
		if dropErr := s.DropAll(ctx); dropErr != nil && err == nil {
			err = dropErr
		}
	}()
	return fn(ctx)
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) createTable(ctx context.Context, b store.Binding) error {
	desc, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(b.Table),
	})
	if err == nil {
		if !b.Keys.Matches(desc.Table.KeySchema, desc.Table.AttributeDefinitions) {
			return apperrors.NewSchemaMismatchError(b.Table, "existing key schema differs from binding")
		}
		s.logger.Debug().Str("table", b.Table).Msg("table already exists")
		return nil
	}
	var rnf *types.ResourceNotFoundException
	if !errors.As(err, &rnf) {
		return store.ClassifyClientError("describe table", b.Table, err)
	}

	input := &dynamodb.CreateTableInput{
		TableName:            aws.String(b.Table),
		BillingMode:          types.BillingModePayPerRequest,
		AttributeDefinitions: b.AttributeDefinitions(),
		KeySchema:            b.Keys.Elements(),
	}
	indexNames := make([]string, 0, len(b.Indexes))
	for name := range b.Indexes {
		indexNames = append(indexNames, name)
	}
	sort.Strings(indexNames)
	for _, name := range indexNames {
		input.GlobalSecondaryIndexes = append(input.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName: aws.String(name),
			KeySchema: b.Indexes[name].Elements(),
			Projection: &types.Projection{
				ProjectionType: types.ProjectionTypeAll,
			},
		})
	}

	if _, err := s.client.CreateTable(ctx, input); err != nil {
		var riu *types.ResourceInUseException
		if errors.As(err, &riu) {
			// Concurrent creation of the same table; the waiter below
			// still confirms it becomes active.
			s.logger.Debug().Str("table", b.Table).Msg("table creation already in progress")
		} else {
			return store.ClassifyClientError("create table", b.Table, err)
		}
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(b.Table)}, s.waitTimeout); err != nil {
		return fmt.Errorf("wait for table %s: %w", b.Table, err)
	}
	s.logger.Info().Str("table", b.Table).Msg("table created")
	return nil
}

func (s *Session) dropTable(ctx context.Context, b store.Binding) error {
	_, err := s.client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(b.Table),
	})
	if err != nil {
		var rnf *types.ResourceNotFoundException
		if errors.As(err, &rnf) {
			s.logger.Debug().Str("table", b.Table).Msg("table already absent")
			return nil
		}
		return store.ClassifyClientError("delete table", b.Table, err)
	}
	waiter := dynamodb.NewTableNotExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(b.Table)}, s.waitTimeout); err != nil {
		return fmt.Errorf("wait for table %s removal: %w", b.Table, err)
	}
	s.logger.Info().Str("table", b.Table).Msg("table dropped")
	return nil
}
