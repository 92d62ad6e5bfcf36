/*
 * Copyright © 2025 Quayside Systems Inc., All rights reserved.
 */

package store

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	apperrors "github.com/quayside/modelstore/errors"
)

// Model is implemented by record types mapped to a single backing table.
// The hash key uniquely identifies a record within its table, together with
// the range key when the table declares one.
type Model interface {
	// HashKey returns the partition key value for this instance.
	HashKey() any

	// RangeKey returns the sort key value, or nil when the table keys on
	// the partition key alone.
	RangeKey() any
}

// Identified is implemented by models that can populate a missing hash key.
// Create uses it to assign a generated identifier when the hash key is empty.
type Identified[T any] interface {
	// WithID returns a copy of the model with the given identifier set as
	// its hash key.
	WithID(id string) T
}

// KeyAttribute names a key attribute and its scalar type.
type KeyAttribute struct {
	Name string
	Type types.ScalarAttributeType
}

// KeySchema describes the primary key of a table or secondary index.
type KeySchema struct {
	Hash  KeyAttribute
	Range *KeyAttribute
}

// Validate checks that the schema names its key attributes and uses scalar
// key types only.
func (k KeySchema) Validate() error {
	if err := validateKeyAttribute(k.Hash); err != nil {
		return err
	}
	if k.Range != nil {
		return validateKeyAttribute(*k.Range)
	}
	return nil
}

func validateKeyAttribute(a KeyAttribute) error {
	if a.Name == "" {
		return apperrors.NewValidationError("key schema", "key attribute name is required")
	}
	switch a.Type {
	case types.ScalarAttributeTypeS, types.ScalarAttributeTypeN, types.ScalarAttributeTypeB:
		return nil
	}
	return apperrors.NewValidationError(a.Name, "key attribute type must be S, N or B")
}

// Equal reports whether two key schemas describe the same keys.
func (k KeySchema) Equal(o KeySchema) bool {
	if k.Hash != o.Hash {
		return false
	}
	if (k.Range == nil) != (o.Range == nil) {
		return false
	}
	return k.Range == nil || *k.Range == *o.Range
}

// Elements returns the schema as DynamoDB key schema elements.
func (k KeySchema) Elements() []types.KeySchemaElement {
	elements := []types.KeySchemaElement{{
		AttributeName: aws.String(k.Hash.Name),
		KeyType:       types.KeyTypeHash,
	}}
	if k.Range != nil {
		elements = append(elements, types.KeySchemaElement{
			AttributeName: aws.String(k.Range.Name),
			KeyType:       types.KeyTypeRange,
		})
	}
	return elements
}

// Matches reports whether a described table's key schema is compatible with
// this one. Attribute definitions beyond the key attributes are ignored.
func (k KeySchema) Matches(elements []types.KeySchemaElement, defs []types.AttributeDefinition) bool {
	var hashName, rangeName string
	for _, e := range elements {
		switch e.KeyType {
		case types.KeyTypeHash:
			hashName = aws.ToString(e.AttributeName)
		case types.KeyTypeRange:
			rangeName = aws.ToString(e.AttributeName)
		}
	}
	if hashName != k.Hash.Name || attributeType(defs, hashName) != k.Hash.Type {
		return false
	}
	if k.Range == nil {
		return rangeName == ""
	}
	return rangeName == k.Range.Name && attributeType(defs, rangeName) == k.Range.Type
}

func attributeType(defs []types.AttributeDefinition, name string) types.ScalarAttributeType {
	for _, d := range defs {
		if aws.ToString(d.AttributeName) == name {
			return d.AttributeType
		}
	}
	return ""
}

// Binding is the resolved mapping from a model type to its backing table:
// the full table name (namespace prefix included) plus the key schema and
// any secondary indexes. Bindings are immutable once built and stable for
// the lifetime of a process.
type Binding struct {
	// Table is the fully resolved table name.
	Table string

	// Keys is the table's primary key schema.
	Keys KeySchema

	// Indexes maps global secondary index names to their key schemas.
	Indexes map[string]KeySchema
}

// Validate checks the binding's table name and key schemas.
func (b Binding) Validate() error {
	if b.Table == "" {
		return apperrors.NewValidationError("table", "table name is required")
	}
	if err := b.Keys.Validate(); err != nil {
		return err
	}
	for name, ks := range b.Indexes {
		if name == "" {
			return apperrors.NewValidationError("index", "index name is required")
		}
		if err := ks.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Equal reports whether two bindings describe the same table and schema.
func (b Binding) Equal(o Binding) bool {
	if b.Table != o.Table || !b.Keys.Equal(o.Keys) {
		return false
	}
	if len(b.Indexes) != len(o.Indexes) {
		return false
	}
	for name, ks := range b.Indexes {
		other, ok := o.Indexes[name]
		if !ok || !ks.Equal(other) {
			return false
		}
	}
	return true
}

// AttributeDefinitions returns the attribute definitions for every key
// attribute referenced by the table or its indexes, deduplicated by name.
func (b Binding) AttributeDefinitions() []types.AttributeDefinition {
	seen := make(map[string]bool)
	var defs []types.AttributeDefinition
	add := func(a KeyAttribute) {
		if seen[a.Name] {
			return
		}
		seen[a.Name] = true
		defs = append(defs, types.AttributeDefinition{
			AttributeName: aws.String(a.Name),
			AttributeType: a.Type,
		})
	}
	add(b.Keys.Hash)
	if b.Keys.Range != nil {
		add(*b.Keys.Range)
	}
	for _, ks := range b.Indexes {
		add(ks.Hash)
		if ks.Range != nil {
			add(*ks.Range)
		}
	}
	return defs
}

// TableBinder is implemented by stores that expose their table binding for
// registration with a session.
type TableBinder interface {
	Binding() Binding
}
