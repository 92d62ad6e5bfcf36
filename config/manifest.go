/*
 * Copyright © 2025 Quayside Systems Inc., All rights reserved.
 */

package config

import (
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"gopkg.in/yaml.v3"

	apperrors "github.com/quayside/modelstore/errors"
	"github.com/quayside/modelstore/store"
)

// Manifest declares a set of tables for session provisioning, typically
// loaded from a YAML file by the command-line tool.
type Manifest struct {
	Namespace string      `yaml:"namespace"`
	Tables    []TableSpec `yaml:"tables"`
}

// TableSpec declares one table's name and key schema.
type TableSpec struct {
	Name     string      `yaml:"name"`
	HashKey  KeySpec     `yaml:"hashKey"`
	RangeKey *KeySpec    `yaml:"rangeKey"`
	Indexes  []IndexSpec `yaml:"indexes"`
}

// IndexSpec declares one global secondary index.
type IndexSpec struct {
	Name     string   `yaml:"name"`
	HashKey  KeySpec  `yaml:"hashKey"`
	RangeKey *KeySpec `yaml:"rangeKey"`
}

// KeySpec declares one key attribute. Type is S, N, or B and defaults to S.
type KeySpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// LoadManifest reads a table manifest from a YAML file.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m, nil
}

// Bindings converts the manifest's table specs into validated store bindings
// with every table name resolved under the given prefix.
func (m Manifest) Bindings(prefix string) ([]store.Binding, error) {
	bindings := make([]store.Binding, 0, len(m.Tables))
	for _, spec := range m.Tables {
		binding, err := spec.binding(prefix)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, binding)
	}
	return bindings, nil
}

func (t TableSpec) binding(prefix string) (store.Binding, error) {
	if t.Name == "" {
		return store.Binding{}, apperrors.NewValidationError("name", "table name is required")
	}
	keys, err := keySchema(t.HashKey, t.RangeKey)
	if err != nil {
		return store.Binding{}, err
	}
	binding := store.Binding{
		Table: prefix + t.Name,
		Keys:  keys,
	}
	for _, index := range t.Indexes {
		if index.Name == "" {
			return store.Binding{}, apperrors.NewValidationError("indexes", "index name is required")
		}
		indexKeys, err := keySchema(index.HashKey, index.RangeKey)
		if err != nil {
			return store.Binding{}, err
		}
		if binding.Indexes == nil {
			binding.Indexes = make(map[string]store.KeySchema)
		}
		binding.Indexes[index.Name] = indexKeys
	}
	if err := binding.Validate(); err != nil {
		return store.Binding{}, err
	}
	return binding, nil
}

func keySchema(hash KeySpec, rng *KeySpec) (store.KeySchema, error) {
	hashAttr, err := keyAttribute(hash)
	if err != nil {
		return store.KeySchema{}, err
	}
	keys := store.KeySchema{Hash: hashAttr}
	if rng != nil {
		rangeAttr, err := keyAttribute(*rng)
		if err != nil {
			return store.KeySchema{}, err
		}
		keys.Range = &rangeAttr
	}
	return keys, nil
}

func keyAttribute(spec KeySpec) (store.KeyAttribute, error) {
	if spec.Name == "" {
		return store.KeyAttribute{}, apperrors.NewValidationError("name", "key attribute name is required")
	}
	switch spec.Type {
	case "", "S":
		return store.KeyAttribute{Name: spec.Name, Type: types.ScalarAttributeTypeS}, nil
	case "N":
		return store.KeyAttribute{Name: spec.Name, Type: types.ScalarAttributeTypeN}, nil
	case "B":
		return store.KeyAttribute{Name: spec.Name, Type: types.ScalarAttributeTypeB}, nil
	}
	return store.KeyAttribute{}, apperrors.NewValidationError("type",
		fmt.Sprintf("unsupported key type %q for attribute %s", spec.Type, spec.Name))
}
