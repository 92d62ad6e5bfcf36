/*
 * Copyright © 2025 Quayside Systems Inc., All rights reserved.
 */

// Package testmodels provides the reference models used across the test
// suites: a hash-only Company table and a hash+range Employee table.
package testmodels

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"

	"github.com/quayside/modelstore/store"
)

// Company is a hash-only model keyed by a generated id.
type Company struct {
	ID        string           `dynamodbav:"id" json:"id"`
	Name      string           `dynamodbav:"name" json:"name"`
	CreatedAt *strfmt.DateTime `dynamodbav:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// HashKey returns the company id.
func (c Company) HashKey() any { return c.ID }

// RangeKey returns nil; companies have no range key.
func (c Company) RangeKey() any { return nil }

// WithID returns a copy of the company with the given id assigned.
func (c Company) WithID(id string) Company {
	c.ID = id
	return c
}

// CompanyBinding binds Company to the given table with a secondary index
// on the company name.
func CompanyBinding(table string) store.Binding {
	return store.Binding{
		Table: table,
		Keys: store.KeySchema{
			Hash: store.KeyAttribute{Name: "id", Type: types.ScalarAttributeTypeS},
		},
		Indexes: map[string]store.KeySchema{
			"name-index": {
				Hash: store.KeyAttribute{Name: "name", Type: types.ScalarAttributeTypeS},
			},
		},
	}
}

// Employee is a hash+range model grouped by company.
type Employee struct {
	CompanyID string           `dynamodbav:"company_id" json:"companyId"`
	ID        string           `dynamodbav:"id" json:"id"`
	Name      string           `dynamodbav:"name" json:"name"`
	HiredAt   *strfmt.DateTime `dynamodbav:"hiredAt,omitempty" json:"hiredAt,omitempty"`
}

// HashKey returns the owning company id.
func (e Employee) HashKey() any { return e.CompanyID }

// RangeKey returns the employee id.
func (e Employee) RangeKey() any { return e.ID }

// WithID returns a copy of the employee with the given id assigned.
func (e Employee) WithID(id string) Employee {
	e.ID = id
	return e
}

// EmployeeBinding binds Employee to the given table.
func EmployeeBinding(table string) store.Binding {
	return store.Binding{
		Table: table,
		Keys: store.KeySchema{
			Hash:  store.KeyAttribute{Name: "company_id", Type: types.ScalarAttributeTypeS},
			Range: &store.KeyAttribute{Name: "id", Type: types.ScalarAttributeTypeS},
		},
	}
}
