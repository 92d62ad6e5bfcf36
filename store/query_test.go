/*
 * Copyright © 2025 Quayside Systems Inc., All rights reserved.
 */

package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/quayside/modelstore/errors"
	"github.com/quayside/modelstore/store"
	"github.com/quayside/modelstore/testmodels"
)

// seedEmployees writes n employees e01..eNN for the given company.
func seedEmployees(t *testing.T, employees *store.Store[testmodels.Employee], companyID string, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= n; i++ {
		_, err := employees.Create(ctx, testmodels.Employee{
			CompanyID: companyID,
			ID:        fmt.Sprintf("e%02d", i),
			Name:      fmt.Sprintf("employee %02d", i),
		})
		require.NoError(t, err)
	}
}

func TestQueryRequiresHashKey(t *testing.T) {
	client, _ := newCompanyStore(t)
	employees := newEmployeeStore(t, client)

	_, err := employees.Query(context.Background(), store.Query{})
	assert.True(t, apperrors.IsValidation(err), "query without hash key must fail, got %v", err)
}

func TestQueryByHashKey(t *testing.T) {
	client, _ := newCompanyStore(t)
	employees := newEmployeeStore(t, client)
	ctx := context.Background()
	seedEmployees(t, employees, "acme", 3)
	seedEmployees(t, employees, "globex", 2)

	page, err := employees.Query(ctx, store.Query{HashKey: "acme"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Empty(t, page.Cursor)
	for _, e := range page.Items {
		assert.Equal(t, "acme", e.CompanyID)
	}
}

func TestQueryPaging(t *testing.T) {
	client, _ := newCompanyStore(t)
	employees := newEmployeeStore(t, client)
	ctx := context.Background()

	const total, pageSize = 7, 3
	seedEmployees(t, employees, "acme", total)

	seen := make(map[string]bool)
	var pages int
	cursor := ""
	for {
		page, err := employees.Query(ctx, store.Query{HashKey: "acme", Limit: pageSize, Cursor: cursor})
		require.NoError(t, err)
		pages++
		for _, e := range page.Items {
			assert.False(t, seen[e.ID], "item %s appeared on two pages", e.ID)
			seen[e.ID] = true
		}
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}
	assert.Equal(t, total, len(seen), "paging must cover every item exactly once")
	assert.Equal(t, 3, pages, "7 items at page size 3 is 3 pages")
}

func TestQueryRangeConditions(t *testing.T) {
	client, _ := newCompanyStore(t)
	employees := newEmployeeStore(t, client)
	ctx := context.Background()
	seedEmployees(t, employees, "acme", 5)

	ids := func(page store.Page[testmodels.Employee]) []string {
		var out []string
		for _, e := range page.Items {
			out = append(out, e.ID)
		}
		return out
	}

	page, err := employees.Query(ctx, store.Query{HashKey: "acme", Range: store.RangeEqual("e03")})
	require.NoError(t, err)
	assert.Equal(t, []string{"e03"}, ids(page))

	page, err = employees.Query(ctx, store.Query{HashKey: "acme", Range: store.RangeLessThan("e03")})
	require.NoError(t, err)
	assert.Equal(t, []string{"e01", "e02"}, ids(page))

	page, err = employees.Query(ctx, store.Query{HashKey: "acme", Range: store.RangeAtLeast("e04")})
	require.NoError(t, err)
	assert.Equal(t, []string{"e04", "e05"}, ids(page))

	// Between is inclusive on both ends.
	page, err = employees.Query(ctx, store.Query{HashKey: "acme", Range: store.RangeBetween("e02", "e04")})
	require.NoError(t, err)
	assert.Equal(t, []string{"e02", "e03", "e04"}, ids(page))

	page, err = employees.Query(ctx, store.Query{HashKey: "acme", Range: store.RangeBeginsWith("e0")})
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
}

func TestQueryDescending(t *testing.T) {
	client, _ := newCompanyStore(t)
	employees := newEmployeeStore(t, client)
	ctx := context.Background()
	seedEmployees(t, employees, "acme", 3)

	page, err := employees.Query(ctx, store.Query{HashKey: "acme", Descending: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "e03", page.Items[0].ID)
	assert.Equal(t, "e01", page.Items[2].ID)
}

func TestQueryFilter(t *testing.T) {
	client, _ := newCompanyStore(t)
	employees := newEmployeeStore(t, client)
	ctx := context.Background()
	seedEmployees(t, employees, "acme", 4)

	filter := expression.Name("name").Equal(expression.Value("employee 02"))
	page, err := employees.Query(ctx, store.Query{HashKey: "acme", Filter: &filter})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "e02", page.Items[0].ID)
}

func TestQueryRangeConditionOnHashOnlyTable(t *testing.T) {
	_, companies := newCompanyStore(t)

	_, err := companies.Query(context.Background(), store.Query{
		HashKey: "c1",
		Range:   store.RangeEqual("x"),
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestQuerySecondaryIndex(t *testing.T) {
	_, companies := newCompanyStore(t)
	ctx := context.Background()

	for _, name := range []string{"Acme", "Acme", "Globex"} {
		_, err := companies.Create(ctx, testmodels.Company{Name: name})
		require.NoError(t, err)
	}

	page, err := companies.Query(ctx, store.Query{HashKey: "Acme", Index: "name-index"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	for _, c := range page.Items {
		assert.Equal(t, "Acme", c.Name)
	}

	_, err = companies.Query(ctx, store.Query{HashKey: "Acme", Index: "bogus-index"})
	assert.True(t, apperrors.IsValidation(err), "undeclared index must fail, got %v", err)
}

func TestScan(t *testing.T) {
	client, _ := newCompanyStore(t)
	employees := newEmployeeStore(t, client)
	ctx := context.Background()
	seedEmployees(t, employees, "acme", 3)
	seedEmployees(t, employees, "globex", 2)

	page, err := employees.Scan(ctx, store.Scan{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)

	filter := expression.Name("company_id").Equal(expression.Value("globex"))
	page, err = employees.Scan(ctx, store.Scan{Filter: &filter})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

func TestScanPaging(t *testing.T) {
	client, _ := newCompanyStore(t)
	employees := newEmployeeStore(t, client)
	ctx := context.Background()
	seedEmployees(t, employees, "acme", 5)

	seen := make(map[string]bool)
	cursor := ""
	for {
		page, err := employees.Scan(ctx, store.Scan{Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		for _, e := range page.Items {
			assert.False(t, seen[e.ID])
			seen[e.ID] = true
		}
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}
	assert.Len(t, seen, 5)
}

func TestCount(t *testing.T) {
	client, _ := newCompanyStore(t)
	employees := newEmployeeStore(t, client)
	ctx := context.Background()
	seedEmployees(t, employees, "acme", 4)
	seedEmployees(t, employees, "globex", 2)

	// Whole table.
	n, err := employees.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	// Key-condition subset.
	n, err = employees.Count(ctx, &store.Query{HashKey: "acme"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	n, err = employees.Count(ctx, &store.Query{HashKey: "acme", Range: store.RangeAtMost("e02")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = employees.Count(ctx, &store.Query{HashKey: "initech"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestQueryMalformedCursor(t *testing.T) {
	client, _ := newCompanyStore(t)
	employees := newEmployeeStore(t, client)

	_, err := employees.Query(context.Background(), store.Query{HashKey: "acme", Cursor: "!!!not-base64!!!"})
	assert.True(t, apperrors.IsValidation(err))
}
