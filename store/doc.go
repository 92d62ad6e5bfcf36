/*
Package store provides the generic CRUD and query layer over DynamoDB.

A Store[T] is created once per model type at wiring time and handed a client
and a resolved table binding; it owns no other state. Operations are thin,
explicit requests against the backing table:

	companies, _ := store.New[testmodels.Company](client, binding)

	created, err := companies.Create(ctx, testmodels.Company{ID: "1", Name: "Acme"})
	got, err := companies.Retrieve(ctx, "1")
	_, err = companies.Update(ctx, got)
	removed, err := companies.Delete(ctx, "1")

Deletes are explicit and never cascade: removing a parent record leaves its
dependents in place until the caller deletes them too. Single-item writes stay
predictable against a service billed and throttled per request.

Queries require a full hash-key predicate and page through an opaque cursor:

	page, err := employees.Query(ctx, store.Query{
	    HashKey: "acme",
	    Range:   store.RangeBeginsWith("2024-"),
	    Limit:   25,
	})
	for page.Cursor != "" {
	    page, err = employees.Query(ctx, store.Query{HashKey: "acme", Limit: 25, Cursor: page.Cursor})
	    ...
	}

Reads without a full key predicate must use Scan explicitly; Query never
falls back to a table scan.

Transient failures (throttling, service unavailability) are retried with
bounded exponential backoff before surfacing as errors.ThrottledError or
errors.UnavailableError. All other failures surface immediately.
*/
package store
