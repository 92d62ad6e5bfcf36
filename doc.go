/*
Package modelstore provides an opinionated persistence layer over DynamoDB:
generic per-model stores for CRUD and query operations, and a session that
manages the provisioning and teardown of the backing tables.

The library favors explicit operations over implicit behavior: updates never
create, deletes never cascade, and queries never fall back to table scans.

Basic Usage:

	client, _ := config.NewClient(ctx, cfg)

	// A session scopes table names and manages their lifecycle
	sess := modelstore.NewSession(client, modelstore.WithTestNamespace())

	// One store per model type, bound to a resolved table name
	companies, _ := store.New[testmodels.Company](client,
	    testmodels.CompanyBinding(sess.TableName("companies")))
	_ = sess.Register(companies)

	// Provision, work, tear down
	err := sess.Run(ctx, func(ctx context.Context) error {
	    acme, err := companies.Create(ctx, testmodels.Company{Name: "Acme"})
	    if err != nil {
	        return err
	    }
	    _, err = companies.Retrieve(ctx, acme.ID)
	    return err
	})

Sessions resolve every table name as namespace prefix plus base name; the
fixed "test_" prefix isolates testing scopes from production tables.

For the CRUD/query surface see the store package; for the error taxonomy see
the errors package; for an in-memory client used in tests see the mock
package.
*/
package modelstore
