// Package testdb provides a migrated PostgreSQL database for integration
// tests.
//
// A database named by ciutil.TestDatabaseURL is used when set; otherwise a
// pgvector container is started once per test binary with testcontainers.
// Migrations are applied with goose before the first connection is handed
// out. WithTx runs a test body in a transaction that is always rolled back.
//
//	func TestCards(t *testing.T) {
//	    db := testdb.Open(t, postgres.Migrations())
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        cards := postgres.NewPostgresCardStore(tx, nil)
//	        ...
//	    })
//	}
package testdb
