// Package postgres implements the store interfaces on PostgreSQL with the
// pgvector extension.
//
// Statements are built with squirrel using dollar placeholders and executed
// through store.DBTX, so every store can run inside a transaction via its
// WithTx method. Schema migrations are embedded and applied with goose.
package postgres
