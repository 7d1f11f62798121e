// Package store defines the persistence interfaces used by the AI features
// together with the shared error values and the transaction helper.
//
// Implementations live in internal/platform/postgres. Services depend only
// on the interfaces declared here.
package store
