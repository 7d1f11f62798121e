// Package mocks provides hand-written test doubles for interfaces shared
// across packages. Each mock records its calls and delegates to an optional
// function field, falling back to canned values.
package mocks
