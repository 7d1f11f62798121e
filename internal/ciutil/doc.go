// Package ciutil detects CI environments and locates the test database.
package ciutil
