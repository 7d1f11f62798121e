// Package task runs background work such as transcription backfills.
//
// Tasks are persisted through a TaskStore before they are queued so that a
// restart can recover pending and interrupted work. A TaskRunner combines
// the store with an in-memory TaskQueue and a WorkerPool, and rebuilds
// recovered records into executable tasks with the Restorer registered for
// their type.
package task
