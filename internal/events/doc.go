// Package events decouples services from the background work their changes
// trigger. A service emits an Event; handlers registered on the Emitter
// react to it, typically by submitting a task.
package events
