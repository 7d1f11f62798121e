// Package api exposes the AI-assisted deck features over HTTP. It decodes
// and validates requests, calls the deck service and maps service errors to
// status codes and sanitized messages. Provider quota errors become 429
// responses carrying a Retry-After header.
package api
