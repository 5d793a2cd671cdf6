// Package remote is the HTTP client for the Galaxy API.
//
// Client implements core.Remote. Every request carries the x-api-key header.
// Failures surface as *core.RemoteError holding the HTTP status when one was
// received; the client never retries.
package remote
