// Package blob stores dataset payloads.
//
// FSStore writes objects below a directory and hands out HMAC-signed,
// expiring URLs. MemoryStore keeps everything in a map.
package blob
