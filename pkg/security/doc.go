// Package security provides validation, sanitization, and limits for the galaxysync package.
//
// This package includes:
//   - Sanitization of job stdout/stderr and error text before storage
//   - Object key construction and validation for blob storage
//   - Clamping functions for the scheduler retry budget and fan-out concurrency
//
// Most users should import the root package github.com/jdziat/galaxy-sync
// which re-exports these functions.
package security
