// Package core provides the fundamental types and interfaces for the galaxysync package.
//
// This package contains:
//   - Analysis, History, Job and Dataset models with GORM annotations
//   - Remote state enumerations and the terminal-state policy tables
//   - Storage, Remote and BlobStore interfaces consumed by the reconcilers
//   - Event types emitted during synchronization passes
//   - Typed errors carrying the id of the entity involved
//
// Most users should import the root package github.com/jdziat/galaxy-sync
// instead of this package directly.
package core
