// Package storage provides the persistence layer of the mirror.
//
// GormStorage implements core.Storage on GORM and runs against SQLite for
// tests and local use or PostgreSQL in production. Open picks the dialect from
// a driver name; NewGormStorage wraps an existing *gorm.DB.
//
// Most users should import the root package github.com/jdziat/galaxy-sync
// which re-exports the constructors.
package storage
