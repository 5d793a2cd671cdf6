package storage

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/jdziat/galaxy-sync/pkg/security"
)

// PoolConfig sizes the database/sql pool behind a GormStorage.
type PoolConfig struct {
	MaxOpenConns    int // 0 is unlimited
	MaxIdleConns    int
	ConnMaxLifetime time.Duration // 0 keeps connections forever
	ConnMaxIdleTime time.Duration
}

// PoolForConcurrency sizes a pool for a reconcile fan-out of n siblings. A
// sibling reads and writes in turn, so two connections per sibling keep the
// fan-out from queueing on the pool; a quarter stays warm between passes.
func PoolForConcurrency(n int) PoolConfig {
	n = security.ClampConcurrency(n)
	return PoolConfig{
		MaxOpenConns:    2 * n,
		MaxIdleConns:    max(1, n/2),
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: time.Minute,
	}
}

// DefaultPoolConfig matches the default fan-out of 8.
func DefaultPoolConfig() PoolConfig {
	return PoolForConcurrency(8)
}

// PoolOption adjusts a PoolConfig.
type PoolOption interface {
	applyPool(*PoolConfig)
}

type poolOptionFunc func(*PoolConfig)

func (f poolOptionFunc) applyPool(c *PoolConfig) { f(c) }

func MaxOpenConns(n int) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { c.MaxOpenConns = n })
}

func MaxIdleConns(n int) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { c.MaxIdleConns = n })
}

func ConnMaxLifetime(d time.Duration) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { c.ConnMaxLifetime = d })
}

func ConnMaxIdleTime(d time.Duration) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { c.ConnMaxIdleTime = d })
}

// WithPoolConfig starts from cfg instead of DefaultPoolConfig. Options after
// it still apply.
func WithPoolConfig(cfg PoolConfig) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { *c = cfg })
}

// ConfigurePool resolves opts over DefaultPoolConfig and applies the result
// to the connection pool of db.
func ConfigurePool(db *gorm.DB, opts ...PoolOption) error {
	cfg := DefaultPoolConfig()
	for _, opt := range opts {
		opt.applyPool(&cfg)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("storage: connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return nil
}

// NewGormStorageWithPool configures the pool of db, then wraps it.
func NewGormStorageWithPool(db *gorm.DB, opts ...PoolOption) (*GormStorage, error) {
	if err := ConfigurePool(db, opts...); err != nil {
		return nil, err
	}
	return NewGormStorage(db), nil
}
