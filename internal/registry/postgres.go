// Package registry is the Subscription Registry: the durable,
// versioned record of every subscriber's subscription state, policy,
// and replication high-water mark.
package registry

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgresClient wraps a gorm connection pool, mirroring the teacher
// pack's connection-wrapper shape: an Option struct in, a thin client
// with DB()/Close() out.
type PostgresClient struct {
	db *gorm.DB
}

func OpenPostgres(dsn string, cfg *gorm.Config) (*PostgresClient, error) {
	if cfg == nil {
		cfg = &gorm.Config{}
	}
	db, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("registry: open postgres: %w", err)
	}
	return &PostgresClient{db: db}, nil
}

func (c *PostgresClient) DB() *gorm.DB {
	if c == nil {
		return nil
	}
	return c.db
}

func (c *PostgresClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("registry: underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Migrate creates or updates the registry's tables. Called once at
// startup by cmd binaries that own the registry schema.
func (c *PostgresClient) Migrate() error {
	return c.db.AutoMigrate(&SubscriptionRow{}, &LicenseCredentialRow{}, &DeviceFingerprintRow{})
}
