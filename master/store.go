package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// identity is an anonymous sign-in.
type identity struct {
	ID        string `gorm:"primaryKey"`
	Token     string `gorm:"uniqueIndex"`
	CreatedAt time.Time
}

// allocation is a hosted session slot.
type allocation struct {
	ID             string `gorm:"primaryKey"`
	OwnerID        string `gorm:"index"`
	JoinCode       string `gorm:"uniqueIndex"`
	MaxConnections int
	Address        string
	Players        int
	LastSeen       time.Time `gorm:"index"`
	CreatedAt      time.Time
}

var models = []interface{}{
	&identity{},
	&allocation{},
}

// dialector picks postgres for postgres URLs and key=value DSNs, sqlite for
// anything else.
func dialector(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.HasPrefix(dsn, "host=") {
		return postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		})
	}
	return sqlite.Open(dsn)
}

// openDB opens the database at dsn and migrates the schema. Use
// "file::memory:?cache=shared" for a throwaway broker.
func openDB(dsn string) (*gorm.DB, error) {
	d := dialector(dsn)
	db, err := gorm.Open(d, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	if d.Name() == "sqlite" {
		// sqlite serializes writers anyway; one connection keeps a memory DSN alive.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
