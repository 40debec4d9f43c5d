package storage

import (
	"context"
	"fmt"
	"strings"

	"chalkboard/internal/domain"
)

// Supported slot store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMongoDB  = "mongodb"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// OpenSlotStore connects the slot store for driver. For sqlite, dsn is the
// database file path.
func OpenSlotStore(ctx context.Context, driver, dsn string) (domain.SlotStore, error) {
	switch strings.ToLower(driver) {
	case DriverSQLite, "":
		db, err := New(dsn)
		if err != nil {
			return nil, err
		}
		s := db.Slots()
		s.owned = true
		return s, nil
	case DriverPostgres, "postgresql":
		return openSQLSlotStore(ctx, dialectPostgres, dsn)
	case DriverMySQL:
		return openSQLSlotStore(ctx, dialectMySQL, dsn)
	case DriverMongoDB, "mongo":
		return openMongoSlotStore(ctx, dsn)
	case DriverRedis:
		return openRedisSlotStore(ctx, dsn)
	case DriverMemory:
		return NewMemorySlotStore(), nil
	default:
		return nil, fmt.Errorf("unsupported slot store driver: %s", driver)
	}
}
