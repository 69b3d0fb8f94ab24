package monitoring

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Pinger is satisfied by cache.RedisClient.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseProbe pings the pool behind db.
func DatabaseProbe(db *gorm.DB) Probe {
	return func(ctx context.Context) error {
		if db == nil {
			return errors.New("database not configured")
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// PingProbe wraps any dependency exposing Ping.
func PingProbe(p Pinger) Probe {
	return func(ctx context.Context) error {
		if p == nil {
			return errors.New("not connected")
		}
		return p.Ping(ctx)
	}
}
