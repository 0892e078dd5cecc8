package storage

import (
	"fmt"
	"time"

	"camerashop/backend/internal/logging"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// gormWriter sends gorm's log lines to the service logger.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	logging.Warn().Str("component", "gorm").Msgf(format, args...)
}

// Open connects to Postgres and migrates the chat schema.
func Open(dsn string) (*Service, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(gormWriter{}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	svc := NewStorageService(db)
	if err := svc.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return svc, nil
}
