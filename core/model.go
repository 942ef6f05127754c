package core

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDB opens a standalone MySQL connection, e.g. to a legacy schema.
func ConnectDB(dsn string, level LogLevel) (*gorm.DB, error) {
	return Connect(mysql.Open(dsn), level)
}

func Connect(dialector gorm.Dialector, level LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level.gormLevel()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB from GORM: %w", err)
	}
	return db, nil
}
