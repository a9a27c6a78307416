package repo

import (
	"strings"

	"PassVault/internal/model"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// InitDB открывает базу и накатывает миграции моделей.
// Postgres распознаётся по DSN, всё остальное считается файлом SQLite
// (для локального запуска и тестов используется драйвер modernc).
func InitDB(dsn string) (*gorm.DB, error) {
	var dial gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.Contains(dsn, "host=") {
		dial = postgres.Open(dsn)
	} else {
		dial = gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}
	}

	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.Device{},
		&model.Group{},
		&model.GroupField{},
		&model.Field{},
	); err != nil {
		return nil, err
	}
	return db, nil
}
