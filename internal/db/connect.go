package db

import (
	"fmt"
	"os"

	sqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kylemckinstry/rostretto/internal/config"
)

// DSN builds a MySQL DSN from database configuration. Environment references
// in the password are expanded so credentials can stay out of the config file.
func DSN(cfg config.DatabaseConfig) string {
	c := sqldriver.NewConfig()
	c.User = cfg.User
	c.Passwd = os.ExpandEnv(cfg.Password)
	c.Net = "tcp"
	c.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	c.DBName = cfg.Name
	c.ParseTime = true
	return c.FormatDSN()
}

// Connect opens a GORM connection to the configured store: a SQLite file by
// default, or a MySQL server for shared deployments.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	switch cfg.Driver {
	case "mysql":
		db, err := gorm.Open(mysql.Open(DSN(cfg)), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("db: connect to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
		}
		return db, nil
	default:
		db, err := gorm.Open(sqlite.Open(cfg.Path), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("db: open %s: %w", cfg.Path, err)
		}
		return db, nil
	}
}

// OpenMemory opens an in-memory SQLite database, used by tests and dry runs.
func OpenMemory() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open in-memory store: %w", err)
	}
	return db, nil
}
