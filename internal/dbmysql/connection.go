package dbmysql

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/davidmz/freefeed-server-1/internal/config"
)

// NewMySQL returns a GORM DB instance connected to MySQL
func NewMySQL(cnf *config.Config) (*gorm.DB, error) {
	dsn := cnf.DSN()
	if dsn == "" {
		return nil, fmt.Errorf("MYSQL_DSN is not set")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql.DB error: %w", err)
	}
	sqlDB.SetMaxOpenConns(cnf.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cnf.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Println("connected to MySQL")

	return db, nil
}

// Migrate creates or updates every table the core owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&GroupAdmin{},
		&Timeline{},
		&FeedEntry{},
		&Post{},
		&Comment{},
		&Like{},
		&Subscription{},
		&Ban{},
		&UserStat{},
		&Attachment{},
	)
}
