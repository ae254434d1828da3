package db

import (
	"fmt"
	"log"
	"os"
	"sync"

	puresqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"liyu1981.xyz/printwatch-service/pkg/common"
	"liyu1981.xyz/printwatch-service/pkg/models"
)

type DB struct {
	Conn *gorm.DB
}

var (
	instance *DB
	once     sync.Once
)

// Open connects, migrates and returns a new handle. sqlite serializes writers
// anyway, so the pool is pinned to one connection to keep concurrent poll
// tasks from tripping over SQLITE_BUSY/LOCKED.
func Open(dialector gorm.Dialector) (*DB, error) {
	logger := common.GetLogger()

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	logger.Info("Connected to database with dialector:", zap.String("dialector", dialector.Name()))

	if err := conn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("enable sqlite foreign key support: %w", err)
	}

	if err := conn.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
		return nil, fmt.Errorf("set sqlite journal mode: %w", err)
	}

	err = conn.AutoMigrate(&models.Department{}, &models.User{}, &models.Printer{}, &models.AlertLogEntry{})
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	logger.Info("Database migration completed")

	return &DB{Conn: conn}, nil
}

func GetInstance(dialector gorm.Dialector) *DB {
	once.Do(func() {
		var err error
		if instance, err = Open(dialector); err != nil {
			log.Fatal("Failed to open database: ", err)
		}
	})
	return instance
}

func dbPath() string {
	if p, found := os.LookupEnv(common.EnvKeyDbPath); found && p != "" {
		return p
	}
	return "printwatch.db"
}

func UseSqliteDialector() gorm.Dialector {
	return sqlite.Open(dbPath())
}

// UsePureGoSqliteDialector is the CGO-free driver for static builds.
func UsePureGoSqliteDialector() gorm.Dialector {
	return puresqlite.Open(dbPath())
}

func UseMemorySqliteDialector() gorm.Dialector {
	return sqlite.Open("file::memory:?cache=shared")
}

// UseIsolatedMemorySqliteDialector returns a private in-memory database, so
// each test starts from an empty fleet.
func UseIsolatedMemorySqliteDialector() gorm.Dialector {
	return sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
}

// DialectorFor maps the configured db type to a dialector.
func DialectorFor(dbType string) (gorm.Dialector, error) {
	switch dbType {
	case "file":
		return UseSqliteDialector(), nil
	case "purego":
		return UsePureGoSqliteDialector(), nil
	case "memory":
		return UseMemorySqliteDialector(), nil
	default:
		return nil, fmt.Errorf("unknown %s: %q", common.EnvKeyDBType, dbType)
	}
}
