package db

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"liyu1981.xyz/wfdb-catalog/pkg/common"
)

const (
	TypePostgres = "postgres"
	TypeFile     = "file"
	TypeMemory   = "memory"

	DefaultSqlitePath = "catalog.db"
)

type DB struct {
	Conn *gorm.DB
}

var (
	instance *DB
	once     sync.Once
)

// Open connects to the catalog database. Tables are created by the catalog
// package, not here.
func Open(dialector gorm.Dialector) (*DB, error) {
	logger := common.GetLogger()

	conn, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", dialector.Name(), err)
	}

	logger.Info("Connected to database with dialector:", zap.String("dialector", dialector.Name()))

	if dialector.Name() == "sqlite" {
		if err := conn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("enable sqlite foreign key support: %w", err)
		}
		if err := conn.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
			return nil, fmt.Errorf("set sqlite journal mode: %w", err)
		}
	}

	return &DB{Conn: conn}, nil
}

// GetInstance returns the process wide connection, opening it on first use.
func GetInstance(dialector gorm.Dialector) *DB {
	once.Do(func() {
		var err error
		instance, err = Open(dialector)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
	})
	return instance
}

func (d *DB) IsPostgres() bool {
	return d.Conn.Dialector.Name() == "postgres"
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.Conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UseDialector picks the dialector for dbType, one of postgres, file or
// memory.
func UseDialector(dbType string) (gorm.Dialector, error) {
	switch dbType {
	case TypePostgres:
		return UsePostgresDialector()
	case TypeFile, "":
		return UseSqliteDialector(), nil
	case TypeMemory:
		return UseMemorySqliteDialector(), nil
	}
	return nil, fmt.Errorf("unknown database type %q", dbType)
}

func UsePostgresDialector() (gorm.Dialector, error) {
	dsn, found := os.LookupEnv(common.EnvKeyWFCDbDSN)
	if !found || dsn == "" {
		return nil, fmt.Errorf("%s is required for postgres", common.EnvKeyWFCDbDSN)
	}
	return UsePostgresDialectorWithDSN(dsn), nil
}

func UsePostgresDialectorWithDSN(dsn string) gorm.Dialector {
	return postgres.Open(dsn)
}

func UseSqliteDialector() gorm.Dialector {
	var dbPath string
	var found bool
	if dbPath, found = os.LookupEnv(common.EnvKeyWFCDbPath); !found {
		dbPath = DefaultSqlitePath
	}
	return UseSqliteDialectorAt(dbPath)
}

func UseSqliteDialectorAt(dbPath string) gorm.Dialector {
	return sqlite.Open(dbPath + "?_foreign_keys=on")
}

// UseMemorySqliteDialector opens a fresh named in-memory database, so each
// caller gets its own catalog.
func UseMemorySqliteDialector() gorm.Dialector {
	return sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString()))
}
