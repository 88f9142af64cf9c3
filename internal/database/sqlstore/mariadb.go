package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/kozaktomas/library-kiosk/internal/config"
	"github.com/kozaktomas/library-kiosk/internal/database"
)

//go:embed schema/mariadb.sql
var mariadbSchema string

// erDupEntry is the MySQL/MariaDB error number for a duplicate unique key.
const erDupEntry = 1062

func init() {
	database.RegisterDriver("mariadb", func(ctx context.Context, cfg *config.Config) (database.RecordStore, error) {
		return OpenMariaDB(ctx, &cfg.Database, cfg.Matching.EmbeddingDim)
	})
}

var mariadbDialect = dialect{
	name:       "mariadb",
	schema:     mariadbSchema,
	lockClause: " FOR UPDATE",
	isUniqueViolation: func(err error) bool {
		var me *mysql.MySQLError
		return errors.As(err, &me) && me.Number == erDupEntry
	},
}

// OpenMariaDB connects to MariaDB and ensures the schema exists.
func OpenMariaDB(ctx context.Context, cfg *config.DatabaseConfig, dim int) (*Store, error) {
	if cfg.MariaDBDSN == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	db, err := sql.Open("mysql", cfg.MariaDBDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	s, err := newStore(ctx, db, mariadbDialect, dim)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
