package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/iliyamo/pms-backend/internal/config"
	"github.com/iliyamo/pms-backend/internal/model"
)

// Open connects to the configured store and verifies the connection.
func Open(cfg config.DatabaseConfig) (*bun.DB, error) {
	switch cfg.Driver {
	case "sqlite":
		return OpenSQLite(cfg.DSN)
	case "mysql":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = mysqlDSN(cfg)
		}
		return OpenMySQL(dsn, cfg.MaxOpenConns)
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// mysqlDSN assembles a DSN from discrete settings.
// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
func mysqlDSN(cfg config.DatabaseConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = cfg.Host + ":" + cfg.Port
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// OpenMySQL opens a pooled MySQL connection wrapped in bun.
func OpenMySQL(dsn string, maxOpen int) (*bun.DB, error) {
	sqldb, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if maxOpen <= 0 {
		maxOpen = 25
	}
	sqldb.SetMaxOpenConns(maxOpen)
	sqldb.SetMaxIdleConns(maxOpen)
	sqldb.SetConnMaxLifetime(30 * time.Minute)

	db := bun.NewDB(sqldb, mysqldialect.New())
	return finish(db)
}

// OpenSQLite opens an SQLite database with foreign keys enforced. SQLite
// allows a single writer, so the pool is limited to one connection; that
// also keeps ":memory:" databases alive for the life of the handle.
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return finish(db)
}

func finish(db *bun.DB) (*bun.DB, error) {
	RegisterModels(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// RegisterModels registers the join models bun needs to resolve m2m
// relations. It must run before the first query.
func RegisterModels(db *bun.DB) {
	db.RegisterModel(
		(*model.UserRole)(nil),
		(*model.UserSkill)(nil),
		(*model.ProjectTag)(nil),
	)
}
