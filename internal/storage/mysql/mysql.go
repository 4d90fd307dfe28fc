// Package mysql connects the dues run to the production registration
// database. The schema is owned by the registration system; this package
// only reads the roster and ledger and records collections.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/wsjrdp/dues/internal/storage"
	"github.com/wsjrdp/dues/internal/storage/sqlstore"
)

// Ensure MySQLStore implements storage.Store
var _ storage.Store = (*MySQLStore)(nil)

// Config holds database connection settings.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// DSN builds the driver connection string. Dates are left as text so the
// store can parse them the same way for every backend.
func (c Config) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	cfg.DBName = c.Database
	cfg.Loc = time.UTC
	cfg.Timeout = 5 * time.Second
	return cfg.FormatDSN()
}

// MySQLStore implements storage.Store using MySQL.
type MySQLStore struct {
	*sqlstore.Store
}

// New opens a connection pool and verifies it with a ping.
func New(ctx context.Context, cfg Config) (*MySQLStore, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Connected to database", "addr", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)), "database", cfg.Database)
	return &MySQLStore{Store: sqlstore.New(db)}, nil
}
