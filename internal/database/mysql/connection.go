package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	driver "github.com/go-sql-driver/mysql"
)

// ConnectionConfig holds the settings used to open the CMS database.
// DSN takes precedence over the discrete fields when set.
type ConnectionConfig struct {
	DSN          string
	Host         string
	Port         int
	Username     string
	Password     string
	DatabaseName string
	// TLS is passed to the driver's tls parameter: "", "true", "false",
	// "skip-verify" or "preferred".
	TLS string

	MaxOpenConns int
	MaxIdleConns int
	Timeout      time.Duration
}

// FormatDSN builds the driver DSN for the configuration
func (c ConnectionConfig) FormatDSN() (string, error) {
	var cfg *driver.Config
	if c.DSN != "" {
		parsed, err := driver.ParseDSN(c.DSN)
		if err != nil {
			return "", fmt.Errorf("invalid MySQL DSN: %w", err)
		}
		cfg = parsed
		if cfg.Passwd == "" && c.Password != "" {
			cfg.Passwd = c.Password
		}
	} else {
		if c.Host == "" {
			return "", errors.New("MySQL host is required when no DSN is given")
		}
		if c.DatabaseName == "" {
			return "", errors.New("MySQL database name is required when no DSN is given")
		}
		port := c.Port
		if port == 0 {
			port = 3306
		}
		cfg = driver.NewConfig()
		cfg.User = c.Username
		cfg.Passwd = c.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(port))
		cfg.DBName = c.DatabaseName
	}

	if c.TLS != "" {
		cfg.TLSConfig = c.TLS
	}
	if c.Timeout > 0 {
		cfg.Timeout = c.Timeout
	}

	return cfg.FormatDSN(), nil
}

// Connect opens and pings the MySQL database
func Connect(ctx context.Context, config ConnectionConfig) (*Client, error) {
	dsn, err := config.FormatDSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL database: %w", err)
	}

	maxOpen := config.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 4
	}
	maxIdle := config.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)

	return NewClient(db), nil
}
