package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// ErrUnavailable is returned when the store cannot be opened or pinged.
var ErrUnavailable = errors.New("store unavailable")

// Options describes how to reach the store. For postgres either DSN or the
// discrete host/port/user fields are used; for sqlite DSN is a file path.
type Options struct {
	Driver   string
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DB is the single shared handle used for the process lifetime.
type DB struct {
	*sqlx.DB
	Driver string
}

// Open connects to the store, pings it and applies the schema.
// Every failure wraps ErrUnavailable; callers treat it as fatal.
func Open(opts Options) (*DB, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	connStr, err := connString(driver, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	conn, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s connection: %v", ErrUnavailable, driver, err)
	}
	if driver == DriverSQLite {
		// one writer, one reader: the same process. A single connection also
		// keeps ":memory:" databases alive across calls.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: pinging %s: %v", ErrUnavailable, driver, err)
	}

	d := &DB{DB: sqlx.NewDb(conn, driver), Driver: driver}
	if _, err := d.Exec(Schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: applying schema: %v", ErrUnavailable, err)
	}
	return d, nil
}

func connString(driver string, opts Options) (string, error) {
	switch driver {
	case DriverSQLite:
		if opts.DSN == "" {
			return "", errors.New("sqlite requires a database path")
		}
		return opts.DSN, nil
	case DriverPostgres:
		if opts.DSN != "" {
			return opts.DSN, nil
		}
		if opts.Host == "" || opts.Port == "" || opts.User == "" || opts.Name == "" {
			return "", errors.New("postgres requires host, port, user and name")
		}
		sslMode := opts.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			opts.Host, opts.Port, opts.User, opts.Password, opts.Name, sslMode), nil
	default:
		return "", fmt.Errorf("unsupported driver %q", driver)
	}
}

// Rebind rewrites "?" placeholders into the bind style of driver
// ("$n" for postgres).
func Rebind(driver, query string) string {
	return sqlx.Rebind(sqlx.BindType(driver), query)
}
