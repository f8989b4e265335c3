// Package dbprobe checks whether the database described by an environment
// file can be reached.
package dbprobe

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// Prober reports whether the configured database answers.
type Prober interface {
	Ping(ctx context.Context, values map[string]string) error
}

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 5 * time.Second

// SQLProber opens a database/sql connection for DB_CONNECTION and pings it.
type SQLProber struct {
	// BaseDir resolves relative sqlite paths.
	BaseDir string
	Timeout time.Duration
}

// Target is a resolved driver name and data source.
type Target struct {
	Driver string
	DSN    string
}

// Resolve maps env values to a driver and DSN.
func (p *SQLProber) Resolve(values map[string]string) (Target, error) {
	conn := strings.ToLower(strings.TrimSpace(values["DB_CONNECTION"]))
	host := valueOr(values, "DB_HOST", "127.0.0.1")
	user := values["DB_USERNAME"]
	pass := values["DB_PASSWORD"]
	name := values["DB_DATABASE"]

	switch conn {
	case "mysql", "mariadb":
		cfg := mysql.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(host, valueOr(values, "DB_PORT", "3306"))
		cfg.User = user
		cfg.Passwd = pass
		cfg.DBName = name
		return Target{Driver: "mysql", DSN: cfg.FormatDSN()}, nil
	case "pgsql", "postgres":
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(user, pass),
			Host:   net.JoinHostPort(host, valueOr(values, "DB_PORT", "5432")),
			Path:   "/" + name,
		}
		return Target{Driver: "pgx", DSN: u.String()}, nil
	case "sqlsrv":
		q := url.Values{}
		q.Set("database", name)
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(user, pass),
			Host:     net.JoinHostPort(host, valueOr(values, "DB_PORT", "1433")),
			RawQuery: q.Encode(),
		}
		return Target{Driver: "sqlserver", DSN: u.String()}, nil
	case "sqlite":
		path := name
		if path == "" {
			path = filepath.Join("database", "database.sqlite")
		}
		if path != ":memory:" && !filepath.IsAbs(path) {
			path = filepath.Join(p.BaseDir, path)
		}
		return Target{Driver: "sqlite", DSN: path}, nil
	case "":
		return Target{}, fmt.Errorf("DB_CONNECTION is not set")
	default:
		return Target{}, fmt.Errorf("unsupported DB_CONNECTION %q", conn)
	}
}

// Ping opens and pings the database within the probe timeout.
func (p *SQLProber) Ping(ctx context.Context, values map[string]string) error {
	target, err := p.Resolve(values)
	if err != nil {
		return err
	}

	if target.Driver == "sqlite" && target.DSN != ":memory:" {
		if _, err := os.Stat(target.DSN); err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("sqlite database %s: %w", target.DSN, err)
			}
			// Not created yet. Migrations create it, so only the directory
			// has to be usable. Opening it here would create an empty file.
			return checkWritableDir(filepath.Dir(target.DSN))
		}
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := sql.Open(target.Driver, target.DSN)
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", target.Driver, err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to reach %s database: %w", target.Driver, err)
	}
	return nil
}

func checkWritableDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("sqlite database directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("sqlite database directory %s is not a directory", dir)
	}
	f, err := os.CreateTemp(dir, ".appinstall-probe-*")
	if err != nil {
		return fmt.Errorf("sqlite database directory %s is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func valueOr(values map[string]string, key, fallback string) string {
	if v := strings.TrimSpace(values[key]); v != "" {
		return v
	}
	return fallback
}
