// Package sqlext is the built-in SQL extension. Its capability handle is a
// Driver that opens connections by URL and hands out statements and
// buffered, scrollable result sets.
package sqlext

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var (
	ErrClosed    = errors.New("sql: closed")
	ErrBadURL    = errors.New("sql: unsupported url")
	ErrNoQuery   = errors.New("sql: statement has no query")
	ErrNoRow     = errors.New("sql: cursor is not on a row")
	ErrNoColumn  = errors.New("sql: no such column")
	ErrNotParams = errors.New("sql: statement is not prepared")
)

// Dialect selects the database/sql driver and the goose dialect.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite3"
)

func (d Dialect) driverName() string {
	switch d {
	case DialectPostgres:
		return "pgx"
	case DialectMySQL:
		return "mysql"
	default:
		return "sqlite"
	}
}

// Driver opens connections. Connections stay tracked until closed so that
// shutdown can release them.
type Driver struct {
	log   *zap.Logger
	conns map[*Conn]struct{}
	// PingTimeout bounds the connectivity check made by Connect.
	PingTimeout time.Duration
}

func NewDriver(log *zap.Logger) *Driver {
	return &Driver{
		log:         log,
		conns:       make(map[*Conn]struct{}),
		PingTimeout: 5 * time.Second,
	}
}

func (d *Driver) Name() string { return "luna-sql" }

// AcceptsURL reports whether url names a supported database.
func (d *Driver) AcceptsURL(rawURL string) bool {
	_, _, err := dsn(rawURL, "", "")
	return err == nil
}

// Connect opens a connection. A non-empty user or password overrides the
// credentials in the URL.
func (d *Driver) Connect(ctx context.Context, rawURL, user, password string) (*Conn, error) {
	dialect, source, err := dsn(rawURL, user, password)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(dialect.driverName(), source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// One connection keeps in-memory databases alive and serialises writers.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, d.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	c := &Conn{driver: d, db: db, dialect: dialect, stmts: make(map[*Statement]struct{})}
	d.conns[c] = struct{}{}
	d.log.Debug("sql connected", zap.String("dialect", string(dialect)))
	return c, nil
}

// Len is the number of open connections.
func (d *Driver) Len() int { return len(d.conns) }

// CloseAll closes every open connection.
func (d *Driver) CloseAll() {
	for c := range d.conns {
		if err := c.Close(); err != nil {
			d.log.Warn("close sql connection", zap.Error(err))
		}
	}
}

// dsn maps a URL to a dialect and a driver data source name.
// Accepted schemes: postgres, postgresql, mysql, mariadb, sqlite.
func dsn(rawURL, user, password string) (Dialect, string, error) {
	scheme, rest, ok := strings.Cut(rawURL, "://")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrBadURL, rawURL)
	}
	switch strings.ToLower(scheme) {
	case "sqlite":
		if rest == "" {
			return "", "", fmt.Errorf("%w: %q has no path", ErrBadURL, rawURL)
		}
		return DialectSQLite, rest, nil
	case "postgres", "postgresql":
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", "", fmt.Errorf("%w: %w", ErrBadURL, err)
		}
		if user != "" || password != "" {
			u.User = url.UserPassword(user, password)
		}
		return DialectPostgres, u.String(), nil
	case "mysql", "mariadb":
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", "", fmt.Errorf("%w: %w", ErrBadURL, err)
		}
		cfg := mysql.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
		if user != "" || password != "" {
			cfg.User, cfg.Passwd = user, password
		}
		if q := u.Query(); len(q) > 0 {
			cfg.Params = make(map[string]string, len(q))
			for k := range q {
				cfg.Params[k] = q.Get(k)
			}
		}
		return DialectMySQL, cfg.FormatDSN(), nil
	}
	return "", "", fmt.Errorf("%w: scheme %q", ErrBadURL, scheme)
}
