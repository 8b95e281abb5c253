package sqlext

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// Conn is one database connection pool. It owns the statements created on
// it; closing it closes them.
type Conn struct {
	driver  *Driver
	db      *sql.DB
	dialect Dialect
	stmts   map[*Statement]struct{}
	closed  bool
}

func (c *Conn) Dialect() Dialect { return c.dialect }
func (c *Conn) IsClosed() bool   { return c.closed }

// CreateStatement returns a statement that runs the SQL passed to each
// execute call.
func (c *Conn) CreateStatement() (*Statement, error) {
	if c.closed {
		return nil, ErrClosed
	}
	s := &Statement{conn: c}
	c.stmts[s] = struct{}{}
	return s, nil
}

// Prepare returns a statement bound to query. Parameters are set by
// 1-based position before executing.
func (c *Conn) Prepare(ctx context.Context, query string) (*Statement, error) {
	if c.closed {
		return nil, ErrClosed
	}
	st, err := c.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	s := &Statement{conn: c, query: query, prepared: st, params: make(map[int]any)}
	c.stmts[s] = struct{}{}
	return s, nil
}

// Migrate applies the goose migrations found in dir.
func (c *Conn) Migrate(ctx context.Context, dir string) error {
	if c.closed {
		return ErrClosed
	}
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(nil)
	if err := goose.SetDialect(string(c.dialect)); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, c.db, dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	for s := range c.stmts {
		s.Close()
	}
	delete(c.driver.conns, c)
	c.driver.log.Debug("sql disconnected", zap.String("dialect", string(c.dialect)))
	return c.db.Close()
}

// Statement runs SQL on its connection. A prepared statement carries its
// query and parameters; a plain statement takes the SQL per call.
type Statement struct {
	conn     *Conn
	query    string
	prepared *sql.Stmt
	params   map[int]any
	closed   bool
}

func (s *Statement) IsPrepared() bool { return s.prepared != nil }

func (s *Statement) IsClosed() bool { return s.closed || s.conn.closed }

// Set binds a parameter of a prepared statement. A nil v binds NULL.
func (s *Statement) Set(pos int, v any) error {
	if s.IsClosed() {
		return ErrClosed
	}
	if s.prepared == nil {
		return ErrNotParams
	}
	if pos < 1 {
		return fmt.Errorf("sql: parameter index %d out of range", pos)
	}
	s.params[pos] = v
	return nil
}

// ClearParameters unbinds every parameter.
func (s *Statement) ClearParameters() {
	clear(s.params)
}

func (s *Statement) args() []any {
	n := 0
	for pos := range s.params {
		n = max(n, pos)
	}
	args := make([]any, n)
	for pos, v := range s.params {
		args[pos-1] = v
	}
	return args
}

// rows runs query, or the prepared query when query is empty.
func (s *Statement) rows(ctx context.Context, query string) (*sql.Rows, error) {
	if s.IsClosed() {
		return nil, ErrClosed
	}
	switch {
	case query != "":
		return s.conn.db.QueryContext(ctx, query)
	case s.prepared != nil:
		return s.prepared.QueryContext(ctx, s.args()...)
	}
	return nil, ErrNoQuery
}

// Execute runs the statement and reports whether it produced a result set.
func (s *Statement) Execute(ctx context.Context, query string) (bool, error) {
	rows, err := s.rows(ctx, query)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return false, err
	}
	for rows.Next() {
	}
	return len(cols) > 0, rows.Err()
}

// ExecuteQuery runs the statement and buffers every row.
func (s *Statement) ExecuteQuery(ctx context.Context, query string) (*ResultSet, error) {
	rows, err := s.rows(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return buffer(rows)
}

// ExecuteUpdate runs the statement and returns the number of affected rows.
func (s *Statement) ExecuteUpdate(ctx context.Context, query string) (int64, error) {
	if s.IsClosed() {
		return 0, ErrClosed
	}
	var (
		res sql.Result
		err error
	)
	switch {
	case query != "":
		res, err = s.conn.db.ExecContext(ctx, query)
	case s.prepared != nil:
		res, err = s.prepared.ExecContext(ctx, s.args()...)
	default:
		return 0, ErrNoQuery
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Statement) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	delete(s.conn.stmts, s)
	if s.prepared != nil {
		return s.prepared.Close()
	}
	return nil
}
