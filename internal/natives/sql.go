package natives

import (
	"go.uber.org/zap"

	"github.com/lunahost/luna/internal/core/handle"
	"github.com/lunahost/luna/internal/ext"
	"github.com/lunahost/luna/internal/ext/sqlext"
	"github.com/lunahost/luna/internal/value"
)

type connEntry struct {
	owner uint32
	conn  *sqlext.Conn
}

type stmtEntry struct {
	owner uint32
	conn  handle.ID
	stmt  *sqlext.Statement
}

type resultEntry struct {
	owner uint32
	rs    *sqlext.ResultSet
}

// sqlState maps script handles to SQL objects. Drivers are shared;
// connections, statements and result sets belong to the script that made
// them.
type sqlState struct {
	drivers   *handle.Table[*sqlext.Driver]
	driverIDs map[*sqlext.Driver]handle.ID
	conns     *handle.Table[connEntry]
	stmts     *handle.Table[stmtEntry]
	results   *handle.Table[resultEntry]
}

func newSQLState() *sqlState {
	return &sqlState{
		drivers:   handle.NewTable[*sqlext.Driver](),
		driverIDs: make(map[*sqlext.Driver]handle.ID),
		conns:     handle.NewTable[connEntry](),
		stmts:     handle.NewTable[stmtEntry](),
		results:   handle.NewTable[resultEntry](),
	}
}

func (s *sqlState) driverRef(d *sqlext.Driver) value.Ref {
	id, ok := s.driverIDs[d]
	if !ok {
		id = s.drivers.Insert(d)
		s.driverIDs[d] = id
	}
	return value.Ref{Kind: value.RefDriver, ID: id}
}

// disconnect closes a connection and forgets the statements made on it.
func (s *sqlState) disconnect(id handle.ID) bool {
	ce, ok := s.conns.Remove(id)
	if !ok {
		return false
	}
	s.stmts.Each(func(sid handle.ID, se stmtEntry) bool {
		if se.conn == id {
			s.stmts.Remove(sid)
		}
		return true
	})
	_ = ce.conn.Close()
	return true
}

// releaseOwner drops every handle owned by a script and returns how many
// were released.
func (s *sqlState) releaseOwner(owner uint32) int {
	n := 0
	s.results.Each(func(id handle.ID, re resultEntry) bool {
		if re.owner == owner {
			s.results.Remove(id)
			n++
		}
		return true
	})
	s.stmts.Each(func(id handle.ID, se stmtEntry) bool {
		if se.owner == owner {
			_ = se.stmt.Close()
			s.stmts.Remove(id)
			n++
		}
		return true
	})
	s.conns.Each(func(id handle.ID, ce connEntry) bool {
		if ce.owner == owner {
			n += 1 + s.countStmts(id)
			s.disconnect(id)
		}
		return true
	})
	return n
}

func (s *sqlState) countStmts(conn handle.ID) int {
	n := 0
	s.stmts.Each(func(_ handle.ID, se stmtEntry) bool {
		if se.conn == conn {
			n++
		}
		return true
	})
	return n
}

func (s *sqlState) releaseAll() {
	s.results.Clear()
	s.stmts.Each(func(_ handle.ID, se stmtEntry) bool {
		_ = se.stmt.Close()
		return true
	})
	s.stmts.Clear()
	s.conns.Each(func(_ handle.ID, ce connEntry) bool {
		_ = ce.conn.Close()
		return true
	})
	s.conns.Clear()
}

func (c *Call) driver(i int) (*sqlext.Driver, bool) {
	r, ok := c.Ref(i, value.RefDriver)
	if !ok {
		return nil, false
	}
	return c.sql.drivers.Get(r.ID)
}

func (c *Call) conn(i int) (handle.ID, *sqlext.Conn, bool) {
	r, ok := c.Ref(i, value.RefConnection)
	if !ok {
		return 0, nil, false
	}
	ce, ok := c.sql.conns.Get(r.ID)
	return r.ID, ce.conn, ok
}

func (c *Call) stmt(i int) (*sqlext.Statement, bool) {
	r, ok := c.Ref(i, value.RefStatement)
	if !ok {
		return nil, false
	}
	se, ok := c.sql.stmts.Get(r.ID)
	return se.stmt, ok
}

func (c *Call) resultSet(i int) (*sqlext.ResultSet, bool) {
	r, ok := c.Ref(i, value.RefResultSet)
	if !ok {
		return nil, false
	}
	re, ok := c.sql.results.Get(r.ID)
	return re.rs, ok
}

// sqlFailed logs a failed SQL call at debug and returns nil to the script.
func (c *Call) sqlFailed(op string, err error) []value.Value {
	c.log.Debug("sql call failed", zap.String("op", op), zap.Uint32("script", c.Inst.ID()), zap.Error(err))
	return nil
}

func onStmt(name string, rest []value.Kind, results int, fn func(c *Call, s *sqlext.Statement) []value.Value) Native {
	return Native{
		Name:    name,
		Params:  append([]value.Kind{kRef}, rest...),
		Results: results,
		Fn: func(c *Call) []value.Value {
			s, ok := c.stmt(0)
			if !ok {
				return nil
			}
			return fn(c, s)
		},
	}
}

func onResult(name string, rest []value.Kind, results int, fn func(c *Call, rs *sqlext.ResultSet) []value.Value) Native {
	return Native{
		Name:    name,
		Params:  append([]value.Kind{kRef}, rest...),
		Results: results,
		Fn: func(c *Call) []value.Value {
			rs, ok := c.resultSet(0)
			if !ok {
				return nil
			}
			return fn(c, rs)
		},
	}
}

func (e *Env) sqlNatives() []Native {
	n := []Native{
		// getSQLDriver takes an optional extension name and falls back to
		// the first SQL extension.
		{Name: "getSQLDriver", Params: params(kAny), Results: 1, Fn: func(c *Call) []value.Value {
			if c.deps.Exts == nil {
				return nil
			}
			var x *ext.Extension
			var ok bool
			if name := c.Arg(0); name.Kind() == value.KindString {
				x, ok = c.deps.Exts.Find(name.String())
			} else {
				x, ok = c.deps.Exts.FindType(ext.TypeSQL)
			}
			if !ok {
				return nil
			}
			d, ok := x.Impl().(*sqlext.Driver)
			if !ok {
				return nil
			}
			return ref(c.sql.driverRef(d))
		}},
		{Name: "getSQLDriverName", Params: params(kRef), Results: 1, Fn: func(c *Call) []value.Value {
			d, ok := c.driver(0)
			if !ok {
				return nil
			}
			return str(d.Name())
		}},
		{Name: "isSQLValidUrl", Params: params(kRef, kStr), Results: 1, Fn: func(c *Call) []value.Value {
			d, ok := c.driver(0)
			if !ok {
				return nil
			}
			return boolean(d.AcceptsURL(c.Arg(1).String()))
		}},
		{Name: "SQLConnect", Params: params(kRef, kStr, kStr, kStr), Results: 1, Fn: func(c *Call) []value.Value {
			d, ok := c.driver(0)
			if !ok {
				return nil
			}
			conn, err := d.Connect(c.ctx, c.Arg(1).String(), c.Arg(2).String(), c.Arg(3).String())
			if err != nil {
				return c.sqlFailed("connect", err)
			}
			id := c.sql.conns.Insert(connEntry{owner: c.Inst.ID(), conn: conn})
			return ref(value.Ref{Kind: value.RefConnection, ID: id})
		}},
		{Name: "SQLDisconnect", Params: params(kRef), Fn: func(c *Call) []value.Value {
			if id, _, ok := c.conn(0); ok {
				c.sql.disconnect(id)
			}
			return nil
		}},
		{Name: "SQLCreateStatement", Params: params(kRef), Results: 1, Fn: func(c *Call) []value.Value {
			id, conn, ok := c.conn(0)
			if !ok {
				return nil
			}
			s, err := conn.CreateStatement()
			if err != nil {
				return c.sqlFailed("create statement", err)
			}
			return c.newStmt(id, s)
		}},
		{Name: "SQLCreatePreparedStatement", Params: params(kRef, kStr), Results: 1, Fn: func(c *Call) []value.Value {
			id, conn, ok := c.conn(0)
			if !ok {
				return nil
			}
			s, err := conn.Prepare(c.ctx, c.Arg(1).String())
			if err != nil {
				return c.sqlFailed("prepare", err)
			}
			return c.newStmt(id, s)
		}},
		{Name: "SQLDestroyStatement", Params: params(kRef), Fn: func(c *Call) []value.Value {
			r, ok := c.Ref(0, value.RefStatement)
			if !ok {
				return nil
			}
			if se, ok := c.sql.stmts.Remove(r.ID); ok {
				_ = se.stmt.Close()
			}
			return nil
		}},
		onStmt("SQLStatementExecute", params(kAny), 1, func(c *Call, s *sqlext.Statement) []value.Value {
			hasRows, err := s.Execute(c.ctx, c.query())
			if err != nil {
				return c.sqlFailed("execute", err)
			}
			return boolean(hasRows)
		}),
		onStmt("SQLStatementExecuteQuery", params(kAny), 1, func(c *Call, s *sqlext.Statement) []value.Value {
			rs, err := s.ExecuteQuery(c.ctx, c.query())
			if err != nil {
				return c.sqlFailed("execute query", err)
			}
			id := c.sql.results.Insert(resultEntry{owner: c.Inst.ID(), rs: rs})
			return ref(value.Ref{Kind: value.RefResultSet, ID: id})
		}),
		onStmt("SQLStatementClose", nil, 0, func(c *Call, s *sqlext.Statement) []value.Value {
			_ = s.Close()
			return nil
		}),
		onStmt("SQLStatementIsClosed", nil, 1, func(c *Call, s *sqlext.Statement) []value.Value {
			return boolean(s.IsClosed())
		}),
		onStmt("SQLPreparedStatementSetBool", params(kInt, kAny), 0, func(c *Call, s *sqlext.Statement) []value.Value {
			return c.setParam(s, c.Truth(2))
		}),
		onStmt("SQLPreparedStatementSetNull", params(kInt), 0, func(c *Call, s *sqlext.Statement) []value.Value {
			return c.setParam(s, nil)
		}),
		onStmt("SQLPreparedStatementClearParameters", nil, 0, func(c *Call, s *sqlext.Statement) []value.Value {
			s.ClearParameters()
			return nil
		}),
		onResult("SQLResultSetNext", nil, 1, func(c *Call, rs *sqlext.ResultSet) []value.Value {
			return boolean(rs.Next())
		}),
		onResult("SQLResultPrevious", nil, 1, func(c *Call, rs *sqlext.ResultSet) []value.Value {
			return boolean(rs.Previous())
		}),
		onResult("SQLResultSetFirst", nil, 1, func(c *Call, rs *sqlext.ResultSet) []value.Value {
			return boolean(rs.First())
		}),
		onResult("SQLResultSetLast", nil, 1, func(c *Call, rs *sqlext.ResultSet) []value.Value {
			return boolean(rs.Last())
		}),
		onResult("SQLResultSetBeforeFirst", nil, 0, func(c *Call, rs *sqlext.ResultSet) []value.Value {
			rs.BeforeFirst()
			return nil
		}),
		onResult("SQLResultSetAfterLast", nil, 0, func(c *Call, rs *sqlext.ResultSet) []value.Value {
			rs.AfterLast()
			return nil
		}),
		onResult("SQLResultSetIsBeforeFirst", nil, 1, func(c *Call, rs *sqlext.ResultSet) []value.Value {
			return boolean(rs.IsBeforeFirst())
		}),
		onResult("SQLResultSetIsAfterLast", nil, 1, func(c *Call, rs *sqlext.ResultSet) []value.Value {
			return boolean(rs.IsAfterLast())
		}),
		onResult("SQLResultSetIsFirst", nil, 1, func(c *Call, rs *sqlext.ResultSet) []value.Value {
			return boolean(rs.IsFirst())
		}),
		onResult("SQLResultSetIsLast", nil, 1, func(c *Call, rs *sqlext.ResultSet) []value.Value {
			return boolean(rs.IsLast())
		}),
		onResult("SQLResultGetRow", nil, 1, func(c *Call, rs *sqlext.ResultSet) []value.Value {
			return integer(int64(rs.Row()))
		}),
		onResult("SQLResultSetFindColumn", params(kStr), 1, func(c *Call, rs *sqlext.ResultSet) []value.Value {
			return integer(int64(rs.FindColumn(c.Arg(1).String())))
		}),
		{Name: "SQLResultSetDestroy", Params: params(kRef), Fn: func(c *Call) []value.Value {
			if r, ok := c.Ref(0, value.RefResultSet); ok {
				c.sql.results.Remove(r.ID)
			}
			return nil
		}},
		{Name: "SQLMigrate", Params: params(kRef, kStr), Results: 1, Fn: func(c *Call) []value.Value {
			_, conn, ok := c.conn(0)
			if !ok {
				return nil
			}
			if err := conn.Migrate(c.ctx, c.Arg(1).String()); err != nil {
				return c.sqlFailed("migrate", err)
			}
			return boolean(true)
		}},
	}

	for _, large := range []bool{false, true} {
		name := "SQLStatementExecuteUpdate"
		if large {
			name += "Large"
		}
		n = append(n, onStmt(name, params(kAny), 1, func(c *Call, s *sqlext.Statement) []value.Value {
			rows, err := s.ExecuteUpdate(c.ctx, c.query())
			if err != nil {
				return c.sqlFailed("execute update", err)
			}
			return integer(rows)
		}))
	}

	// Setters narrow the script number to the column width first, the way a
	// C cast would.
	setters := []struct {
		name string
		kind value.Kind
		conv func(value.Value) any
	}{
		{"Byte", kInt, func(v value.Value) any { return int64(uint8(v.Int())) }},
		{"Short", kInt, func(v value.Value) any { return int64(int16(v.Int())) }},
		{"Int", kInt, func(v value.Value) any { return int64(int32(v.Int())) }},
		{"UInt", kInt, func(v value.Value) any { return int64(uint32(v.Int())) }},
		{"Long", kInt, func(v value.Value) any { return v.Int() }},
		{"UInt64", kInt, func(v value.Value) any { return uint64(v.Int()) }},
		{"Float", kNum, func(v value.Value) any { return float64(float32(v.Number())) }},
		{"Double", kNum, func(v value.Value) any { return v.Number() }},
		{"String", kStr, func(v value.Value) any { return v.String() }},
		{"BigInt", kStr, func(v value.Value) any { return v.String() }},
	}
	for _, st := range setters {
		conv := st.conv
		n = append(n, onStmt("SQLPreparedStatementSet"+st.name, params(kInt, st.kind), 0, func(c *Call, s *sqlext.Statement) []value.Value {
			return c.setParam(s, conv(c.Arg(2)))
		}))
	}

	getters := []struct {
		name string
		conv func(any) value.Value
	}{
		{"Bool", func(v any) value.Value { return value.FromBool(sqlext.AsBool(v)) }},
		{"Byte", func(v any) value.Value { return value.FromInt(int64(uint8(sqlext.AsInt64(v)))) }},
		{"Short", func(v any) value.Value { return value.FromInt(int64(int16(sqlext.AsInt64(v)))) }},
		{"Int", func(v any) value.Value { return value.FromInt(int64(int32(sqlext.AsInt64(v)))) }},
		{"UInt", func(v any) value.Value { return value.FromInt(int64(uint32(sqlext.AsInt64(v)))) }},
		{"Long", func(v any) value.Value { return value.FromInt(sqlext.AsInt64(v)) }},
		{"UInt64", func(v any) value.Value { return value.FromInt(sqlext.AsInt64(v)) }},
		{"String", func(v any) value.Value { return value.FromString(sqlext.AsString(v)) }},
		{"Float", func(v any) value.Value { return value.FromNumber(float64(float32(sqlext.AsFloat64(v)))) }},
		{"Double", func(v any) value.Value { return value.FromNumber(sqlext.AsFloat64(v)) }},
		{"IsNull", func(v any) value.Value { return value.FromBool(v == nil) }},
	}
	for _, g := range getters {
		prefix := "SQLResultSetGet" + g.name
		if g.name == "IsNull" {
			prefix = "SQLResultSetIsNull"
		}
		conv := g.conv
		n = append(n,
			onResult(prefix+"ById", params(kInt), 1, func(c *Call, rs *sqlext.ResultSet) []value.Value {
				v, err := rs.Value(int(c.Arg(1).Int()))
				if err != nil {
					return c.sqlFailed("get column", err)
				}
				return one(conv(v))
			}),
			onResult(prefix+"ByName", params(kStr), 1, func(c *Call, rs *sqlext.ResultSet) []value.Value {
				v, err := rs.ValueByName(c.Arg(1).String())
				if err != nil {
					return c.sqlFailed("get column", err)
				}
				return one(conv(v))
			}),
		)
	}
	return n
}

func (c *Call) newStmt(conn handle.ID, s *sqlext.Statement) []value.Value {
	id := c.sql.stmts.Insert(stmtEntry{owner: c.Inst.ID(), conn: conn, stmt: s})
	return ref(value.Ref{Kind: value.RefStatement, ID: id})
}

// query is the optional SQL text following a statement handle. Without it
// the prepared query runs.
func (c *Call) query() string {
	q := c.Arg(1)
	if q.IsNil() {
		return ""
	}
	return q.String()
}

func (c *Call) setParam(s *sqlext.Statement, v any) []value.Value {
	if err := s.Set(int(c.Arg(1).Int()), v); err != nil {
		return c.sqlFailed("set parameter", err)
	}
	return nil
}
