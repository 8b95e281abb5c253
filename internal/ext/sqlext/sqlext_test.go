package sqlext

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lunahost/luna/internal/ext"
)

func memConn(t *testing.T) (*Driver, *Conn) {
	t.Helper()
	d := NewDriver(zap.NewNop())
	c, err := d.Connect(context.Background(), "sqlite://:memory:", "", "")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return d, c
}

func seed(t *testing.T, c *Conn) {
	t.Helper()
	ctx := context.Background()
	st, err := c.CreateStatement()
	require.NoError(t, err)
	_, err = st.ExecuteUpdate(ctx, `CREATE TABLE players (id INTEGER PRIMARY KEY, name TEXT, score REAL, admin INTEGER, note TEXT)`)
	require.NoError(t, err)
	n, err := st.ExecuteUpdate(ctx, `INSERT INTO players (id, name, score, admin, note) VALUES
		(1, 'ann', 1.5, 1, NULL), (2, 'bob', 2.5, 0, 'x'), (3, 'cid', 3.5, 0, NULL)`)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestDSN(t *testing.T) {
	tests := []struct {
		url     string
		dialect Dialect
		want    string
	}{
		{"sqlite://:memory:", DialectSQLite, ":memory:"},
		{"sqlite:///var/lib/luna.db", DialectSQLite, "/var/lib/luna.db"},
		{"postgres://u:p@db:5432/luna?sslmode=disable", DialectPostgres, "postgres://u:p@db:5432/luna?sslmode=disable"},
		{"mariadb://u:p@db:3306/luna", DialectMySQL, "u:p@tcp(db:3306)/luna"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			d, src, err := dsn(tt.url, "", "")
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, d)
			assert.Contains(t, src, tt.want)
		})
	}

	_, src, err := dsn("postgres://db/luna", "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "postgres://admin:secret@db/luna", src)

	for _, bad := range []string{"", "luna.db", "oracle://db", "sqlite://"} {
		_, _, err := dsn(bad, "", "")
		assert.ErrorIs(t, err, ErrBadURL, bad)
	}
}

func TestDriver_AcceptsURL(t *testing.T) {
	d := NewDriver(zap.NewNop())
	assert.True(t, d.AcceptsURL("mysql://localhost/luna"))
	assert.True(t, d.AcceptsURL("sqlite://:memory:"))
	assert.False(t, d.AcceptsURL("http://example.org"))
}

func TestResultSet_Scrolling(t *testing.T) {
	_, c := memConn(t)
	seed(t, c)
	st, err := c.CreateStatement()
	require.NoError(t, err)

	rs, err := st.ExecuteQuery(context.Background(), `SELECT id, name, score, admin, note FROM players ORDER BY id`)
	require.NoError(t, err)
	require.Equal(t, 3, rs.Len())

	assert.True(t, rs.IsBeforeFirst())
	assert.Equal(t, 0, rs.Row())
	_, err = rs.Value(1)
	assert.ErrorIs(t, err, ErrNoRow)

	require.True(t, rs.Next())
	v, err := rs.ValueByName("NAME")
	require.NoError(t, err)
	assert.Equal(t, "ann", AsString(v))
	v, _ = rs.Value(5)
	assert.Nil(t, v)

	require.True(t, rs.Last())
	assert.Equal(t, 3, rs.Row())
	assert.True(t, rs.IsLast())
	assert.False(t, rs.IsFirst())
	assert.False(t, rs.Next())
	assert.True(t, rs.IsAfterLast())
	assert.True(t, rs.Previous())
	assert.Equal(t, 3, rs.Row())

	require.True(t, rs.First())
	assert.True(t, rs.IsFirst())
	assert.False(t, rs.IsLast())
	assert.False(t, rs.Previous())
	assert.Equal(t, 0, rs.Row())

	rs.AfterLast()
	assert.Equal(t, 0, rs.Row())
	assert.True(t, rs.Previous())
	v, _ = rs.Value(3)
	assert.Equal(t, 3.5, AsFloat64(v))

	assert.Equal(t, 2, rs.FindColumn("name"))
	assert.Equal(t, 0, rs.FindColumn("missing"))
	_, err = rs.ValueByName("missing")
	assert.ErrorIs(t, err, ErrNoColumn)
}

func TestPreparedStatement(t *testing.T) {
	_, c := memConn(t)
	seed(t, c)
	ctx := context.Background()

	ins, err := c.Prepare(ctx, `INSERT INTO players (id, name, score, admin, note) VALUES (?, ?, ?, ?, ?)`)
	require.NoError(t, err)
	require.NoError(t, ins.Set(1, int64(4)))
	require.NoError(t, ins.Set(2, "dee"))
	require.NoError(t, ins.Set(3, 4.5))
	require.NoError(t, ins.Set(4, true))
	require.NoError(t, ins.Set(5, nil))
	n, err := ins.ExecuteUpdate(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sel, err := c.Prepare(ctx, `SELECT name, admin FROM players WHERE score > ? ORDER BY id`)
	require.NoError(t, err)
	require.NoError(t, sel.Set(1, 3.0))
	rs, err := sel.ExecuteQuery(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 2, rs.Len())
	rs.Last()
	name, _ := rs.ValueByName("name")
	admin, _ := rs.ValueByName("admin")
	assert.Equal(t, "dee", AsString(name))
	assert.True(t, AsBool(admin))

	sel.ClearParameters()
	_, err = sel.ExecuteQuery(ctx, "")
	assert.Error(t, err, "cleared statement is missing its argument")

	plain, err := c.CreateStatement()
	require.NoError(t, err)
	assert.ErrorIs(t, plain.Set(1, 1), ErrNotParams)
	_, err = plain.ExecuteQuery(ctx, "")
	assert.ErrorIs(t, err, ErrNoQuery)
}

func TestExecute_ReportsResultSet(t *testing.T) {
	_, c := memConn(t)
	seed(t, c)
	st, err := c.CreateStatement()
	require.NoError(t, err)
	ctx := context.Background()

	isQuery, err := st.Execute(ctx, `SELECT 1`)
	require.NoError(t, err)
	assert.True(t, isQuery)

	isQuery, err = st.Execute(ctx, `UPDATE players SET score = 0 WHERE id = 1`)
	require.NoError(t, err)
	assert.False(t, isQuery)
}

func TestConn_CloseClosesStatements(t *testing.T) {
	d, c := memConn(t)
	st, err := c.CreateStatement()
	require.NoError(t, err)
	assert.Equal(t, 1, d.Len())

	require.NoError(t, c.Close())
	assert.True(t, st.IsClosed())
	assert.Equal(t, 0, d.Len())
	_, err = st.ExecuteQuery(context.Background(), `SELECT 1`)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.CreateStatement()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMigrate(t *testing.T) {
	_, c := memConn(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "00001_bans.sql"), []byte(`-- +goose Up
CREATE TABLE bans (steam_id TEXT PRIMARY KEY, reason TEXT);

-- +goose Down
DROP TABLE bans;
`), 0o644))

	ctx := context.Background()
	require.NoError(t, c.Migrate(ctx, dir))
	st, _ := c.CreateStatement()
	n, err := st.ExecuteUpdate(ctx, `INSERT INTO bans VALUES ('STEAM_0:1', 'aimbot')`)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, c.Migrate(ctx, dir), "applied migrations are skipped")
}

func TestConversions(t *testing.T) {
	assert.Equal(t, int64(42), AsInt64("42"))
	assert.Equal(t, int64(3), AsInt64([]byte("3.9")))
	assert.Equal(t, int64(0), AsInt64(nil))
	assert.Equal(t, 2.5, AsFloat64("2.5"))
	assert.Equal(t, "7", AsString(int64(7)))
	assert.True(t, AsBool("true"))
	assert.True(t, AsBool(int64(1)))
	assert.False(t, AsBool(nil))
}

func TestModule(t *testing.T) {
	o := ext.NewStaticOpener()
	o.Register("sql", Module())
	m := ext.NewManager(o, zap.NewNop())
	_, err := m.Load("sql")
	require.NoError(t, err)
	m.Init()

	d, ok := ext.Impl[*Driver](m, Name)
	require.True(t, ok)
	_, err = d.Connect(context.Background(), "sqlite://:memory:", "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, d.Len())

	m.Shutdown()
	assert.Equal(t, 0, d.Len())
}
