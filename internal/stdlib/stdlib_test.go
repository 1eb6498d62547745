package stdlib_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebar/internal/environment"
	"rebar/internal/object"
	"rebar/internal/stdlib"
	"rebar/internal/value"
)

func newEnv(t *testing.T) *environment.Environment {
	t.Helper()
	env := environment.New()
	stdlib.Install(env)
	return env
}

func call(t *testing.T, env *environment.Environment, name string, args ...value.Value) value.Value {
	t.Helper()
	fn, ok := env.GetGlobal(name)
	require.True(t, ok, "global %q not registered", name)
	v, err := env.Call(fn, args)
	require.NoError(t, err)
	return v
}

func TestUUIDRoundTrip(t *testing.T) {
	env := newEnv(t)
	id := call(t, env, "uuid_v4")
	require.Equal(t, value.String, id.Tag)

	parsed := call(t, env, "uuid_parse", id)
	assert.Equal(t, env.StringBytes(id), env.StringBytes(parsed))
}

func TestUUIDParseRejectsGarbage(t *testing.T) {
	env := newEnv(t)
	fn, _ := env.GetGlobal("uuid_parse")
	_, err := env.Call(fn, []value.Value{env.Intern([]byte("not-a-uuid"))})
	require.Error(t, err)
	rerr, ok := err.(*environment.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, "TypeError", rerr.Type)
}

func TestBcryptHashAndVerify(t *testing.T) {
	env := newEnv(t)
	pw := env.Intern([]byte("correct horse battery staple"))
	hash := call(t, env, "bcrypt_hash", pw)

	ok := call(t, env, "bcrypt_verify", pw, hash)
	assert.True(t, ok.AsBool())

	wrong := env.Intern([]byte("wrong password"))
	ok = call(t, env, "bcrypt_verify", wrong, hash)
	assert.False(t, ok.AsBool())
}

func TestHumanizeBytes(t *testing.T) {
	env := newEnv(t)
	out := call(t, env, "humanize_bytes", value.MakeInt(2048))
	assert.Contains(t, string(env.StringBytes(out)), "kB")
}

// callMethod invokes a dot-method the way a method-call expression does:
// Select resolves the method off the receiver's v-table, then the
// receiver travels as the method's own first argument.
func callMethod(t *testing.T, env *environment.Environment, recv value.Value, method string, rest ...value.Value) value.Value {
	t.Helper()
	fn, err := object.Select(env, recv, method)
	require.NoError(t, err)
	require.Equal(t, value.Func, fn.Tag, "no method %q", method)
	v, err := env.Call(fn, append([]value.Value{recv}, rest...))
	require.NoError(t, err)
	return v
}

func TestStringMethods(t *testing.T) {
	env := newEnv(t)
	s := env.Intern([]byte("  Hello World  "))

	upper := callMethod(t, env, s, "upper")
	assert.Equal(t, "  HELLO WORLD  ", string(env.StringBytes(upper)))

	trimmed := callMethod(t, env, s, "trim")
	assert.Equal(t, "Hello World", string(env.StringBytes(trimmed)))

	contains := callMethod(t, env, trimmed, "contains", env.Intern([]byte("World")))
	assert.True(t, contains.AsBool())
}

func TestArrayMethods(t *testing.T) {
	env := newEnv(t)
	arr := env.NewArray([]value.Value{value.MakeInt(1), value.MakeInt(2)})

	pushed := callMethod(t, env, arr, "push", value.MakeInt(3))
	assert.Equal(t, 3, env.ArrayLen(pushed))

	popped := callMethod(t, env, arr, "pop")
	assert.Equal(t, int64(3), popped.AsInt())
	assert.Equal(t, 2, env.ArrayLen(arr))

	joined := callMethod(t, env, arr, "join", env.Intern([]byte(",")))
	assert.Equal(t, "1,2", string(env.StringBytes(joined)))
}

// TestDbSqliteRoundTrip exercises the Db native class end to end against
// an in-memory sqlite database, the one driver in driverNames that needs
// no external server.
func TestDbSqliteRoundTrip(t *testing.T) {
	env := newEnv(t)
	class, ok := env.GetGlobal("Db")
	require.True(t, ok)

	db, err := object.New(env, class, []value.Value{
		env.Intern([]byte("sqlite")),
		env.Intern([]byte(":memory:")),
	})
	require.NoError(t, err)
	require.Equal(t, value.NativeObject, db.Tag)

	_ = callMethod(t, env, db, "execute", env.Intern([]byte(
		"create table items (id integer, name text)")))
	_ = callMethod(t, env, db, "execute",
		env.Intern([]byte("insert into items (id, name) values (?, ?)")),
		value.MakeInt(1), env.Intern([]byte("widget")))

	rows := callMethod(t, env, db, "query", env.Intern([]byte("select id, name from items")))
	require.Equal(t, 1, env.ArrayLen(rows))

	row, ok := env.ArrayGet(rows, 0)
	require.True(t, ok)
	name, ok := env.TableGet(row, env.Intern([]byte("name")))
	require.True(t, ok)
	assert.Equal(t, "widget", string(env.StringBytes(name)))

	callMethod(t, env, db, "close")
}

// TestSocketEchoRoundTrip dials a Socket against an in-process echo
// server rather than relying on a `.rbr` fixture, since no stdlib
// surface lets a script itself listen for connections.
func TestSocketEchoRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for {
			kind, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(kind, msg); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	env := newEnv(t)
	class, ok := env.GetGlobal("Socket")
	require.True(t, ok)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	sock, err := object.New(env, class, []value.Value{env.Intern([]byte(url))})
	require.NoError(t, err)
	require.Equal(t, value.NativeObject, sock.Tag)

	_ = callMethod(t, env, sock, "send", env.Intern([]byte("ping")))
	reply := callMethod(t, env, sock, "receive", value.MakeInt(5))
	assert.Equal(t, "ping", string(env.StringBytes(reply)))

	callMethod(t, env, sock, "close")
}
