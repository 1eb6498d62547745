package stdlib

import (
	"database/sql"
	"fmt"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"rebar/internal/environment"
	"rebar/internal/object"
	"rebar/internal/value"
)

// dbConn is the payload behind every "Db" instance: a single pooled
// connection handle, closed by the native-object destructor (§4.3) if the
// script never calls .close() itself.
type dbConn struct {
	db *sql.DB
}

// driverNames maps the engine-level driver identifier a script passes to
// `new Db(driver, dsn)` onto the database/sql driver name each blank
// import above registers.
var driverNames = map[string]string{
	"sqlite":   "sqlite",
	"mysql":    "mysql",
	"postgres": "postgres",
	"mssql":    "sqlserver",
}

func installDb(env *environment.Environment) {
	instanceVT := &object.VTable{
		Name:    "Db",
		Methods: map[string]value.Value{},
		Destructor: func(payload interface{}) {
			if c, ok := payload.(*dbConn); ok {
				c.db.Close()
			}
		},
	}
	instanceVT.Methods["query"] = env.Bind(dbQuery, "Db.query")
	instanceVT.Methods["execute"] = env.Bind(dbExecute, "Db.execute")
	instanceVT.Methods["close"] = env.Bind(dbClose, "Db.close")
	env.RegisterNativeClass("Db", instanceVT)

	classVT := &object.VTable{
		Name: "DbClass",
		Ops: object.OperatorSlots{
			New: func(h object.Host, self value.Value, cargs []value.Value) (value.Value, error) {
				if len(cargs) != 2 {
					h.Throw("TypeError", h.Intern([]byte("Db(driver, dsn) expects 2 arguments")))
				}
				driver := string(h.StringBytes(cargs[0]))
				dsn := string(h.StringBytes(cargs[1]))
				sqlDriver, ok := driverNames[driver]
				if !ok {
					h.Throw("ValueError", h.Intern([]byte("unknown database driver: "+driver)))
				}
				db, err := sql.Open(sqlDriver, dsn)
				if err != nil {
					h.Throw("RuntimeError", h.Intern([]byte(err.Error())))
				}
				if err := db.Ping(); err != nil {
					h.Throw("RuntimeError", h.Intern([]byte(err.Error())))
				}
				return h.NewNativeObject(instanceVT, &dbConn{db: db}), nil
			},
		},
	}
	env.SetGlobal("Db", env.NewNativeObject(classVT, nil))
}

func dbSelf(env *environment.Environment, a []value.Value) *dbConn {
	no := env.NativeObjectOf(a[0])
	if no == nil {
		argError(env, "Db method called on a non-Db receiver")
	}
	c, ok := no.Payload.(*dbConn)
	if !ok {
		argError(env, "Db method called on a closed or invalid connection")
	}
	return c
}

// dbQuery runs self.query(sql, ...params) and returns an array of row
// tables, column name to value.
func dbQuery(ret *value.Value, env *environment.Environment) {
	a := args(env)
	if len(a) < 2 {
		argError(env, "query(sql, ...) expects at least the statement")
	}
	c := dbSelf(env, a)
	stmt := argString(env, a, 1)
	params := sqlParams(env, a[2:])

	rows, err := c.db.Query(stmt, params...)
	if err != nil {
		argError(env, "query failed: %v", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		argError(env, "query failed: %v", err)
	}

	var out []value.Value
	scanBuf := make([]interface{}, len(cols))
	scanPtrs := make([]interface{}, len(cols))
	for i := range scanBuf {
		scanPtrs[i] = &scanBuf[i]
	}
	for rows.Next() {
		if err := rows.Scan(scanPtrs...); err != nil {
			argError(env, "query failed: %v", err)
		}
		row := env.NewTable()
		for i, col := range cols {
			env.TableSet(row, env.Intern([]byte(col)), sqlToValue(env, scanBuf[i]))
		}
		out = append(out, row)
	}
	*ret = env.NewArray(out)
}

// dbExecute runs a non-query statement and returns the affected row count.
func dbExecute(ret *value.Value, env *environment.Environment) {
	a := args(env)
	if len(a) < 2 {
		argError(env, "execute(sql, ...) expects at least the statement")
	}
	c := dbSelf(env, a)
	stmt := argString(env, a, 1)
	params := sqlParams(env, a[2:])

	res, err := c.db.Exec(stmt, params...)
	if err != nil {
		argError(env, "execute failed: %v", err)
	}
	n, _ := res.RowsAffected()
	*ret = value.MakeInt(n)
}

func dbClose(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 1)
	c := dbSelf(env, a)
	c.db.Close()
	*ret = value.Nil
}

// sqlParams converts script-level arguments into the plain Go types
// database/sql's driver layer accepts, since a value.Value handle means
// nothing outside the engine's own heap.
func sqlParams(env *environment.Environment, vs []value.Value) []interface{} {
	out := make([]interface{}, len(vs))
	for i, v := range vs {
		switch v.Tag {
		case value.Null:
			out[i] = nil
		case value.Bool:
			out[i] = v.AsBool()
		case value.Int:
			out[i] = v.AsInt()
		case value.Number:
			out[i] = v.AsNumber()
		case value.String:
			out[i] = string(env.StringBytes(v))
		default:
			argError(env, "argument %d cannot be passed to a database driver", i+2)
		}
	}
	return out
}

func sqlToValue(env *environment.Environment, v interface{}) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Nil
	case int64:
		return value.MakeInt(t)
	case float64:
		return value.MakeNumber(t)
	case bool:
		return value.MakeBool(t)
	case []byte:
		return env.Intern(t)
	case string:
		return env.Intern([]byte(t))
	default:
		return env.Intern([]byte(fmt.Sprint(t)))
	}
}
