package capability

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"boruna/internal/value"
)

// DBHandler backs the DbQuery capability with a real SQL connection,
// selecting between the sqlite3 (embedded, zero-config default) and mysql
// drivers — grounded on internal/svc/sqlite/sqlite_service.go and
// internal/svc/mysql/mysql_service.go, collapsed from their
// actor-message-passing shape into a direct capability handler.
type DBHandler struct {
	db *sql.DB
}

// NewDBHandler opens (and pings) a connection for driver/dsn. driver must
// be "sqlite3" or "mysql".
func NewDBHandler(driver, dsn string) (*DBHandler, error) {
	if driver != "sqlite3" && driver != "mysql" {
		return nil, fmt.Errorf("capability: unsupported db driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("capability: opening %s: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("capability: pinging %s: %w", driver, err)
	}
	return &DBHandler{db: db}, nil
}

func (h *DBHandler) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}

// Query runs args[0] (a SQL statement) with the params in args[1] (a List,
// optional), and returns a List of Records — one per result row, fields in
// column order — or, for statements with no rows, an empty List.
func (h *DBHandler) Query(args []value.Value) (value.Value, error) {
	if h == nil || h.db == nil {
		return value.Value{}, fmt.Errorf("db.query: capability not configured")
	}
	if len(args) == 0 {
		return value.Value{}, fmt.Errorf("db.query: want [sql, params?], got 0 args")
	}
	stmt := args[0].String
	var params []any
	if len(args) >= 2 && args[1].Kind == value.KindList {
		for _, p := range args[1].List {
			params = append(params, valueToSQL(p))
		}
	}

	rows, err := h.db.Query(stmt, params...)
	if err != nil {
		return value.Value{}, fmt.Errorf("db.query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return value.Value{}, fmt.Errorf("db.query: columns: %w", err)
	}

	var out []value.Value
	for rows.Next() {
		scan := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range scan {
			ptrs[i] = &scan[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return value.Value{}, fmt.Errorf("db.query: scan: %w", err)
		}
		fields := make([]value.Value, len(cols))
		for i, v := range scan {
			fields[i] = sqlToValue(v)
		}
		out = append(out, value.Record(value.AnonListRecordTypeID, fields))
	}
	return value.List(out), rows.Err()
}

func valueToSQL(v value.Value) any {
	switch v.Kind {
	case value.KindInt:
		return v.Int
	case value.KindFloat:
		return v.Float
	case value.KindString:
		return v.String
	case value.KindBool:
		return v.Bool
	default:
		return v.Inspect()
	}
}

func sqlToValue(v any) value.Value {
	switch t := v.(type) {
	case nil:
		return value.None()
	case int64:
		return value.Int(t)
	case float64:
		return value.Float(t)
	case bool:
		return value.Bool(t)
	case []byte:
		return value.Str(string(t))
	case string:
		return value.Str(t)
	default:
		return value.Str(fmt.Sprintf("%v", t))
	}
}
