package sqldb

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/errors"
	"github.com/ajitpratap0/launchpad/pkg/formats"
	"github.com/ajitpratap0/launchpad/pkg/logger"
)

// IfExists controls what WriteFrame does when the table already exists
type IfExists string

const (
	// Fail returns an error
	Fail IfExists = "fail"
	// Replace drops and recreates the table
	Replace IfExists = "replace"
	// Append inserts into the existing table
	Append IfExists = "append"
)

// ParseIfExists converts an option value into an IfExists, empty meaning Fail
func ParseIfExists(s string) (IfExists, error) {
	switch v := IfExists(strings.ToLower(s)); v {
	case "":
		return Fail, nil
	case Fail, Replace, Append:
		return v, nil
	}
	return "", errors.Newf(errors.ErrorTypeConfig, "invalid if_exists value '%s', expected fail, replace or append", s)
}

// DB is a connection pool with its dialect
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open opens a pool for the connection block of spec. No connection is made
// until the first query; Ping verifies connectivity.
func Open(spec core.Spec) (*DB, error) {
	if spec.DBMS == nil {
		return nil, errors.Newf(errors.ErrorTypeConfig, "connector '%s' has no dbms connection", spec.Name()).
			WithDetail("connector", spec.Name())
	}
	block := *spec.DBMS

	dialect, connStr, err := DialectFor(block)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid dbms connection").
			WithDetail("connection", block.Name)
	}

	user, password, err := block.Credentials()
	if err != nil {
		return nil, err
	}
	options, err := block.ConnectOptions()
	if err != nil {
		return nil, err
	}

	block.ConnectionString = connStr
	dsn, err := dialect.DSN(Conn{
		DBMSConfig: block,
		User:       user,
		Password:   password,
		Options:    options,
		BaseDir:    spec.BaseDir,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to build connection string").
			WithDetail("connection", block.Name)
	}

	pool, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create connection pool").
			WithDetail("connection", block.Name)
	}
	if dialect.Name == SQLite.Name {
		// sqlite allows a single writer
		pool.SetMaxOpenConns(1)
	} else {
		pool.SetConnMaxLifetime(30 * time.Minute)
	}

	logger.Debug("connection pool created",
		zap.String("connection", block.Name),
		zap.String("dialect", dialect.Name))

	return &DB{DB: pool, Dialect: dialect}, nil
}

// Ping verifies the database can be reached
func (db *DB) Ping(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to ping database").
			WithDetail("dialect", db.Dialect.Name)
	}
	return nil
}

// QueryFrame runs query with params bound to its ":name" parameters
func (db *DB) QueryFrame(ctx context.Context, query string, params core.Params) (*core.Frame, error) {
	bound, args, err := Bind(db.Dialect, query, params)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "failed to bind query parameters")
	}

	rows, err := db.QueryContext(ctx, bound, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to execute query")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read result columns")
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read result column types")
	}

	frame := core.NewFrame(columns...)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to scan row")
		}
		for i, v := range values {
			values[i] = normalize(v, types[i].DatabaseTypeName())
		}
		frame.Rows = append(frame.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "error iterating rows")
	}
	return frame, nil
}

// normalize converts driver values to the frame representation: int64,
// float64, bool, string or time.Time
func normalize(v interface{}, dbType string) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case []byte:
		return fromText(string(t), dbType)
	case string:
		return fromText(t, dbType)
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return int64(t) //nolint:gosec // values beyond int64 are not expected in model data
	case float32:
		return float64(t)
	default:
		return v
	}
}

// fromText parses numeric text returned by drivers for numeric column types
func fromText(s, dbType string) interface{} {
	typ := strings.ToUpper(dbType)
	switch {
	case strings.Contains(typ, "INT"):
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case strings.Contains(typ, "DECIMAL"), strings.Contains(typ, "NUMERIC"), strings.Contains(typ, "NUMBER"),
		strings.Contains(typ, "FLOAT"), strings.Contains(typ, "DOUBLE"), strings.Contains(typ, "REAL"):
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n
		}
	}
	return s
}

// columnType returns the DDL type for a frame field
func columnType(typ core.FieldType) string {
	switch typ {
	case core.FieldTypeInt:
		return "BIGINT"
	case core.FieldTypeFloat:
		return "DOUBLE PRECISION"
	case core.FieldTypeBool:
		return "BOOLEAN"
	case core.FieldTypeTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// TableExists reports whether table can be selected from
func (db *DB) TableExists(ctx context.Context, table string) bool {
	rows, err := db.QueryContext(ctx, "SELECT 1 FROM "+db.Dialect.QuoteIdent(table)+" WHERE 1=0")
	if err != nil {
		return false
	}
	_ = rows.Close()
	return true
}

// WriteFrame stores frame in table within a single transaction
func (db *DB) WriteFrame(ctx context.Context, table string, frame *core.Frame, mode IfExists) error {
	exists := db.TableExists(ctx, table)
	if exists && mode == Fail {
		return errors.Newf(errors.ErrorTypeValidation, "table '%s' already exists", table).
			WithDetail("table", table)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	quoted := db.Dialect.QuoteIdent(table)
	if exists && mode == Replace {
		if _, err := tx.ExecContext(ctx, "DROP TABLE "+quoted); err != nil {
			return errors.Wrap(err, errors.ErrorTypeQuery, "failed to drop table").WithDetail("table", table)
		}
		exists = false
	}

	fields := formats.Fields(frame)
	if !exists {
		defs := make([]string, len(fields))
		for i, f := range fields {
			defs[i] = db.Dialect.QuoteIdent(f.Name) + " " + columnType(f.Type)
		}
		ddl := "CREATE TABLE " + quoted + " (" + strings.Join(defs, ", ") + ")"
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return errors.Wrap(err, errors.ErrorTypeQuery, "failed to create table").WithDetail("table", table)
		}
	}

	if frame.Len() > 0 {
		cols := make([]string, len(frame.Columns))
		marks := make([]string, len(frame.Columns))
		for i, c := range frame.Columns {
			cols[i] = db.Dialect.QuoteIdent(c)
			marks[i] = db.Dialect.Placeholder(i + 1)
		}
		insert := "INSERT INTO " + quoted + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"

		stmt, err := tx.PrepareContext(ctx, insert)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeQuery, "failed to prepare insert").WithDetail("table", table)
		}
		defer stmt.Close()

		for r, row := range frame.Rows {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return errors.Wrap(err, errors.ErrorTypeQuery, "failed to insert row").
					WithDetail("table", table).
					WithDetail("row", r+1)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to commit").WithDetail("table", table)
	}
	return nil
}
