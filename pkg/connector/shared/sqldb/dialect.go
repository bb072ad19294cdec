// Package sqldb holds the database/sql plumbing shared by the dbms datasources
// and datasinks: dialects and DSNs, ":name" parameter binding, scanning result
// sets into frames and writing frames into tables.
package sqldb

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/snowflakedb/gosnowflake"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/connector/base"
)

// Dialect describes how to talk to one database family
type Dialect struct {
	// Name is the dbms block type, e.g. "postgres"
	Name string
	// Driver is the database/sql driver name
	Driver string
	// numbered placeholders ($1, $2) instead of "?"
	numbered bool
	// quote is the identifier quote character
	quote string
	// dsn builds the data source name from a connection block without connection_string
	dsn func(conn Conn) (string, error)
}

// Conn is everything needed to build a DSN
type Conn struct {
	config.DBMSConfig
	User     string
	Password string
	// Options are the connection options with "_var" keys resolved
	Options map[string]string
	// BaseDir resolves relative sqlite paths
	BaseDir string
}

// Placeholder returns the bind placeholder for the n-th (1-based) distinct parameter
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Numbered reports whether placeholders refer to parameters by position number
func (d Dialect) Numbered() bool {
	return d.numbered
}

// QuoteIdent quotes a possibly schema-qualified identifier such as "public.scores"
func (d Dialect) QuoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.quote + strings.ReplaceAll(p, d.quote, d.quote+d.quote) + d.quote
	}
	return strings.Join(parts, ".")
}

// DSN returns the data source name for conn. A connection_string is used as
// it is; otherwise the DSN is assembled from host, port, database and the
// credentials.
func (d Dialect) DSN(conn Conn) (string, error) {
	if conn.ConnectionString != "" {
		return conn.ConnectionString, nil
	}
	return d.dsn(conn)
}

var (
	// Postgres talks to PostgreSQL through pgx
	Postgres = Dialect{Name: "postgres", Driver: "pgx", numbered: true, quote: `"`, dsn: postgresDSN}
	// MySQL talks to MySQL and MariaDB
	MySQL = Dialect{Name: "mysql", Driver: "mysql", quote: "`", dsn: mysqlDSN}
	// SQLite talks to SQLite database files
	SQLite = Dialect{Name: "sqlite", Driver: "sqlite", quote: `"`, dsn: sqliteDSN}
	// Snowflake talks to Snowflake
	Snowflake = Dialect{Name: "snowflake", Driver: "snowflake", quote: `"`, dsn: snowflakeDSN}
)

var dialects = map[string]Dialect{
	"postgres":   Postgres,
	"postgresql": Postgres,
	"mysql":      MySQL,
	"sqlite":     SQLite,
	"snowflake":  Snowflake,
}

// Types lists the dbms block types served by this package, including the
// generic "sql" type whose connection_string scheme selects the dialect
func Types() []string {
	return []string{"sql", "postgres", "mysql", "sqlite", "snowflake"}
}

// DialectFor returns the dialect of a connection block. For the generic "sql"
// type the scheme of connection_string selects the dialect, and the returned
// connection string has the scheme removed where the driver expects that.
func DialectFor(db config.DBMSConfig) (Dialect, string, error) {
	if db.Type != "sql" {
		d, ok := dialects[db.Type]
		if !ok {
			return Dialect{}, "", fmt.Errorf("unsupported dbms type '%s'", db.Type)
		}
		return d, db.ConnectionString, nil
	}

	scheme, rest, ok := strings.Cut(db.ConnectionString, "://")
	if !ok {
		return Dialect{}, "", fmt.Errorf("dbms type 'sql' requires a connection_string of the form <dialect>://...")
	}
	d, ok := dialects[strings.ToLower(scheme)]
	if !ok {
		return Dialect{}, "", fmt.Errorf("unsupported connection_string dialect '%s'", scheme)
	}
	if d.Name == Postgres.Name {
		return d, db.ConnectionString, nil
	}
	return d, rest, nil
}

func hostPort(conn Conn, defaultPort int) string {
	host := conn.Host
	if host == "" {
		host = "localhost"
	}
	port := conn.Port
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func postgresDSN(conn Conn) (string, error) {
	u := url.URL{
		Scheme: "postgres",
		Host:   hostPort(conn, 5432),
		Path:   "/" + conn.Database,
	}
	if conn.User != "" {
		u.User = url.UserPassword(conn.User, conn.Password)
	}
	q := url.Values{}
	for k, v := range conn.Options {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func mysqlDSN(conn Conn) (string, error) {
	cfg := mysql.NewConfig()
	cfg.User = conn.User
	cfg.Passwd = conn.Password
	cfg.Net = "tcp"
	cfg.Addr = hostPort(conn, 3306)
	cfg.DBName = conn.Database
	cfg.ParseTime = true
	if len(conn.Options) > 0 {
		cfg.Params = make(map[string]string, len(conn.Options))
		for k, v := range conn.Options {
			cfg.Params[k] = v
		}
	}
	return cfg.FormatDSN(), nil
}

func sqliteDSN(conn Conn) (string, error) {
	if conn.Database == "" {
		return "", fmt.Errorf("sqlite connection '%s' requires 'database' or 'connection_string'", conn.Name)
	}
	path := conn.Database
	if path != ":memory:" {
		path = base.ResolvePath(conn.BaseDir, path)
	}
	if len(conn.Options) == 0 {
		return path, nil
	}
	keys := make([]string, 0, len(conn.Options))
	for k := range conn.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	q := url.Values{}
	for _, k := range keys {
		q.Add(k, conn.Options[k])
	}
	return path + "?" + q.Encode(), nil
}

func snowflakeDSN(conn Conn) (string, error) {
	account := conn.Options["account"]
	if account == "" {
		account = conn.Host
	}
	cfg := &gosnowflake.Config{
		Account:   account,
		User:      conn.User,
		Password:  conn.Password,
		Database:  conn.Database,
		Schema:    conn.Options["schema"],
		Warehouse: conn.Options["warehouse"],
		Role:      conn.Options["role"],
	}
	return gosnowflake.DSN(cfg)
}
