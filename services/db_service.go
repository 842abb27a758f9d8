package services

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	_ "github.com/lib/pq"
	mssql "github.com/microsoft/go-mssqldb"

	"sp-export/config"
	"sp-export/models"
)

// ProcedureName is the stored procedure every invocation exports.
const ProcedureName = "dbo.Dummy_sp"

const defaultConnectTimeout = 15 * time.Second

var procedureNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Opener acquires a database handle. OpenDB is the production implementation;
// tests substitute sqlmock.
type Opener func(ctx context.Context, cfg config.DBConfig) (*sql.DB, error)

// OpenDB opens and pings a connection for the configured driver.
func OpenDB(ctx context.Context, cfg config.DBConfig) (*sql.DB, error) {
	driverName, dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func buildDSN(cfg config.DBConfig) (driverName string, dsn string, err error) {
	if cfg.Server == "" {
		return "", "", errors.New("db server is required")
	}
	if cfg.User == "" {
		return "", "", errors.New("db user is required")
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort(cfg.Driver)
	}
	if port < 0 || port > 65535 {
		return "", "", errors.New("db port is invalid")
	}

	switch cfg.Driver {
	case config.DBDriverMSSQL, "":
		u := &url.URL{
			Scheme: "sqlserver",
			User:   url.UserPassword(cfg.User, cfg.Password),
			Host:   fmt.Sprintf("%s:%d", cfg.Server, port),
		}
		q := url.Values{}
		if cfg.Database != "" {
			q.Set("database", cfg.Database)
		}
		q.Set("encrypt", strconv.FormatBool(cfg.Encrypt))
		q.Set("TrustServerCertificate", strconv.FormatBool(cfg.TrustServerCertificate))
		if cfg.ConnectTimeout > 0 {
			q.Set("connection timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
		}
		u.RawQuery = q.Encode()
		return "sqlserver", u.String(), nil

	case config.DBDriverPostgres:
		sslmode := cfg.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			quoteConnValue(cfg.Server), port, quoteConnValue(cfg.User), quoteConnValue(cfg.Password),
			quoteConnValue(cfg.Database), sslmode)
		if cfg.ConnectTimeout > 0 {
			connStr += fmt.Sprintf(" connect_timeout=%d", int(cfg.ConnectTimeout.Seconds()))
		}
		return "postgres", connStr, nil

	default:
		return "", "", fmt.Errorf("unsupported driver: %q", cfg.Driver)
	}
}

func defaultPort(driver config.DBDriver) int {
	if driver == config.DBDriverPostgres {
		return 5432
	}
	return 1433
}

// quoteConnValue quotes a lib/pq key/value when it is empty or holds spaces,
// quotes or backslashes.
func quoteConnValue(v string) string {
	needsQuote := v == ""
	for _, r := range v {
		if r == ' ' || r == '\'' || r == '\\' {
			needsQuote = true
			break
		}
	}
	if !needsQuote {
		return v
	}
	out := make([]rune, 0, len(v)+2)
	out = append(out, '\'')
	for _, r := range v {
		if r == '\'' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	out = append(out, '\'')
	return string(out)
}

// ProcedureStatement returns the zero-argument call for the driver's dialect.
func ProcedureStatement(driver config.DBDriver, name string) (string, error) {
	if !procedureNameRe.MatchString(name) {
		return "", fmt.Errorf("invalid procedure name: %q", name)
	}
	switch driver {
	case config.DBDriverMSSQL, "":
		return "EXEC " + name, nil
	case config.DBDriverPostgres:
		return "SELECT * FROM " + name + "()", nil
	default:
		return "", fmt.Errorf("unsupported driver: %q", driver)
	}
}

// CallProcedure executes the procedure and loads its first result set into
// memory. Nothing is streamed.
func CallProcedure(ctx context.Context, db *sql.DB, driver config.DBDriver, name string) (models.ResultSet, error) {
	if db == nil {
		return models.ResultSet{}, errors.New("db connection is required")
	}

	stmt, err := ProcedureStatement(driver, name)
	if err != nil {
		return models.ResultSet{}, err
	}

	rows, err := db.QueryContext(ctx, stmt)
	if err != nil {
		return models.ResultSet{}, err
	}
	defer rows.Close()

	return collectResultSet(rows)
}

func collectResultSet(rows *sql.Rows) (models.ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return models.ResultSet{}, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return models.ResultSet{}, err
	}
	dbTypes := make([]string, len(cols))
	for i, ct := range types {
		if i < len(dbTypes) {
			dbTypes[i] = strings.ToUpper(ct.DatabaseTypeName())
		}
	}

	set := models.ResultSet{
		Columns: cols,
		Rows:    make([][]any, 0),
	}

	for rows.Next() {
		values := make([]any, len(cols))
		scanArgs := make([]any, len(cols))
		for i := range values {
			scanArgs[i] = &values[i]
		}

		if err := rows.Scan(scanArgs...); err != nil {
			return models.ResultSet{}, err
		}

		for i, v := range values {
			values[i] = convertValue(dbTypes[i], v)
		}
		set.Rows = append(set.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return models.ResultSet{}, err
	}

	return set, nil
}

// convertValue makes raw driver bytes readable in a cell. Bytes that are
// neither a known type nor UTF-8 text come out as 0x-prefixed hex.
func convertValue(dbType string, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}

	switch dbType {
	case "UNIQUEIDENTIFIER":
		var id mssql.UniqueIdentifier
		if err := id.Scan(b); err == nil {
			return id.String()
		}
	case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		if f, err := strconv.ParseFloat(string(b), 64); err == nil {
			return f
		}
		return string(b)
	case "BINARY", "VARBINARY", "IMAGE", "BYTEA":
		return hexBytes(b)
	}

	if utf8.Valid(b) {
		return string(b)
	}
	return hexBytes(b)
}

func hexBytes(b []byte) string {
	return "0x" + strings.ToUpper(hex.EncodeToString(b))
}
