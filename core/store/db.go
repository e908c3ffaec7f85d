package store

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/apex/log"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"cryout/config"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

// DB wraps *sql.DB together with the driver it was opened with so that
// stores can rebind their placeholders. Queries are written with `?` and
// rewritten to $N for postgres.
type DB struct {
	*sql.DB
	driver string
}

func NewDB(cfg *config.AppConfig, logger log.Interface) (*DB, error) {
	driver := strings.TrimSpace(cfg.DBDriver)
	if driver == "" {
		driver = driverPostgres
	}
	switch driver {
	case driverPostgres:
		db, err := sql.Open("pgx", cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		if logger != nil {
			logger.Info("connected to postgres")
		}
		return &DB{DB: db, driver: driverPostgres}, nil
	case driverSQLite:
		if !isTestRuntime() {
			return nil, fmt.Errorf("sqlite driver is only supported under go test")
		}
		dsn := strings.TrimSpace(cfg.DBPath)
		if dsn == "" {
			return nil, fmt.Errorf("db_path is required for the sqlite driver")
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &DB{DB: db, driver: driverSQLite}, nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
}

// Rebind rewrites `?` placeholders to the $N form postgres expects. The
// sqlite test driver takes `?` as-is.
func (d *DB) Rebind(query string) string {
	if d.driver != driverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d *DB) IsPostgres() bool {
	return d.driver == driverPostgres
}

func isTestRuntime() bool {
	if flag.Lookup("test.v") != nil {
		return true
	}
	return strings.HasSuffix(os.Args[0], ".test") || strings.Contains(os.Args[0], "/_test/")
}
