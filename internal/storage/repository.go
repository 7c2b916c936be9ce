package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"dompet/internal/core"
	"dompet/internal/log"
)

// Dialect selects placeholder style, driver and migration set.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

const pingTimeout = 2 * time.Second

const (
	insertEntrySQL = `INSERT INTO entries (id, name, description, datetime, price, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	listEntriesSQL = `SELECT id, name, description, datetime, price, created_at, updated_at
FROM entries
ORDER BY datetime DESC, created_at DESC`
)

// SQLRepository stores entries in SQLite or PostgreSQL.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
	logger  *log.Logger
}

// NewSQLiteRepository opens (creating if needed) the SQLite file at dbPath and migrates it.
func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(DialectSQLite, dbPath)
}

// NewPostgresRepository connects to the database at dsn and migrates it.
func NewPostgresRepository(dsn string) (*SQLRepository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres: empty connection string")
	}
	return open(DialectPostgres, dsn)
}

func open(dialect Dialect, dsn string) (*SQLRepository, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// single writer; modernc serialises anyway and this avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return NewWithDB(db, dialect), nil
}

// NewWithDB wraps an already migrated connection pool.
func NewWithDB(db *sql.DB, dialect Dialect) *SQLRepository {
	return &SQLRepository{
		db:      db,
		dialect: dialect,
		now:     time.Now,
		logger:  log.WithComponent(log.ComponentStorage),
	}
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Create implements store.EntryWriter.
func (r *SQLRepository) Create(ctx context.Context, n core.NewEntry) (core.Entry, error) {
	e, err := n.Build(uuid.New(), r.now())
	if err != nil {
		return core.Entry{}, err
	}

	_, err = r.db.ExecContext(ctx, r.rebind(insertEntrySQL),
		e.ID.String(), e.Name, e.Description, e.Datetime, e.Price.String(), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return core.Entry{}, r.classify(ctx, "create entry", err)
	}

	r.logger.DebugContext(ctx, "Entry stored",
		log.FieldEntryID, e.ID.String(),
		log.FieldDialect, string(r.dialect))
	return e, nil
}

// ListAll implements store.EntryLister.
func (r *SQLRepository) ListAll(ctx context.Context) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, listEntriesSQL)
	if err != nil {
		return nil, r.classify(ctx, "list entries", err)
	}
	defer rows.Close()

	entries := make([]core.Entry, 0)
	for rows.Next() {
		var (
			e  core.Entry
			id string
		)
		if err := rows.Scan(&id, &e.Name, &e.Description, &e.Datetime, &e.Price, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("scan entry id %q: %w", id, err)
		}
		e.Datetime = e.Datetime.UTC()
		e.CreatedAt = e.CreatedAt.UTC()
		e.UpdatedAt = e.UpdatedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, r.classify(ctx, "iterate entries", err)
	}
	return entries, nil
}

// State pings the pool.
func (r *SQLRepository) State(ctx context.Context) core.StoreState {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := r.db.PingContext(ctx); err != nil {
		return core.StateDisconnected
	}
	return core.StateConnected
}

// classify wraps err, marking it ErrStoreUnavailable when the pool is unusable.
func (r *SQLRepository) classify(ctx context.Context, op string, err error) error {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) || r.State(ctx) == core.StateDisconnected {
		r.logger.WarnContext(ctx, "Store unavailable", log.FieldOperation, op, log.FieldError, err)
		return fmt.Errorf("%s: %w: %v", op, core.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// rebind converts ? placeholders to $n for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
