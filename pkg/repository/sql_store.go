package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/AccelByte/extend-mission-common/pkg/db"
	"github.com/AccelByte/extend-mission-common/pkg/domain"
	missionerrors "github.com/AccelByte/extend-mission-common/pkg/errors"

	"github.com/lib/pq" // PostgreSQL driver and array support
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// querier is the subset of *sql.DB and *sql.Tx used by the store.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements every store interface on top of database/sql.
// Queries are written with PostgreSQL placeholders and rebound for SQLite.
type SQLStore struct {
	db      *sql.DB
	q       querier
	tx      *sql.Tx
	dialect dialect
	now     func() time.Time
}

var (
	_ MissionProgressStore = (*SQLStore)(nil)
	_ MissionTemplateStore = (*SQLStore)(nil)
	_ LevelStore           = (*SQLStore)(nil)
	_ BadgeStore           = (*SQLStore)(nil)
	_ BadgeTxStore         = (*SQLTxStore)(nil)
)

// NewSQLStore creates a store for conn. driver is db.DriverPostgres or db.DriverSQLite.
func NewSQLStore(conn *sql.DB, driver string) (*SQLStore, error) {
	if conn == nil {
		return nil, fmt.Errorf("sql db is required")
	}
	if driver != db.DriverPostgres && driver != db.DriverSQLite {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	return &SQLStore{
		db:      conn,
		q:       conn,
		dialect: dialect{driver: driver},
		now:     time.Now,
	}, nil
}

// Driver returns the SQL dialect of the store.
func (s *SQLStore) Driver() string {
	return s.dialect.driver
}

// BeginTx starts a database transaction and returns a transactional store.
func (s *SQLStore) BeginTx(ctx context.Context) (BadgeTxStore, error) {
	if s.tx != nil {
		return nil, fmt.Errorf("nested transactions are not supported")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classifyError("begin transaction", err)
	}
	return &SQLTxStore{
		SQLStore: &SQLStore{
			db:      s.db,
			q:       tx,
			tx:      tx,
			dialect: s.dialect,
			now:     s.now,
		},
	}, nil
}

// withTx runs fn inside the store's transaction, or a new one if the store is not transactional.
func (s *SQLStore) withTx(ctx context.Context, operation string, fn func(q querier) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classifyError(operation, err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return classifyError(operation, err)
	}
	return nil
}

// SQLTxStore is a SQLStore bound to one transaction.
type SQLTxStore struct {
	*SQLStore
}

// GetBadgeCounterForUpdate retrieves a counter with SELECT ... FOR UPDATE on PostgreSQL.
// SQLite has no row locks; its single-connection pool serializes the whole transaction instead.
func (t *SQLTxStore) GetBadgeCounterForUpdate(ctx context.Context, userID string, key domain.BadgeKey) (*domain.BadgeCounter, error) {
	return t.getBadgeCounter(ctx, t.q, userID, key, true)
}

// Commit commits the transaction.
func (t *SQLTxStore) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return classifyError("commit transaction", err)
	}
	return nil
}

// Rollback rolls back the transaction.
func (t *SQLTxStore) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return classifyError("rollback transaction", err)
	}
	return nil
}

// dialect hides the differences between PostgreSQL and SQLite.
type dialect struct {
	driver string
}

// rebind rewrites $N placeholders to ?N for SQLite.
func (d dialect) rebind(query string) string {
	if d.driver != db.DriverSQLite {
		return query
	}
	return strings.ReplaceAll(query, "$", "?")
}

// forUpdate returns the row-locking suffix for a SELECT.
func (d dialect) forUpdate() string {
	if d.driver == db.DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// milestoneValue encodes an obtained set for writing.
func (d dialect) milestoneValue(values []int) (any, error) {
	if d.driver == db.DriverPostgres {
		out := make([]int64, len(values))
		for i, v := range values {
			out[i] = int64(v)
		}
		return pq.Array(out), nil
	}

	if values == nil {
		values = []int{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

// milestoneDest returns a scanner that decodes an obtained set into dst.
func (d dialect) milestoneDest(dst *[]int) sql.Scanner {
	return &milestoneColumn{driver: d.driver, dst: dst}
}

type milestoneColumn struct {
	driver string
	dst    *[]int
}

// Scan implements sql.Scanner.
func (m *milestoneColumn) Scan(src any) error {
	if m.driver == db.DriverPostgres {
		var arr pq.Int64Array
		if err := arr.Scan(src); err != nil {
			return err
		}
		out := make([]int, len(arr))
		for i, v := range arr {
			out[i] = int(v)
		}
		*m.dst = out
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case nil:
		*m.dst = []int{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported milestone column type %T", src)
	}

	out := []int{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("decode milestones: %w", err)
		}
	}
	*m.dst = out
	return nil
}

// placeholders returns "($n, $n+1, ...)" groups for a multi-row insert.
func placeholders(rows, cols int) string {
	var b strings.Builder
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// classifyError maps a driver error to STORE_UNAVAILABLE or DATABASE_ERROR.
func classifyError(operation string, err error) error {
	if err == nil {
		return nil
	}
	var me *missionerrors.MissionError
	if errors.As(err, &me) {
		return err
	}
	if isUnavailable(err) {
		return missionerrors.ErrStoreUnavailable(operation, err)
	}
	return missionerrors.ErrDatabaseError(operation, err)
}

// isUnavailable reports whether err means the store could not be reached,
// as opposed to a query the store rejected.
func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 08: connection exception, 57: operator intervention (e.g. admin shutdown)
		class := pqErr.Code.Class()
		return class == "08" || class == "57"
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED, sqlite3lib.SQLITE_CANTOPEN, sqlite3lib.SQLITE_IOERR:
			return true
		}
		return false
	}

	return strings.Contains(err.Error(), "sql: database is closed")
}
