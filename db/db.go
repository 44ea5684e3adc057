package db

//nolint:golint,revive
import (
	"context"
	"database/sql"
	"database/sql/driver"
	"embed"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/omni/tokenbridge-antelope/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Queryer is implemented by both DB and Tx, so repositories work the same
// inside and outside of a transaction.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type DB struct {
	cfg *config.DBConfig
	db  *sqlx.DB
}

func (db *DB) Migrate() error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("can't open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, db.dbURL("pgx"))
	if err != nil {
		return fmt.Errorf("can't connect to postgres database: %w", err)
	}
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("can't apply postgres database migrations: %w", err)
	}
	return nil
}

func (db *DB) dbURL(prefix string) string {
	return fmt.Sprintf("%s://%s:%s@%s:%d/%s", prefix, db.cfg.User, db.cfg.Password, db.cfg.Host, db.cfg.Port, db.cfg.DB)
}

// NewDB connects with the pgx driver, or with lib/pq when driver is
// "postgres".
func NewDB(cfg *config.DBConfig) (*DB, error) {
	db := &DB{
		cfg: cfg,
	}
	driver := cfg.Driver
	if driver == "" {
		driver = "pgx"
	}
	conn, err := sqlx.ConnectContext(context.Background(), driver, db.dbURL("postgres"))
	if err != nil {
		return nil, fmt.Errorf("can't connect to postgres database (%s): %w", driver, err)
	}
	conn.SetMaxIdleConns(3)
	conn.SetMaxOpenConns(10)
	db.db = conn
	return db, nil
}

func ConnectToDBAndMigrate(cfg *config.DBConfig) (*DB, error) {
	db, err := NewDB(cfg)
	if err != nil {
		return nil, err
	}
	err = db.Migrate()
	if err != nil {
		return nil, err
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	defer ObserveDuration(getCurrentFuncName(2))()
	return db.db.ExecContext(ctx, query, args...)
}

func (db *DB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	defer ObserveDuration(getCurrentFuncName(2))()
	return notFound(db.db.GetContext(ctx, dest, query, args...))
}

func (db *DB) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	defer ObserveDuration(getCurrentFuncName(2))()
	return db.db.SelectContext(ctx, dest, query, args...)
}

// RunInTx runs fn in a serializable transaction, committed when fn returns
// nil and rolled back otherwise. Serialization failures are reported as
// ErrConcurrentUpdate and are not retried: fn may already have had effects
// outside the database.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, q Queryer) error) error {
	return runTx(ctx, db.db, fn)
}

// RunInLockedTx is RunInTx holding the session level advisory lock key from
// before the transaction begins until after it ends. Callers sharing a key
// never run concurrently, also across processes, so their snapshots always
// include what the previous holder committed.
func (db *DB) RunInLockedTx(ctx context.Context, key int64, fn func(ctx context.Context, q Queryer) error) error {
	conn, err := db.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("can't acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err = conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", key); err != nil {
		return fmt.Errorf("can't acquire advisory lock %d: %w", key, err)
	}
	defer func() {
		if _, unlockErr := conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", key); unlockErr != nil {
			// the lock goes away with the session, drop the connection
			// instead of returning it to the pool
			_ = conn.Raw(func(interface{}) error { return driver.ErrBadConn })
		}
	}()
	return runTx(ctx, conn, fn)
}

type txBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

func runTx(ctx context.Context, b txBeginner, fn func(ctx context.Context, q Queryer) error) (err error) {
	tx, err := b.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("can't begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (rollback failed: %s)", err, rbErr)
			}
		}
		observeTx(err)
		err = classify(err)
	}()
	if err = fn(ctx, &Tx{tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("can't commit transaction: %w", err)
	}
	return nil
}

type Tx struct {
	tx *sqlx.Tx
}

func (tx *Tx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	defer ObserveDuration(getCurrentFuncName(2))()
	return tx.tx.ExecContext(ctx, query, args...)
}

func (tx *Tx) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	defer ObserveDuration(getCurrentFuncName(2))()
	return notFound(tx.tx.GetContext(ctx, dest, query, args...))
}

func (tx *Tx) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	defer ObserveDuration(getCurrentFuncName(2))()
	return tx.tx.SelectContext(ctx, dest, query, args...)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func getCurrentFuncName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	details := runtime.FuncForPC(pc)
	if details == nil {
		return "unknown"
	}
	name := details.Name()
	name = name[strings.LastIndex(name, ".")+1:]
	name = strings.TrimPrefix(name, "(*")
	name = strings.Replace(name, ")", "", 1)
	return name
}
