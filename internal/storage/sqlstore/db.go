package sqlstore

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	xerrors "EnPeak/internal/errors"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config 描述数据库连接池参数。
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// SkipMigrations 为 true 时不在连接后执行迁移。
	SkipMigrations bool
}

// DB 包装连接池，供各个存储共享。
type DB struct {
	db     *sql.DB
	driver string
}

// Open 建立连接、校验连通性并执行迁移。
func Open(ctx context.Context, cfg Config) (*DB, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverMySQL && driver != DriverSQLite {
		return nil, xerrors.New(xerrors.CodeInvalidInput, fmt.Sprintf("不支持的数据库驱动 %q", cfg.Driver))
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidInput, "数据库 DSN 不能为空")
	}
	if driver == DriverSQLite {
		if err := ensureSQLiteDir(cfg.DSN); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStoreUnavailable, err, "打开数据库失败")
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(orInt(cfg.MaxOpenConns, 20))
		db.SetMaxIdleConns(orInt(cfg.MaxIdleConns, 10))
		if cfg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		} else {
			db.SetConnMaxLifetime(30 * time.Minute)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStoreUnavailable, err, "无法连接到数据库")
	}
	if driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
			db.Close()
			return nil, xerrors.Wrap(xerrors.CodeStoreUnavailable, err, "设置 SQLite busy_timeout 失败")
		}
	}

	store := &DB{db: db, driver: driver}
	if !cfg.SkipMigrations {
		if _, err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return store, nil
}

// Driver 返回驱动名称。
func (d *DB) Driver() string { return d.driver }

// Ping 检查数据库是否可用。
func (d *DB) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return xerrors.Wrap(xerrors.CodeStoreUnavailable, err, "数据库不可用")
	}
	return nil
}

// Close 关闭底层连接池。
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func ensureSQLiteDir(dsn string) error {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	path := dsn
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建 SQLite 目录失败: %w", err)
	}
	return nil
}

// isDuplicate 判断是否违反主键或唯一约束。
func isDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	if stdErrors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	var sqliteErr *sqlite.Error
	if stdErrors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func unavailable(err error, msg string) error {
	return xerrors.Wrap(xerrors.CodeStoreUnavailable, err, msg)
}

func orInt(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
