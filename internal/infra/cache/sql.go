package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/unitecon/internal/domain/analysis"
)

// Dialect selects placeholder style and upsert syntax.
type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// SQLStore keeps entries in the analysis_cache table. Timestamps are unix
// milliseconds so comparisons behave the same on every dialect.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
	log     *zap.Logger
}

func NewSQLStore(db *sql.DB, dialect Dialect, log *zap.Logger) *SQLStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &SQLStore{db: db, dialect: dialect, now: time.Now, log: log}
}

// Migrate creates the table and its expiry index if missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	var stmts []string
	switch s.dialect {
	case DialectMySQL:
		stmts = []string{`
CREATE TABLE IF NOT EXISTS analysis_cache (
  cache_key   CHAR(64)  NOT NULL PRIMARY KEY,
  result_json LONGTEXT  NOT NULL,
  created_at  BIGINT    NOT NULL,
  expires_at  BIGINT    NOT NULL,
  INDEX idx_analysis_cache_expires (expires_at)
) DEFAULT CHARSET=utf8mb4;`}
	case DialectPostgres, DialectSQLite:
		stmts = []string{`
CREATE TABLE IF NOT EXISTS analysis_cache (
  cache_key   CHAR(64) PRIMARY KEY,
  result_json TEXT     NOT NULL,
  created_at  BIGINT   NOT NULL,
  expires_at  BIGINT   NOT NULL
);`,
			`CREATE INDEX IF NOT EXISTS idx_analysis_cache_expires ON analysis_cache (expires_at);`}
	default:
		return fmt.Errorf("unsupported sql dialect %q", s.dialect)
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrating analysis_cache: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (analysis.Result, bool, error) {
	q := s.rebind(`
SELECT result_json, created_at
FROM analysis_cache
WHERE cache_key = ? AND expires_at > ?;`)

	var payload string
	var created int64
	err := s.db.QueryRowContext(ctx, q, key, s.now().UnixMilli()).Scan(&payload, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}

	r, err := decode([]byte(payload))
	if err != nil {
		s.log.Warn("dropping invalid cache entry", zap.String("cache_key", key), zap.Error(err))
		s.evict(ctx, key, created)
		return nil, false, nil
	}
	return r, true, nil
}

func (s *SQLStore) Put(ctx context.Context, key string, r analysis.Result, ttl time.Duration) error {
	b, err := encode(r)
	if err != nil {
		return err
	}
	now := s.now()

	var q string
	if s.dialect == DialectMySQL {
		q = `
INSERT INTO analysis_cache (cache_key, result_json, created_at, expires_at)
VALUES (?,?,?,?)
ON DUPLICATE KEY UPDATE
  result_json=VALUES(result_json), created_at=VALUES(created_at), expires_at=VALUES(expires_at);`
	} else {
		q = s.rebind(`
INSERT INTO analysis_cache (cache_key, result_json, created_at, expires_at)
VALUES (?,?,?,?)
ON CONFLICT (cache_key) DO UPDATE SET
  result_json=excluded.result_json, created_at=excluded.created_at, expires_at=excluded.expires_at;`)
	}
	if _, err := s.db.ExecContext(ctx, q, key, string(b), now.UnixMilli(), now.Add(ttl).UnixMilli()); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// evict deletes the row only if it was not rewritten since it was read.
func (s *SQLStore) evict(ctx context.Context, key string, created int64) {
	q := s.rebind(`DELETE FROM analysis_cache WHERE cache_key = ? AND created_at = ?;`)
	if _, err := s.db.ExecContext(ctx, q, key, created); err != nil {
		s.log.Warn("evicting cache entry", zap.String("cache_key", key), zap.Error(err))
	}
}

// PurgeExpired deletes expired rows.
func (s *SQLStore) PurgeExpired(ctx context.Context) (int64, error) {
	q := s.rebind(`DELETE FROM analysis_cache WHERE expires_at <= ?;`)
	res, err := s.db.ExecContext(ctx, q, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purging cache: %w", err)
	}
	return res.RowsAffected()
}

// RunJanitor purges expired rows every interval until ctx is done.
func (s *SQLStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				s.log.Warn("cache purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.log.Debug("cache purge", zap.Int64("removed", n))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *SQLStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

// rebind turns ? placeholders into $1..$n for postgres.
func (s *SQLStore) rebind(q string) string {
	if s.dialect != DialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, c := range q {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
