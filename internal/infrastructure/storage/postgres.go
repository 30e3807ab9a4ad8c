package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"NewsCrawler/internal/domain"
	"NewsCrawler/internal/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore keeps one table per source.
type PostgresStore struct {
	db *sql.DB
}

var _ ports.StoreProvider = (*PostgresStore)(nil)

// NewPostgresStore wires an existing sql.DB implementation.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens a lib/pq pool capped at maxConns and checks connectivity.
func OpenPostgres(ctx context.Context, dsn string, maxConns int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(db), nil
}

// EnsureSchema creates the tables and indexes of the given sources when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context, sourceIDs []string) error {
	for _, id := range sourceIDs {
		name := CollectionName(id)
		table := pq.QuoteIdentifier(name)
		stmts := []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				title TEXT NOT NULL,
				link TEXT,
				datetime TIMESTAMPTZ NOT NULL
			)`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (datetime DESC)`, pq.QuoteIdentifier(name+"_datetime_idx"), table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (title)`, pq.QuoteIdentifier(name+"_title_idx"), table),
		}
		for _, stmt := range stmts {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return &domain.StorageError{Op: domain.StorageWrite, Collection: name, Err: fmt.Errorf("ensure schema: %w", err)}
			}
		}
	}
	return nil
}

// Collection returns the table handle for a source.
func (s *PostgresStore) Collection(sourceID string) (ports.RecordStore, error) {
	if sourceID == "" {
		return nil, fmt.Errorf("empty source id")
	}
	name := CollectionName(sourceID)
	return &postgresCollection{db: s.db, name: name, table: pq.QuoteIdentifier(name)}, nil
}

// Close releases the pool.
func (s *PostgresStore) Close(context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type postgresCollection struct {
	db    *sql.DB
	name  string
	table string
}

func (c *postgresCollection) Insert(ctx context.Context, record domain.Record) (string, error) {
	var link interface{}
	if record.Link != "" {
		link = record.Link
	}

	query, args, err := psql.Insert(c.table).
		Columns("title", "link", "datetime").
		Values(record.Title, link, record.PublishedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return "", c.fail(domain.StorageWrite, fmt.Errorf("build insert: %w", err))
	}

	var id int64
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return "", c.fail(domain.StorageWrite, fmt.Errorf("insert record: %w", err))
	}
	return strconv.FormatInt(id, 10), nil
}

func (c *postgresCollection) MostRecentTimestamp(ctx context.Context) (time.Time, error) {
	query, args, err := psql.Select("MAX(datetime)").From(c.table).ToSql()
	if err != nil {
		return domain.Floor, c.fail(domain.StorageRead, fmt.Errorf("build select: %w", err))
	}

	var latest sql.NullTime
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&latest); err != nil {
		return domain.Floor, c.fail(domain.StorageRead, fmt.Errorf("query watermark: %w", err))
	}
	if !latest.Valid {
		return domain.Floor, nil
	}
	return latest.Time, nil
}

func (c *postgresCollection) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	query, args, err := psql.Select("1").From(c.table).Where(sq.Eq{"title": title}).Limit(1).ToSql()
	if err != nil {
		return false, c.fail(domain.StorageRead, fmt.Errorf("build select: %w", err))
	}

	var one int
	err = c.db.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, c.fail(domain.StorageRead, fmt.Errorf("query title: %w", err))
	}
	return true, nil
}

func (c *postgresCollection) fail(op domain.StorageOp, err error) error {
	return &domain.StorageError{Op: op, Collection: c.name, Err: err}
}
