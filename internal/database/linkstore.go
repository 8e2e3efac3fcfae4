package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/badgegraph/internal/model"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// dbFileName is the SQLite database file created inside the data directory.
const dbFileName = "badgegraph.db"

func init() {
	// sqlx does not know modernc's driver name; its placeholders are '?'.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	Rebind(query string) string
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// LinkStore provides SQL storage for the crawl graph.
// It is safe for concurrent use; each method runs one statement unless the
// store was handed out by WithinTx.
type LinkStore struct {
	// db is the underlying connection pool.
	db *sqlx.DB

	// q runs statements: db itself, or the transaction of WithinTx.
	q queryer

	// inTx is set on stores bound to a transaction.
	inTx bool

	// dbPath is the SQLite file path, empty for PostgreSQL.
	dbPath string
}

// Options configures how a SQLite LinkStore is opened.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a SQLite LinkStore in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*LinkStore, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sqlx.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &LinkStore{db: db, q: db, dbPath: dbPath}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	// Wait for a busy writer instead of failing the statement.
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// OpenPostgres connects to PostgreSQL and creates the schema if needed.
func OpenPostgres(ctx context.Context, dsn string) (*LinkStore, error) {
	if dsn == "" {
		return nil, ErrEmptyDSN
	}

	db, err := sqlx.ConnectContext(ctx, DriverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s := &LinkStore{db: db, q: db}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// New wraps an existing connection. The schema is not touched; call Migrate
// if the tables may not exist yet.
func New(db *sqlx.DB) *LinkStore {
	return &LinkStore{db: db, q: db}
}

// Close closes the database connection.
func (s *LinkStore) Close() error {
	return s.db.Close()
}

// Path returns the SQLite database file path, or "" for other drivers.
func (s *LinkStore) Path() string {
	return s.dbPath
}

// Ping verifies the connection is alive.
func (s *LinkStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithinTx runs fn with a store whose statements share one transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
// Called on a store that is already bound to a transaction, fn joins it.
// The store passed to fn must not be used after fn returns.
func (s *LinkStore) WithinTx(ctx context.Context, fn func(tx *LinkStore) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	bound := &LinkStore{db: s.db, q: tx, dbPath: s.dbPath, inTx: true}

	if err := fn(bound); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to roll back: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Migrate creates the schema if it doesn't exist.
func (s *LinkStore) Migrate(ctx context.Context) error {
	var schema string
	switch s.db.DriverName() {
	case DriverSQLite:
		schema = sqliteSchema
	case DriverPostgres:
		schema = postgresSchema
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedDriver, s.db.DriverName())
	}

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS pages (
		url TEXT PRIMARY KEY,
		domain TEXT NOT NULL,
		last_scraped INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_pages_domain ON pages(domain);

	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		src_url TEXT NOT NULL,
		dst_url TEXT NOT NULL,
		image_url TEXT NOT NULL,
		image_hash TEXT NOT NULL,
		UNIQUE(src_url, dst_url, image_url)
	);

	CREATE INDEX IF NOT EXISTS idx_links_src ON links(src_url);
	CREATE INDEX IF NOT EXISTS idx_links_dst ON links(dst_url);

	CREATE TABLE IF NOT EXISTS redirects (
		from_url TEXT PRIMARY KEY,
		to_url TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS clients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key_digest TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL
	);
	`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS pages (
		url TEXT PRIMARY KEY,
		domain TEXT NOT NULL,
		last_scraped BIGINT
	);

	CREATE INDEX IF NOT EXISTS idx_pages_domain ON pages(domain);

	CREATE TABLE IF NOT EXISTS links (
		id BIGSERIAL PRIMARY KEY,
		src_url TEXT NOT NULL,
		dst_url TEXT NOT NULL,
		image_url TEXT NOT NULL,
		image_hash TEXT NOT NULL,
		UNIQUE(src_url, dst_url, image_url)
	);

	CREATE INDEX IF NOT EXISTS idx_links_src ON links(src_url);
	CREATE INDEX IF NOT EXISTS idx_links_dst ON links(dst_url);

	CREATE TABLE IF NOT EXISTS redirects (
		from_url TEXT PRIMARY KEY,
		to_url TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS clients (
		id BIGSERIAL PRIMARY KEY,
		key_digest TEXT NOT NULL UNIQUE,
		created_at BIGINT NOT NULL
	);
	`

// pageRow is the database form of model.Page.
// last_scraped holds Unix milliseconds so both drivers store it the same way.
type pageRow struct {
	URL         string        `db:"url"`
	Domain      string        `db:"domain"`
	LastScraped sql.NullInt64 `db:"last_scraped"`
}

func (r pageRow) toModel() model.Page {
	p := model.Page{URL: r.URL, Domain: r.Domain}
	if r.LastScraped.Valid {
		ts := time.UnixMilli(r.LastScraped.Int64).UTC()
		p.LastScraped = &ts
	}
	return p
}

type linkRow struct {
	SrcURL    string `db:"src_url"`
	DstURL    string `db:"dst_url"`
	ImageURL  string `db:"image_url"`
	ImageHash string `db:"image_hash"`
}

func (r linkRow) toModel() model.Link {
	return model.Link{
		SrcURL:    r.SrcURL,
		DstURL:    r.DstURL,
		ImageURL:  r.ImageURL,
		ImageHash: r.ImageHash,
	}
}

type redirectRow struct {
	From string `db:"from_url"`
	To   string `db:"to_url"`
}

// GetPage retrieves a page by URL. It returns nil, nil if the page is unknown.
func (s *LinkStore) GetPage(ctx context.Context, url string) (*model.Page, error) {
	query := s.q.Rebind(`SELECT url, domain, last_scraped FROM pages WHERE url = ?`)

	var row pageRow
	err := s.q.GetContext(ctx, &row, query, url)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	page := row.toModel()
	return &page, nil
}

// UpsertScrapedPage records a scrape of url at the given time, creating the
// page if it doesn't exist yet.
func (s *LinkStore) UpsertScrapedPage(ctx context.Context, url, domain string, at time.Time) error {
	query := s.q.Rebind(`
	INSERT INTO pages (url, domain, last_scraped)
	VALUES (?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		domain = excluded.domain,
		last_scraped = excluded.last_scraped
	`)

	if _, err := s.q.ExecContext(ctx, query, url, domain, at.UnixMilli()); err != nil {
		return fmt.Errorf("failed to upsert page: %w", err)
	}
	return nil
}

// EnsurePage creates an unscraped page for url unless one already exists.
// It reports whether a new page was created.
func (s *LinkStore) EnsurePage(ctx context.Context, url, domain string) (bool, error) {
	query := s.q.Rebind(`
	INSERT INTO pages (url, domain)
	VALUES (?, ?)
	ON CONFLICT(url) DO NOTHING
	`)

	result, err := s.q.ExecContext(ctx, query, url, domain)
	if err != nil {
		return false, fmt.Errorf("failed to ensure page: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// ListPages returns every stored page ordered by URL.
func (s *LinkStore) ListPages(ctx context.Context) ([]model.Page, error) {
	var rows []pageRow
	if err := s.q.SelectContext(ctx, &rows, `SELECT url, domain, last_scraped FROM pages ORDER BY url`); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	pages := make([]model.Page, 0, len(rows))
	for _, row := range rows {
		pages = append(pages, row.toModel())
	}
	return pages, nil
}

// UpsertLink inserts a link or refreshes the image hash of an existing link
// with the same (src, dst, image) identity.
func (s *LinkStore) UpsertLink(ctx context.Context, link model.Link) error {
	query := s.q.Rebind(`
	INSERT INTO links (src_url, dst_url, image_url, image_hash)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(src_url, dst_url, image_url) DO UPDATE SET
		image_hash = excluded.image_hash
	`)

	_, err := s.q.ExecContext(ctx, query, link.SrcURL, link.DstURL, link.ImageURL, link.ImageHash)
	if err != nil {
		return fmt.Errorf("failed to upsert link: %w", err)
	}
	return nil
}

// LinksFrom returns the links whose source is src, in insertion order.
func (s *LinkStore) LinksFrom(ctx context.Context, src string) ([]model.Link, error) {
	query := s.q.Rebind(`
	SELECT src_url, dst_url, image_url, image_hash
	FROM links
	WHERE src_url = ?
	ORDER BY id
	`)

	var rows []linkRow
	if err := s.q.SelectContext(ctx, &rows, query, src); err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	return toLinks(rows), nil
}

// ListLinks returns every stored link in insertion order.
func (s *LinkStore) ListLinks(ctx context.Context) ([]model.Link, error) {
	var rows []linkRow
	err := s.q.SelectContext(ctx, &rows, `SELECT src_url, dst_url, image_url, image_hash FROM links ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return toLinks(rows), nil
}

// LinkTargets returns each distinct link destination once, ordered by the
// first time it was linked to.
func (s *LinkStore) LinkTargets(ctx context.Context) ([]string, error) {
	query := `
	SELECT dst_url
	FROM links
	GROUP BY dst_url
	ORDER BY MIN(id)
	`

	var targets []string
	if err := s.q.SelectContext(ctx, &targets, query); err != nil {
		return nil, fmt.Errorf("failed to list link targets: %w", err)
	}
	return targets, nil
}

// DeleteLinksTouching removes every link whose source or destination is url.
// It returns the number of links removed.
func (s *LinkStore) DeleteLinksTouching(ctx context.Context, url string) (int64, error) {
	query := s.q.Rebind(`DELETE FROM links WHERE src_url = ? OR dst_url = ?`)

	result, err := s.q.ExecContext(ctx, query, url, url)
	if err != nil {
		return 0, fmt.Errorf("failed to delete links: %w", err)
	}
	return result.RowsAffected()
}

func toLinks(rows []linkRow) []model.Link {
	links := make([]model.Link, 0, len(rows))
	for _, row := range rows {
		links = append(links, row.toModel())
	}
	return links
}

// GetRedirect retrieves the redirect whose source is from.
// It returns nil, nil if from is not a redirect source.
func (s *LinkStore) GetRedirect(ctx context.Context, from string) (*model.Redirect, error) {
	query := s.q.Rebind(`SELECT from_url, to_url FROM redirects WHERE from_url = ?`)

	var row redirectRow
	err := s.q.GetContext(ctx, &row, query, from)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get redirect: %w", err)
	}

	return &model.Redirect{From: row.From, To: row.To}, nil
}

// UpsertRedirect creates or overwrites the redirect from -> to.
func (s *LinkStore) UpsertRedirect(ctx context.Context, from, to string) error {
	query := s.q.Rebind(`
	INSERT INTO redirects (from_url, to_url)
	VALUES (?, ?)
	ON CONFLICT(from_url) DO UPDATE SET
		to_url = excluded.to_url
	`)

	if _, err := s.q.ExecContext(ctx, query, from, to); err != nil {
		return fmt.Errorf("failed to upsert redirect: %w", err)
	}
	return nil
}

// ListRedirects returns every stored redirect ordered by source.
func (s *LinkStore) ListRedirects(ctx context.Context) ([]model.Redirect, error) {
	var rows []redirectRow
	if err := s.q.SelectContext(ctx, &rows, `SELECT from_url, to_url FROM redirects ORDER BY from_url`); err != nil {
		return nil, fmt.Errorf("failed to list redirects: %w", err)
	}

	redirects := make([]model.Redirect, 0, len(rows))
	for _, row := range rows {
		redirects = append(redirects, model.Redirect{From: row.From, To: row.To})
	}
	return redirects, nil
}

// CreateClient stores the digest of a newly issued API key.
func (s *LinkStore) CreateClient(ctx context.Context, keyDigest string) error {
	query := s.q.Rebind(`INSERT INTO clients (key_digest, created_at) VALUES (?, ?)`)

	if _, err := s.q.ExecContext(ctx, query, keyDigest, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// HasClient reports whether an API key with the given digest was issued.
func (s *LinkStore) HasClient(ctx context.Context, keyDigest string) (bool, error) {
	query := s.q.Rebind(`SELECT COUNT(*) FROM clients WHERE key_digest = ?`)

	var count int
	if err := s.q.GetContext(ctx, &count, query, keyDigest); err != nil {
		return false, fmt.Errorf("failed to look up client: %w", err)
	}
	return count > 0, nil
}

// Stats contains row counts for each table.
type Stats struct {
	Pages        int `db:"pages"`
	ScrapedPages int `db:"scraped_pages"`
	Links        int `db:"links"`
	Redirects    int `db:"redirects"`
	Clients      int `db:"clients"`
}

// Stats returns row counts for each table.
func (s *LinkStore) Stats(ctx context.Context) (Stats, error) {
	query := `
	SELECT
		(SELECT COUNT(*) FROM pages) AS pages,
		(SELECT COUNT(*) FROM pages WHERE last_scraped IS NOT NULL) AS scraped_pages,
		(SELECT COUNT(*) FROM links) AS links,
		(SELECT COUNT(*) FROM redirects) AS redirects,
		(SELECT COUNT(*) FROM clients) AS clients
	`

	var stats Stats
	if err := s.q.GetContext(ctx, &stats, query); err != nil {
		return Stats{}, fmt.Errorf("failed to read stats: %w", err)
	}
	return stats, nil
}
