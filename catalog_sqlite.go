package hypercube

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	// SQLite driver using pure Go implementation
	_ "modernc.org/sqlite"
)

// SQLiteCatalogConfig configures the durable cube catalog.
type SQLiteCatalogConfig struct {
	// Path to the SQLite database file
	Path string

	// BusyTimeout is the timeout for acquiring locks in milliseconds
	BusyTimeout int

	// MaxConnections is the max number of database connections
	MaxConnections int
}

// DefaultSQLiteCatalogConfig returns default configuration.
func DefaultSQLiteCatalogConfig() SQLiteCatalogConfig {
	return SQLiteCatalogConfig{
		Path:           "hypercube.db",
		BusyTimeout:    5000,
		MaxConnections: 4,
	}
}

// SQLiteCatalog persists cube definitions (including facts) outside the
// process lifetime so an engine can be repopulated on restart. The engine
// never touches the catalog itself; a loader saves after registration and
// restores on startup.
type SQLiteCatalog struct {
	db     *sql.DB
	config SQLiteCatalogConfig
	mu     sync.Mutex
}

// NewSQLiteCatalog opens (or creates) a catalog database.
func NewSQLiteCatalog(cfg SQLiteCatalogConfig) (*SQLiteCatalog, error) {
	if cfg.Path == "" {
		return nil, errors.New("catalog path is required")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5000
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 4
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", cfg.Path, cfg.BusyTimeout)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)

	c := &SQLiteCatalog{db: db, config: cfg}
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *SQLiteCatalog) initSchema() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS cubes (
			name       TEXT PRIMARY KEY,
			definition TEXT NOT NULL,
			saved_at   INTEGER NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("init catalog schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

// SaveCube upserts a cube definition as a JSON document.
func (c *SQLiteCatalog) SaveCube(ctx context.Context, def *CubeDefinition) error {
	if def == nil || def.Name == "" {
		return errors.New("cube definition with a name is required")
	}
	raw, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode cube %s: %w", def.Name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO cubes (name, definition, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET definition = excluded.definition, saved_at = excluded.saved_at`,
		def.Name, string(raw), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save cube %s: %w", def.Name, err)
	}
	return nil
}

// LoadCube reads one cube definition by name.
func (c *SQLiteCatalog) LoadCube(ctx context.Context, name string) (*CubeDefinition, error) {
	var raw string
	err := c.db.QueryRowContext(ctx, `SELECT definition FROM cubes WHERE name = ?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newNotFoundError("cube %q not in catalog", name)
	}
	if err != nil {
		return nil, fmt.Errorf("load cube %s: %w", name, err)
	}
	var def CubeDefinition
	if err := json.Unmarshal([]byte(raw), &def); err != nil {
		return nil, fmt.Errorf("decode cube %s: %w", name, err)
	}
	return &def, nil
}

// ListCubes returns catalog cube names in lexical order.
func (c *SQLiteCatalog) ListCubes(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name FROM cubes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list cubes: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteCube removes a cube from the catalog.
func (c *SQLiteCatalog) DeleteCube(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.ExecContext(ctx, `DELETE FROM cubes WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete cube %s: %w", name, err)
	}
	return nil
}

// Restore registers every cataloged cube on an engine. Cubes already
// registered are skipped.
func (c *SQLiteCatalog) Restore(ctx context.Context, e *Engine) error {
	names, err := c.ListCubes(ctx)
	if err != nil {
		return err
	}
	registered := make(map[string]bool)
	for _, name := range e.ListCubes() {
		registered[name] = true
	}
	for _, name := range names {
		if registered[name] {
			continue
		}
		def, err := c.LoadCube(ctx, name)
		if err != nil {
			return err
		}
		if err := e.RegisterCube(def); err != nil {
			return err
		}
	}
	return nil
}
