// Package catalog provides SQL Server catalog access for depcrawl.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver

	"github.com/dbsmedya/depcrawl/internal/config"
)

// Manager holds one connection pool per crawled database on the same
// server. Pools are opened lazily on first use and reused afterwards.
type Manager struct {
	config *config.CatalogConfig

	mu    sync.Mutex
	pools map[string]*sql.DB
}

// NewManager creates a new catalog manager from configuration.
func NewManager(cfg *config.CatalogConfig) *Manager {
	return &Manager{
		config: cfg,
		pools:  make(map[string]*sql.DB),
	}
}

// Pool returns the connection pool for the given database, opening it
// if needed. The first call for a database verifies connectivity with
// retry before handing the pool out.
func (m *Manager) Pool(ctx context.Context, database string) (*sql.DB, error) {
	m.mu.Lock()
	if db, ok := m.pools[database]; ok {
		m.mu.Unlock()
		return db, nil
	}
	m.mu.Unlock()

	db, err := m.connectWithRetry(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %s: %w", database, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.pools[database]; ok {
		// Lost the race to another caller
		db.Close()
		return existing, nil
	}
	m.pools[database] = db
	return db, nil
}

// connectWithRetry attempts to connect with exponential backoff.
func (m *Manager) connectWithRetry(ctx context.Context, database string) (*sql.DB, error) {
	var db *sql.DB
	var err error

	maxRetries := 3
	backoff := time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = m.connect(database)
		if err == nil {
			// Verify connection
			if pingErr := db.PingContext(ctx); pingErr == nil {
				return db, nil
			} else {
				db.Close()
				err = pingErr
			}
		}

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2 // Exponential backoff
			}
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", maxRetries, err)
}

// connect creates a connection pool for one database.
func (m *Manager) connect(database string) (*sql.DB, error) {
	dsn := BuildDSN(m.config, database)

	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	if m.config.MaxConnections > 0 {
		db.SetMaxOpenConns(m.config.MaxConnections)
	}
	if m.config.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(m.config.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

// BuildDSN constructs a SQL Server connection URL from configuration.
func BuildDSN(cfg *config.CatalogConfig, database string) string {
	query := url.Values{}
	query.Set("app name", "depcrawl")
	if database != "" {
		query.Set("database", database)
	}
	if cfg.TrustServerCertificate {
		query.Set("TrustServerCertificate", "true")
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     fmt.Sprintf("%s:%d", cfg.Server, cfg.Port),
		RawQuery: query.Encode(),
	}

	// Trusted connections authenticate as the OS user, no credentials
	// in the URL.
	if !cfg.TrustedConnection {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}

	return u.String()
}

// ListDatabases returns the names of ONLINE user databases on the
// server, sorted by name. System databases are excluded.
func (m *Manager) ListDatabases(ctx context.Context) ([]string, error) {
	db, err := m.Pool(ctx, "master")
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		"SELECT name FROM sys.databases WHERE state_desc = 'ONLINE' AND database_id > 4")
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan database name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Strings(names)
	return names, nil
}

// Close closes all open connection pools.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, db := range m.pools {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s close: %w", name, err))
		}
		delete(m.pools, name)
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing connections: %v", errs)
	}
	return nil
}

// Ping verifies all open pools are alive.
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.Lock()
	pools := make(map[string]*sql.DB, len(m.pools))
	for name, db := range m.pools {
		pools[name] = db
	}
	m.mu.Unlock()

	for name, db := range pools {
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	return nil
}
