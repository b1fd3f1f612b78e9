package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger

	bootMu       sync.Mutex
	bootstrapped bool
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStore connects to PostgreSQL and bootstraps the schema.
// An unreachable database is not fatal: the store comes up degraded,
// health reports it, and the schema bootstrap is retried on the next
// successful ping.
func NewPostgresStore(cfg *PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &PostgresStore{
		db:     db,
		logger: cfg.Logger,
	}

	err = db.Ping()
	if err != nil {
		cfg.Logger.Warn("postgres-unreachable-starting-degraded",
			zap.String("host", cfg.Host),
			zap.String("database", cfg.Database),
			zap.Error(err))
		return store, nil
	}

	err = store.ensureSchema(context.Background())
	if err != nil {
		cfg.Logger.Warn("postgres-bootstrap-deferred", zap.Error(err))
		return store, nil
	}

	cfg.Logger.Info("postgres-store-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return store, nil
}

// Ping verifies the database connection, completing the deferred schema
// bootstrap once the database becomes reachable.
func (p *PostgresStore) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return err
	}

	return p.ensureSchema(ctx)
}

// Close closes the database connection.
func (p *PostgresStore) Close() error {
	p.logger.Info("closing-postgres-store")
	return p.db.Close()
}

func (p *PostgresStore) ensureSchema(ctx context.Context) error {
	p.bootMu.Lock()
	defer p.bootMu.Unlock()

	if p.bootstrapped {
		return nil
	}

	for _, ddl := range schemaDDL {
		_, err := p.db.ExecContext(ctx, ddl)
		if err != nil {
			return fmt.Errorf("exec ddl: %w", err)
		}
	}
	p.bootstrapped = true

	return nil
}
