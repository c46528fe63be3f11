package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/sales-crm/internal/config"
)

// PostgresStore keeps records in the records table and announces every write
// with NOTIFY so other instances can re-sync.
type PostgresStore struct {
	Pool    *pgxpool.Pool
	channel string
	origin  string
	logger  *zap.Logger
}

// NewPostgresStore establishes a connection pool.
func NewPostgresStore(ctx context.Context, cfg config.PostgresConfig, namespace string, logger *zap.Logger) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("POSTGRES_DSN is required for the postgres record store")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to postgres")
	return &PostgresStore{
		Pool:    pool,
		channel: namespace + "events",
		origin:  uuid.NewString(),
		logger:  logger,
	}, nil
}

func (p *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	const query = `SELECT value FROM records WHERE key=$1`

	var value string
	if err := p.Pool.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (p *PostgresStore) Set(ctx context.Context, key, value string) error {
	const query = `
        INSERT INTO records (key, value, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`

	if _, err := p.Pool.Exec(ctx, query, key, value); err != nil {
		return err
	}
	if _, err := p.Pool.Exec(ctx, `SELECT pg_notify($1, $2)`, p.channel, changeMessage(p.origin, key)); err != nil {
		p.logger.Warn("notify record change failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// Watch holds one pooled connection in LISTEN mode and reports writes from
// other instances.
func (p *PostgresStore) Watch(ctx context.Context, fn func(key string)) error {
	conn, err := p.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = conn.Exec(context.Background(), "UNLISTEN *")
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{p.channel}.Sanitize()); err != nil {
		return err
	}
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if key, ok := foreignChange(n.Payload, p.origin); ok {
			fn(key)
		}
	}
}

// Ping verifies database connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	if p == nil || p.Pool == nil {
		return errors.New("postgres pool not configured")
	}
	return p.Pool.Ping(ctx)
}

// Close releases pool resources.
func (p *PostgresStore) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}
