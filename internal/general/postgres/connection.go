package postgres

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"taxi-client/internal/general/config"
	"taxi-client/internal/general/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool connects to the session database described by cfg.Database, pings it and
// makes sure the schema exists.
func NewPool(ctx context.Context, cfg *config.Config, log *logger.Logger) (*pgxpool.Pool, error) {
	start := time.Now()
	db := cfg.Database

	u := &url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:     "/" + db.Name,
		User:     url.UserPassword(db.User, db.Password),
		RawQuery: url.Values{"sslmode": {"disable"}}.Encode(),
	}

	// never log the password itself
	log.Info(ctx, "db_config_check", "Effective DB connection parameters", map[string]any{
		"host":           db.Host,
		"port":           db.Port,
		"user":           db.User,
		"database":       db.Name,
		"password_empty": db.Password == "",
	})

	pcfg, err := pgxpool.ParseConfig(u.String())
	if err != nil {
		return nil, fmt.Errorf("postgres parse dsn: %w", err)
	}
	pcfg.ConnConfig.ConnectTimeout = 5 * time.Second
	if pcfg.ConnConfig.RuntimeParams == nil {
		pcfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	pcfg.ConnConfig.RuntimeParams["timezone"] = "UTC"
	pcfg.MaxConns = 4 // one client process, a handful of writers at most
	pcfg.HealthCheckPeriod = 30 * time.Second
	pcfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info(ctx, "db_connected", "Connected to PostgreSQL database", map[string]any{
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return pool, nil
}
