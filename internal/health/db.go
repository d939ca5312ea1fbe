package health

import (
	"context"
	"database/sql"
)

// DBChecker reports whether the Postgres pool backing the volume cache,
// config store, and result sink is reachable.
type DBChecker struct {
	db *sql.DB
}

// NewDBChecker creates a checker over an existing pool.
func NewDBChecker(db *sql.DB) *DBChecker {
	return &DBChecker{db: db}
}

// HealthCheck pings the database. The caller bounds the context; a failure
// here flips readiness, since every pipeline run needs the database.
func (d *DBChecker) HealthCheck(ctx context.Context) error {
	return d.db.PingContext(ctx)
}
