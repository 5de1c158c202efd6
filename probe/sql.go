package probe

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jonwraymond/healthops/health"
)

// SQLOption configures NewSQL.
type SQLOption func(*sqlProbe)

// WithQuery runs query after a successful ping, for example "SELECT 1".
func WithQuery(query string) SQLOption {
	return func(p *sqlProbe) { p.query = query }
}

type sqlProbe struct {
	db    *sql.DB
	query string
}

// NewSQL creates a probe that pings db and optionally runs a query.
// The descriptor's type defaults to other database.
func NewSQL(desc health.Descriptor, db *sql.DB, opts ...SQLOption) (health.Dependency, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: sql.DB", ErrMissingClient)
	}
	if desc.Type == "" {
		desc.Type = health.TypeOtherDatabase
	}
	p := &sqlProbe{db: db}
	for _, opt := range opts {
		opt(p)
	}
	return health.NewPingDependency(desc, p.ping)
}

func (p *sqlProbe) ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if p.query == "" {
		return nil
	}
	rows, err := p.db.QueryContext(ctx, p.query)
	if err != nil {
		return fmt.Errorf("health query failed: %w", err)
	}
	return rows.Close()
}
