// Package fabric is the Postgres-backed fabric catalog. The conversational
// tools only ever read from it; imports and pricing syncs happen outside
// this service.
package fabric

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	statex "github.com/laserhenk/henk-agent/agent/state"
)

var (
	ErrNotConfigured = errors.New("fabric catalog not configured")
	ErrNotFound      = errors.New("fabric not found")
)

type Config struct {
	DSN        string        `envconfig:"DSN" split_words:"true"`
	Timeout    time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
	MaxResults int           `envconfig:"MAX_RESULTS" split_words:"true" default:"10"`
}

// Enabled reports whether a database is configured. Without one the search
// tool serves the curated fallback selection instead.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.DSN) != ""
}

type Catalog struct {
	db    *bun.DB
	limit int
}

func Open(cfg Config) (*Catalog, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}

	connector := pgdriver.NewConnector(
		pgdriver.WithDSN(strings.TrimSpace(cfg.DSN)),
		pgdriver.WithTimeout(cfg.Timeout),
	)
	db := bun.NewDB(sql.OpenDB(connector), pgdialect.New())

	limit := cfg.MaxResults
	if limit <= 0 {
		limit = 10
	}
	return &Catalog{db: db, limit: limit}, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// Query narrows the catalog search. Empty fields do not filter.
type Query struct {
	Text     string
	Colors   []string
	Patterns []string
	Tier     string
}

// Search returns in-stock fabrics matching the query, mid tier before
// luxury so the two-tier presentation picks up one of each.
func (c *Catalog) Search(ctx context.Context, q Query) ([]statex.Fabric, error) {
	var rows []Row
	sel := c.db.NewSelect().Model(&rows).Where("in_stock = TRUE")

	if colors := lowered(q.Colors); len(colors) > 0 {
		sel = sel.Where("lower(color) IN (?)", bun.In(colors))
	}
	if patterns := lowered(q.Patterns); len(patterns) > 0 {
		sel = sel.Where("lower(pattern) IN (?)", bun.In(patterns))
	}
	if tier := strings.TrimSpace(q.Tier); tier != "" {
		sel = sel.Where("price_tier = ?", tier)
	}
	if text := strings.ToLower(strings.TrimSpace(q.Text)); text != "" {
		like := "%" + text + "%"
		sel = sel.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				WhereOr("lower(name) LIKE ?", like).
				WhereOr("lower(composition) LIKE ?", like).
				WhereOr("lower(color) LIKE ?", like).
				WhereOr("lower(pattern) LIKE ?", like)
		})
	}

	if err := sel.OrderExpr("price_tier ASC, name ASC").Limit(c.limit).Scan(ctx); err != nil {
		return nil, fmt.Errorf("fabric search: %w", err)
	}

	fabrics := make([]statex.Fabric, 0, len(rows))
	for _, r := range rows {
		fabrics = append(fabrics, r.Fabric())
	}
	return fabrics, nil
}

// ByCode fetches a single fabric.
func (c *Catalog) ByCode(ctx context.Context, code string) (statex.Fabric, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return statex.Fabric{}, ErrNotFound
	}

	var row Row
	err := c.db.NewSelect().Model(&row).Where("code = ?", code).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return statex.Fabric{}, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	if err != nil {
		return statex.Fabric{}, fmt.Errorf("fabric by code: %w", err)
	}
	return row.Fabric(), nil
}

func lowered(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
