package country

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store resolves country settings from Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Settings implements Resolver. An unknown code maps to ErrNotConfigured.
func (s *Store) Settings(ctx context.Context, code string) (Settings, error) {
	var row Settings
	err := s.pool.QueryRow(ctx,
		`SELECT code, currency, customs_percent_default, vat_percent, rate_to_usd, rate_source
		 FROM country_settings WHERE code = $1`,
		normalizeCode(code),
	).Scan(&row.Code, &row.Currency, &row.CustomsPercentDefault, &row.VATPercent, &row.RateToUSD, &row.RateSource)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Settings{}, ErrNotConfigured
		}
		return Settings{}, fmt.Errorf("getting country settings: %w", err)
	}
	return row, nil
}

// List returns every configured destination, used by the worker to pre-warm
// the settings cache.
func (s *Store) List(ctx context.Context) ([]Settings, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT code, currency, customs_percent_default, vat_percent, rate_to_usd, rate_source
		 FROM country_settings ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("listing country settings: %w", err)
	}
	defer rows.Close()

	var out []Settings
	for rows.Next() {
		var row Settings
		if err := rows.Scan(&row.Code, &row.Currency, &row.CustomsPercentDefault, &row.VATPercent, &row.RateToUSD, &row.RateSource); err != nil {
			return nil, fmt.Errorf("scanning country settings: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Upsert inserts or updates a destination row. Used by seeding tools.
func (s *Store) Upsert(ctx context.Context, row Settings) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO country_settings (code, currency, customs_percent_default, vat_percent, rate_to_usd, rate_source)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (code) DO UPDATE SET
		   currency = EXCLUDED.currency,
		   customs_percent_default = EXCLUDED.customs_percent_default,
		   vat_percent = EXCLUDED.vat_percent,
		   rate_to_usd = EXCLUDED.rate_to_usd,
		   rate_source = EXCLUDED.rate_source,
		   updated_at = now()`,
		normalizeCode(row.Code), row.Currency, row.CustomsPercentDefault, row.VATPercent, row.RateToUSD, row.RateSource)
	if err != nil {
		return fmt.Errorf("upserting country settings: %w", err)
	}
	return nil
}
