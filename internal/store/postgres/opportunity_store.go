package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a new OpportunityStore backed by the given
// connection pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const oppSelectCols = `id::text, market_id, buy_platform, sell_platform,
	buy_price, sell_price, buy_price_local, sell_price_local,
	profit, profit_percentage, buy_size, sell_size,
	is_profitable, rate_fallback, detected_at`

const oppInsert = `
	INSERT INTO opportunities (
		id, market_id, buy_platform, sell_platform,
		buy_price, sell_price, buy_price_local, sell_price_local,
		profit, profit_percentage, buy_size, sell_size,
		is_profitable, rate_fallback, detected_at
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8,
		$9, $10, $11, $12,
		$13, $14, $15
	)
	ON CONFLICT (id) DO NOTHING`

func insertArgs(opp domain.Opportunity) []any {
	return []any{
		opp.ID, opp.MarketID, opp.BuyPlatform, opp.SellPlatform,
		opp.BuyPrice, opp.SellPrice, nullDecimal(opp.BuyPriceLocal), nullDecimal(opp.SellPriceLocal),
		opp.Profit, opp.ProfitPercentage, opp.BuySize, opp.SellSize,
		opp.IsProfitable, opp.RateFallback, opp.DetectedAt,
	}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

// Insert stores one opportunity. Re-inserting the same id is a no-op.
func (s *OpportunityStore) Insert(ctx context.Context, opp domain.Opportunity) error {
	if _, err := s.pool.Exec(ctx, oppInsert, insertArgs(opp)...); err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// InsertBatch stores all opportunities in a single round trip.
func (s *OpportunityStore) InsertBatch(ctx context.Context, opps []domain.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, opp := range opps {
		batch.Queue(oppInsert, insertArgs(opp)...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, opp := range opps {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: batch insert opportunity %s: %w", opp.ID, err)
		}
	}
	return nil
}

// ListRecent returns the newest opportunities across all markets.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	return s.list(ctx, `SELECT `+oppSelectCols+` FROM opportunities WHERE TRUE`, nil, domain.ListOpts{Limit: limit})
}

// ListByMarket returns opportunities for one market, newest first.
func (s *OpportunityStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Opportunity, error) {
	return s.list(ctx, `SELECT `+oppSelectCols+` FROM opportunities WHERE market_id = $1`, []any{marketID}, opts)
}

func (s *OpportunityStore) list(ctx context.Context, base string, args []any, opts domain.ListOpts) ([]domain.Opportunity, error) {
	query, args := listQuery(base, args, "detected_at", opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	defer rows.Close()

	var out []domain.Opportunity
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list opportunities rows: %w", err)
	}
	return out, nil
}

func scanOpportunity(row pgx.Row) (domain.Opportunity, error) {
	var (
		opp                 domain.Opportunity
		buyLocal, sellLocal decimal.NullDecimal
	)
	err := row.Scan(
		&opp.ID, &opp.MarketID, &opp.BuyPlatform, &opp.SellPlatform,
		&opp.BuyPrice, &opp.SellPrice, &buyLocal, &sellLocal,
		&opp.Profit, &opp.ProfitPercentage, &opp.BuySize, &opp.SellSize,
		&opp.IsProfitable, &opp.RateFallback, &opp.DetectedAt,
	)
	if err != nil {
		return domain.Opportunity{}, fmt.Errorf("postgres: scan opportunity: %w", err)
	}
	if buyLocal.Valid {
		opp.BuyPriceLocal = &buyLocal.Decimal
	}
	if sellLocal.Valid {
		opp.SellPriceLocal = &sellLocal.Decimal
	}
	return opp, nil
}

// Compile-time interface check.
var _ domain.OpportunityStore = (*OpportunityStore)(nil)
