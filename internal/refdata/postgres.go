package refdata

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads the reference tables described in db/schema.sql.
type PostgresSource struct {
	DB Querier
}

func (p PostgresSource) Name() string { return "postgres" }

func (p PostgresSource) Load(ctx context.Context) (*Store, error) {
	regions, err := p.regions(ctx)
	if err != nil {
		return nil, err
	}
	records, err := p.delivery(ctx)
	if err != nil {
		return nil, err
	}
	return NewStore(regions, records)
}

func (p PostgresSource) regions(ctx context.Context) ([]Region, error) {
	rows, err := p.DB.Query(ctx, `SELECT code, name FROM regions ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query regions: %w", err)
	}
	var regions []Region
	byCode := make(map[int]int)
	for rows.Next() {
		var r Region
		if err := rows.Scan(&r.Code, &r.Name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan region: %w", err)
		}
		byCode[r.Code] = len(regions)
		regions = append(regions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read regions: %w", err)
	}

	rows, err = p.DB.Query(ctx, `
        SELECT region_code, name
        FROM subdivisions
        ORDER BY region_code, position, name`)
	if err != nil {
		return nil, fmt.Errorf("query subdivisions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			code int
			name string
		)
		if err := rows.Scan(&code, &name); err != nil {
			return nil, fmt.Errorf("scan subdivision: %w", err)
		}
		i, ok := byCode[code]
		if !ok {
			return nil, fmt.Errorf("%w: subdivision %q references unknown region %d", ErrInvalidData, name, code)
		}
		regions[i].Subdivisions = append(regions[i].Subdivisions, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read subdivisions: %w", err)
	}
	return regions, nil
}

func (p PostgresSource) delivery(ctx context.Context) ([]DeliveryRecord, error) {
	rows, err := p.DB.Query(ctx, `
        SELECT code, name, home_price, desk_price, COALESCE(estimated_days, '')
        FROM delivery_prices
        ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query delivery prices: %w", err)
	}
	defer rows.Close()

	var records []DeliveryRecord
	for rows.Next() {
		var (
			d          DeliveryRecord
			home, desk int64
		)
		if err := rows.Scan(&d.Code, &d.Name, &home, &desk, &d.EstimatedDays); err != nil {
			return nil, fmt.Errorf("scan delivery price: %w", err)
		}
		d.HomePrice = decimal.NewFromInt(home)
		d.DeskPrice = decimal.NewFromInt(desk)
		records = append(records, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read delivery prices: %w", err)
	}
	return records, nil
}
