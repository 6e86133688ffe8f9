package report

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/apex-pos/api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxPage keeps the query offset within int32 at any limit.
	MaxPage = math.MaxInt32/MaxLimit + 1
)

// ListParams filters the closed comanda list. Nil filters are ignored.
type ListParams struct {
	CompanyID     uuid.UUID
	Page          int
	Limit         int
	Start         *time.Time
	End           *time.Time
	ResponsavelID *uuid.UUID
}

type Pagination struct {
	Page       int
	Limit      int
	Total      int64
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

type Page struct {
	Comandas   []Comanda
	Pagination Pagination
}

// Normalize clamps page to [1, MaxPage] and limit to [1, MaxLimit],
// defaulting to DefaultLimit.
func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
}

// EndOfDay returns the last instant of the day starting at day, so an
// inclusive upper bound never reaches the next midnight.
func EndOfDay(day time.Time) time.Time {
	return day.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// ListClosed returns one page of closed comandas, newest first. The page and
// the total count are queried concurrently, so store must be safe for
// concurrent use (a pool, not a transaction).
func (r *Reporter) ListClosed(ctx context.Context, p ListParams) (*Page, error) {
	p.Normalize()

	start, end, responsavel := pgtype.Timestamptz{}, pgtype.Timestamptz{}, pgtype.UUID{}
	if p.Start != nil {
		start = pgtype.Timestamptz{Time: *p.Start, Valid: true}
	}
	if p.End != nil {
		end = pgtype.Timestamptz{Time: *p.End, Valid: true}
	}
	if p.ResponsavelID != nil {
		responsavel = pgtype.UUID{Bytes: *p.ResponsavelID, Valid: true}
	}

	var (
		rows  []database.ClosedComandaRow
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = r.store.ListClosedComandas(gctx, database.ListClosedComandasParams{
			CompanyID:     p.CompanyID,
			StartDate:     start,
			EndDate:       end,
			ResponsavelID: responsavel,
			Limit:         int32(p.Limit),
			Offset:        int32((p.Page - 1) * p.Limit),
		})
		if err != nil {
			return fmt.Errorf("list closed comandas: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		total, err = r.store.CountClosedComandas(gctx, database.CountClosedComandasParams{
			CompanyID:     p.CompanyID,
			StartDate:     start,
			EndDate:       end,
			ResponsavelID: responsavel,
		})
		if err != nil {
			return fmt.Errorf("count closed comandas: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	comandas, err := r.withPayments(ctx, rows)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return &Page{
		Comandas: comandas,
		Pagination: Pagination{
			Page:       p.Page,
			Limit:      p.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    p.Page < totalPages,
			HasPrev:    p.Page > 1,
		},
	}, nil
}
