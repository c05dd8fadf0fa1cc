package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo kardex sobre PostgreSQL. La tabla rechaza UPDATE y DELETE por trigger.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `id, shop_id, product_id, type, quantity, reference, notes, created_by, created_at`

func (r *MovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_movements (`+movementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.ShopID, m.ProductID, string(m.Type), m.Quantity,
		m.Reference, m.Notes, nullString(m.CreatedBy), m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("movimiento %s: %w", m.ID, domain.ErrDuplicateItem)
		}
		return wrap("insert movement", err)
	}
	return nil
}

func (r *MovementRepo) ListByProduct(ctx context.Context, productID string, page repository.Page) ([]*entity.StockMovement, error) {
	return r.Search(ctx, repository.MovementFilter{ProductID: productID, Page: page})
}

func (r *MovementRepo) Search(ctx context.Context, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	query, args, err := movementSearch(f).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build movement search: %w", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("search movements", err)
	}
	defer rows.Close()
	out := []*entity.StockMovement{}
	for rows.Next() {
		var (
			m       entity.StockMovement
			typ     string
			creator *string
		)
		if err := rows.Scan(&m.ID, &m.ShopID, &m.ProductID, &typ, &m.Quantity,
			&m.Reference, &m.Notes, &creator, &m.CreatedAt); err != nil {
			return nil, wrap("scan movement", err)
		}
		m.Type = entity.MovementType(typ)
		m.CreatedBy = derefString(creator)
		out = append(out, &m)
	}
	return out, wrap("search movements", rows.Err())
}

// movementSearch del más reciente al más antiguo; el id desempata movimientos del mismo instante.
func movementSearch(f repository.MovementFilter) sq.SelectBuilder {
	page := repository.NewPage(f.Page.Limit, f.Page.Offset)
	qb := psql.Select(movementColumns).
		From("stock_movements").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset))

	if f.ShopID != "" {
		qb = qb.Where(sq.Eq{"shop_id": f.ShopID})
	}
	if f.ProductID != "" {
		qb = qb.Where(sq.Eq{"product_id": f.ProductID})
	}
	if f.Type != "" {
		qb = qb.Where(sq.Eq{"type": string(f.Type)})
	}
	if f.Reference != "" {
		qb = qb.Where(sq.Eq{"reference": f.Reference})
	}
	if f.FromDate != nil {
		qb = qb.Where(sq.GtOrEq{"created_at": *f.FromDate})
	}
	if f.ToDate != nil {
		qb = qb.Where(sq.LtOrEq{"created_at": *f.ToDate})
	}
	return qb
}

func (r *MovementRepo) SumByProduct(ctx context.Context, productID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM stock_movements WHERE product_id = $1`, productID).Scan(&sum)
	if err != nil {
		return decimal.Zero, wrap("sum movements", err)
	}
	return sum, nil
}
