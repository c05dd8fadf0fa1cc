package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-pos-api/internal/domain"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos-api/internal/domain/repository"
)

var _ repository.BatchRepository = (*BatchRepo)(nil)

// BatchRepo lotes de producto sobre PostgreSQL. seq lo asigna la base (BIGSERIAL).
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

const (
	batchColumns = `b.id, b.shop_id, b.product_id, b.batch_number, b.quantity, b.unit_cost, b.currency,
	b.expiration_date, b.purchase_order_id, b.purchase_order_line_id, b.is_active, b.seq, b.created_at, b.updated_at`
	fifoOrder = `b.expiration_date ASC NULLS LAST, b.seq ASC`
)

func (r *BatchRepo) Create(ctx context.Context, b *entity.ProductBatch) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO product_batches (id, shop_id, product_id, batch_number, quantity, unit_cost, currency,
			expiration_date, purchase_order_id, purchase_order_line_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING seq`,
		b.ID, b.ShopID, b.ProductID, b.BatchNumber, b.Quantity.Decimal(), b.UnitCost.Amount(), b.UnitCost.Currency(),
		dateOnly(b.ExpirationDate), nullString(b.PurchaseOrderID), nullString(b.PurchaseOrderLineID),
		b.IsActive, b.CreatedAt, b.UpdatedAt,
	).Scan(&b.Seq)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("lote %s: %w", b.BatchNumber, domain.ErrDuplicateItem)
		}
		return wrap("insert batch", err)
	}
	return nil
}

func (r *BatchRepo) Update(ctx context.Context, b *entity.ProductBatch) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE product_batches SET quantity = $2, is_active = $3, updated_at = $4 WHERE id = $1`,
		b.ID, b.Quantity.Decimal(), b.IsActive, b.UpdatedAt)
	if err != nil {
		return wrap("update batch", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lote %s: %w", b.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *BatchRepo) GetByID(ctx context.Context, id string) (*entity.ProductBatch, error) {
	b, err := scanBatch(r.q.QueryRow(ctx, `SELECT `+batchColumns+` FROM product_batches b WHERE b.id = $1`, id))
	if err != nil {
		return nil, wrap("get batch", err)
	}
	return b, nil
}

func (r *BatchRepo) GetForUpdate(ctx context.Context, id string) (*entity.ProductBatch, error) {
	b, err := scanBatch(r.q.QueryRow(ctx, `SELECT `+batchColumns+` FROM product_batches b WHERE b.id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, wrap("get batch for update", err)
	}
	return b, nil
}

func (r *BatchRepo) GetActiveByNumber(ctx context.Context, productID, batchNumber string) (*entity.ProductBatch, error) {
	b, err := scanBatch(r.q.QueryRow(ctx, `SELECT `+batchColumns+` FROM product_batches b
		WHERE b.product_id = $1 AND b.batch_number = $2 AND b.is_active`, productID, batchNumber))
	if err != nil {
		return nil, wrap("get batch by number", err)
	}
	return b, nil
}

func (r *BatchRepo) ListActiveForUpdate(ctx context.Context, productID string) ([]*entity.ProductBatch, error) {
	return r.query(ctx, `SELECT `+batchColumns+` FROM product_batches b
		WHERE b.product_id = $1 AND b.is_active
		ORDER BY `+fifoOrder+` FOR UPDATE`, productID)
}

func (r *BatchRepo) Search(ctx context.Context, f repository.BatchFilter) ([]*entity.ProductBatch, error) {
	query, args, err := batchSearch(f).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build batch search: %w", err)
	}
	return r.query(ctx, query, args...)
}

// batchSearch arma el SELECT filtrado; separado para poder probar el SQL generado sin base de datos.
func batchSearch(f repository.BatchFilter) sq.SelectBuilder {
	page := repository.NewPage(f.Page.Limit, f.Page.Offset)
	qb := psql.Select(batchColumns).
		From("product_batches b").
		OrderBy(fifoOrder).
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset))

	if f.ShopID != "" {
		qb = qb.Where(sq.Eq{"b.shop_id": f.ShopID})
	}
	if f.ProductID != "" {
		qb = qb.Where(sq.Eq{"b.product_id": f.ProductID})
	}
	if !f.IncludeInactive {
		qb = qb.Where("b.is_active")
	}
	if f.OnlyAvailable {
		qb = qb.Where("b.is_active AND b.quantity > 0")
	}
	if f.ExpiresOnOrBefore != nil {
		qb = qb.Where(sq.LtOrEq{"b.expiration_date": day(*f.ExpiresOnOrBefore)})
	}
	if f.ExpiresAfter != nil {
		after := sq.Gt{"b.expiration_date": day(*f.ExpiresAfter)}
		if f.IncludeNoExpiry && f.ExpiresOnOrBefore == nil {
			qb = qb.Where(sq.Or{after, sq.Eq{"b.expiration_date": nil}})
		} else {
			qb = qb.Where(after)
		}
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		qb = qb.Join("products p ON p.id = b.product_id").
			Where(sq.Or{
				sq.Expr("unaccent(b.batch_number) ILIKE unaccent(?)", like),
				sq.Expr("unaccent(p.name) ILIKE unaccent(?)", like),
			})
	}
	return qb
}

func (r *BatchRepo) query(ctx context.Context, query string, args ...any) ([]*entity.ProductBatch, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("list batches", err)
	}
	defer rows.Close()
	out := []*entity.ProductBatch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, wrap("scan batch", err)
		}
		out = append(out, b)
	}
	return out, wrap("list batches", rows.Err())
}

func scanBatch(row scanner) (*entity.ProductBatch, error) {
	var (
		b          entity.ProductBatch
		qty, cost  decimal.Decimal
		currency   string
		exp        *time.Time
		po, poLine *string
	)
	err := row.Scan(&b.ID, &b.ShopID, &b.ProductID, &b.BatchNumber, &qty, &cost, &currency,
		&exp, &po, &poLine, &b.IsActive, &b.Seq, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Quantity = quantity(qty)
	b.UnitCost = money(cost, currency)
	b.ExpirationDate = dateOnly(exp)
	b.PurchaseOrderID = derefString(po)
	b.PurchaseOrderLineID = derefString(poLine)
	return &b, nil
}

func day(t time.Time) time.Time {
	return *dateOnly(&t)
}
